package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/internal/app"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// withCore abre store + resolver para comandos administrativos.
func withCore(cmd *cobra.Command, g *globals, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == "memory" {
		return errors.New("admin commands need a persistent store (storage.driver=postgres)")
	}
	ctx := logger.ToContext(cmd.Context(), logger.L())
	core, err := app.OpenCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func newTenantCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Alta de tenants y manejo de API keys"}

	var name, slug string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un tenant y emite su primera API key (se muestra una sola vez)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slug == "" {
				return errors.New("--slug es requerido")
			}
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, key, err := core.Tenants.CreateTenant(ctx, name, slug)
				if err != nil {
					return err
				}
				g.print(map[string]string{"id": t.ID, "slug": t.Slug, "name": t.Name, "apiKey": key},
					fmt.Sprintf("tenant %s (%s)\napi key: %s\nGuardala ahora: no se vuelve a mostrar.", t.Slug, t.ID, key))
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Nombre visible (default: slug)")
	create.Flags().StringVar(&slug, "slug", "", "Slug único, ej. acme")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				ts, err := core.Tenants.List(ctx)
				if err != nil {
					return err
				}
				var b strings.Builder
				for _, t := range ts {
					fmt.Fprintf(&b, "%s\t%s\t%s\n", t.ID, t.Slug, t.Name)
				}
				g.print(ts, strings.TrimRight(b.String(), "\n"))
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, newKeyCmd(g))
	return cmd
}

func newKeyCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "key", Short: "Emitir, rotar o revocar API keys"}

	var tenantRef, label, oldKey string

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Emite una API key adicional",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				key, err := core.Tenants.IssueAPIKey(ctx, t.ID, label)
				if err != nil {
					return err
				}
				g.print(map[string]string{"tenantId": t.ID, "apiKey": key}, key)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&label, "label", "", "Etiqueta de la key")

	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Emite una key nueva y revoca la indicada",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if oldKey == "" {
				return errors.New("--key es requerido")
			}
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				key, err := core.Tenants.RotateAPIKey(ctx, t.ID, oldKey)
				if err != nil {
					return err
				}
				g.print(map[string]string{"tenantId": t.ID, "apiKey": key}, key)
				return nil
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoca una API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if oldKey == "" {
				return errors.New("--key es requerido")
			}
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				if err := core.Tenants.RevokeAPIKey(ctx, t.ID, oldKey); err != nil {
					return err
				}
				g.print(map[string]bool{"revoked": true}, "revoked")
				return nil
			})
		},
	}
	for _, c := range []*cobra.Command{rotate, revoke} {
		c.Flags().StringVar(&oldKey, "key", "", "API key actual")
	}
	for _, c := range []*cobra.Command{issue, rotate, revoke} {
		c.Flags().StringVar(&tenantRef, "tenant", "", "Id o slug del tenant")
		_ = c.MarkFlagRequired("tenant")
	}

	cmd.AddCommand(issue, rotate, revoke)
	return cmd
}
