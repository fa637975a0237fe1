package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/internal/app"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

func newProviderCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "provider", Short: "Config OAuth de cada tenant"}

	var (
		tenantRef    string
		providerName string
		clientID     string
		clientSecret string
		redirects    []string
		disabled     bool
		enabled      bool
	)

	set := &cobra.Command{
		Use:   "set",
		Short: "Crea o reemplaza la app OAuth de un provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := oauth.ParseProviderType(providerName)
			if err != nil {
				return err
			}
			if clientSecret == "" {
				return errors.New("--client-secret es requerido")
			}
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				err = core.Tenants.SetProvider(ctx, tenant.SetProviderInput{
					TenantID:     t.ID,
					Provider:     p,
					ClientID:     clientID,
					ClientSecret: clientSecret,
					RedirectURIs: redirects,
					Enabled:      !disabled,
				})
				if err != nil {
					return err
				}
				g.print(map[string]any{"tenantId": t.ID, "provider": p, "enabled": !disabled},
					fmt.Sprintf("%s configurado para %s (enabled=%t)", p, t.Slug, !disabled))
				return nil
			})
		},
	}
	set.Flags().StringVar(&clientID, "client-id", "", "Client id de la app OAuth")
	set.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret (se guarda cifrado)")
	set.Flags().StringSliceVar(&redirects, "redirect-uri", nil, "Redirect URIs permitidas (repetible; vacío admite cualquiera)")
	set.Flags().BoolVar(&disabled, "disabled", false, "Guardar deshabilitado")
	_ = set.MarkFlagRequired("client-id")

	toggle := &cobra.Command{
		Use:   "toggle",
		Short: "Habilita o deshabilita un provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := oauth.ParseProviderType(providerName)
			if err != nil {
				return err
			}
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				if err := core.Tenants.ToggleProvider(ctx, t.ID, p, enabled); err != nil {
					return err
				}
				g.print(map[string]any{"tenantId": t.ID, "provider": p, "enabled": enabled},
					fmt.Sprintf("%s en %s: enabled=%t", p, t.Slug, enabled))
				return nil
			})
		},
	}
	toggle.Flags().BoolVar(&enabled, "enabled", true, "Estado deseado")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los providers de un tenant (secret oculto)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, g, func(ctx context.Context, core *app.Core) error {
				t, err := core.Tenants.Lookup(ctx, tenantRef)
				if err != nil {
					return err
				}
				ps, err := core.Tenants.ListProviders(ctx, t.ID)
				if err != nil {
					return err
				}
				var b strings.Builder
				for _, p := range ps {
					fmt.Fprintf(&b, "%s\t%s\tenabled=%t\t%s\n", p.Provider, p.ClientID, p.Enabled, strings.Join(p.RedirectURIs, ","))
				}
				g.print(ps, strings.TrimRight(b.String(), "\n"))
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{set, toggle, list} {
		c.Flags().StringVar(&tenantRef, "tenant", "", "Id o slug del tenant")
		_ = c.MarkFlagRequired("tenant")
	}
	for _, c := range []*cobra.Command{set, toggle} {
		c.Flags().StringVar(&providerName, "provider", "", "google|github|microsoft|apple")
		_ = c.MarkFlagRequired("provider")
	}

	cmd.AddCommand(set, toggle, list)
	return cmd
}
