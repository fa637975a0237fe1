package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/internal/config"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// version se inyecta con -ldflags "-X main.version=...".
var version = "dev"

type globals struct {
	configPath string
	envFiles   []string
	out        string
}

func (g *globals) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(g.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "tenantauth",
		Version:     version,
	})
	return cfg, nil
}

// print respeta --out: json indentado o texto plano.
func (g *globals) print(v any, text string) {
	if g.out == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Println(text)
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "tenantauth",
		Short:         "Autenticación multi-tenant: login social, password y OTP para apps SaaS",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", envOr("TENANTAUTH_CONFIG", ""), "Ruta al YAML de config (env TENANTAUTH_CONFIG)")
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "Archivos .env a cargar (default .env)")
	root.PersistentFlags().StringVar(&g.out, "out", "text", "Formato de salida: json|text")

	root.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newTenantCmd(g),
		newProviderCmd(g),
		newLoginCmd(g),
	)
	return root
}

func main() {
	defer func() { _ = logger.Sync() }()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
