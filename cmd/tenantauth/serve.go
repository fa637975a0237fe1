package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/internal/app"
	"github.com/dropDatabas3/tenantauth/internal/http/server"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/migrations/postgres"
)

func newServeCmd(g *globals) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logger.L()
			ctx = logger.ToContext(ctx, log)

			a, err := app.New(ctx, cfg, app.Options{Version: version})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("shutdown cleanup", logger.Err(err))
				}
			}()

			if migrate {
				st, ok := a.Postgres()
				if !ok {
					return errors.New("--migrate requires storage.driver=postgres")
				}
				res, err := st.Migrate(ctx, postgres.FS)
				if err != nil {
					return err
				}
				log.Info("migrations applied", logger.Any("applied", res.Applied), logger.Duration(res.Duration))
			}
			if !cfg.IsProd() && cfg.Storage.Driver == "memory" {
				log.Warn("memory storage: data is lost on restart")
			}

			srv := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, a.Handler)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Aplica migraciones pendientes antes de servir (postgres)")
	return cmd
}
