package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/internal/store/pg"
	"github.com/dropDatabas3/tenantauth/migrations/postgres"
)

func newMigrateCmd(g *globals) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas (postgres)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				migs, err := pg.ParseMigrations(postgres.FS)
				if err != nil {
					return err
				}
				for _, m := range migs {
					fmt.Printf("%04d_%s\n", m.Version, m.Name)
				}
				return nil
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return errors.New("migrate requires storage.driver=postgres")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			st, err := pg.Open(ctx, pg.Config{DSN: cfg.Storage.DSN, MaxOpenConns: 2})
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.Migrate(ctx, postgres.FS)
			if err != nil {
				return err
			}
			g.print(res, fmt.Sprintf("applied=%v skipped=%d (%s)",
				res.Applied, len(res.Skipped), res.Duration.Truncate(time.Millisecond)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Solo lista las migraciones embebidas")
	return cmd
}
