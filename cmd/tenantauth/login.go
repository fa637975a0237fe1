package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantauth/pkg/client"
)

// newLoginCmd hace el flujo completo con el SDK: imprime la URL del provider,
// espera el redirect en un listener local y canjea el code contra el backend.
func newLoginCmd(g *globals) *cobra.Command {
	var (
		baseURL      string
		apiKey       string
		providerName string
		clientID     string
		redirectURI  string
		stashPath    string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login interactivo contra un servidor tenantauth (demo del SDK)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ru, err := url.Parse(redirectURI)
			if err != nil || ru.Host == "" {
				return fmt.Errorf("--redirect-uri inválida: %q", redirectURI)
			}
			stash, err := client.OpenBoltStash(stashPath)
			if err != nil {
				return err
			}
			defer stash.Close()

			p := client.ProviderType(providerName)
			c, err := client.New(client.Config{
				BaseURL:     baseURL,
				APIKey:      apiKey,
				RedirectURI: redirectURI,
				Providers:   map[client.ProviderType]client.ProviderSettings{p: {ClientID: clientID}},
				Stash:       stash,
				Navigator:   client.PrintNavigator{W: os.Stderr},
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ln, err := net.Listen("tcp", ru.Host)
			if err != nil {
				return fmt.Errorf("listen %s: %w", ru.Host, err)
			}
			queries := make(chan url.Values, 1)
			srv := &http.Server{
				ReadHeaderTimeout: 10 * time.Second,
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if ru.Path != "" && r.URL.Path != ru.Path {
						http.NotFound(w, r)
						return
					}
					// Apple usa form_post
					_ = r.ParseForm()
					select {
					case queries <- r.Form:
					default:
					}
					fmt.Fprintln(w, "Listo, podés volver a la terminal.")
				}),
			}
			go func() { _ = srv.Serve(ln) }()
			defer srv.Close()

			if _, err := c.Initiate(ctx, p); err != nil {
				return err
			}

			var q url.Values
			select {
			case q = <-queries:
			case <-ctx.Done():
				return errors.New("timeout esperando el redirect del provider")
			}

			s, err := c.HandleRedirect(ctx, q)
			if err != nil {
				return err
			}
			g.print(s, fmt.Sprintf("autenticado como %s (%s)\nsession token: %s", s.User.Email, s.User.ID, s.SessionToken))
			return nil
		},
	}

	home, _ := os.UserHomeDir()
	cmd.Flags().StringVar(&baseURL, "base-url", envOr("TENANTAUTH_URL", "http://localhost:8080"), "URL del servidor (env TENANTAUTH_URL)")
	cmd.Flags().StringVar(&apiKey, "api-key", envOr("TENANTAUTH_API_KEY", ""), "API key del tenant (env TENANTAUTH_API_KEY)")
	cmd.Flags().StringVar(&providerName, "provider", "google", "google|github|microsoft|apple")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Client id público de la app OAuth del tenant")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "http://127.0.0.1:8765/callback", "Redirect URI registrada en el provider")
	cmd.Flags().StringVar(&stashPath, "stash", filepath.Join(home, ".tenantauth", "stash.db"), "Archivo bbolt para verifier/state y sesión")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Tiempo máximo para completar el login")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}
