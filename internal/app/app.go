// Package app arma el grafo de dependencias a partir de la config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/config"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/email"
	authctrl "github.com/dropDatabas3/tenantauth/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/tenantauth/internal/http/controllers/health"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
	"github.com/dropDatabas3/tenantauth/internal/http/router"
	authsvc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/tenantauth/internal/http/services/health"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/oauth/github"
	"github.com/dropDatabas3/tenantauth/internal/oauth/oidc"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/providertoken"
	"github.com/dropDatabas3/tenantauth/internal/rate"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	"github.com/dropDatabas3/tenantauth/internal/store/memory"
	"github.com/dropDatabas3/tenantauth/internal/store/pg"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// Options ajustes que no vienen de la config.
type Options struct {
	Version string
	// Providers reemplaza el registry por defecto (Google, Microsoft, Apple, GitHub).
	Providers []oauth.Provider
	// Mailer reemplaza el sender SMTP/nop derivado de la config.
	Mailer email.Sender
	// Registry de prometheus; nil crea uno propio.
	Registry *prometheus.Registry
}

// Core es lo mínimo para las operaciones administrativas (CLI).
type Core struct {
	Config  *config.Config
	Store   repository.Store
	Cache   cache.Client
	Box     *secretbox.Box
	Tenants *tenant.Resolver

	pg      *pg.Store
	closers []func() error
}

// App es el servicio HTTP completo.
type App struct {
	*Core
	Metrics  *metrics.Metrics
	Sessions *jwt.SessionIssuer
	Handler  http.Handler
}

// OpenCore abre store, cache y secretbox, y arma el resolver de tenants.
func OpenCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	c := &Core{Config: cfg}

	box, err := secretbox.Parse(cfg.Security.SecretBoxMasterKey)
	if err != nil {
		return nil, fmt.Errorf("secretbox: %w", err)
	}
	c.Box = box

	switch cfg.Storage.Driver {
	case "postgres":
		st, err := pg.Open(ctx, pg.Config{DSN: cfg.Storage.DSN, MaxOpenConns: cfg.Storage.MaxOpenConns})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		c.pg = st
		c.Store = st
	default:
		c.Store = memory.New()
	}
	c.closers = append(c.closers, c.Store.Close)

	cc, err := cache.New(ctx, cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.Cache = cc
	c.closers = append(c.closers, cc.Close)

	c.Tenants = tenant.NewResolver(c.Store, box, cc)
	if cfg.SingleTenant.Enabled {
		if err := c.wireSingleTenant(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Postgres devuelve el store pg si el driver es postgres.
func (c *Core) Postgres() (*pg.Store, bool) { return c.pg, c.pg != nil }

// Close libera recursos en orden inverso.
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// wireSingleTenant: el tenant se persiste (los usuarios lo referencian) y sus
// providers salen de la config, nunca de la base.
func (c *Core) wireSingleTenant(ctx context.Context) error {
	st := c.Config.SingleTenant
	t, err := c.Tenants.EnsureTenant(ctx, st.Name, st.Slug)
	if err != nil {
		return fmt.Errorf("single tenant: %w", err)
	}
	providers := map[oauth.ProviderType]tenant.ProviderConfig{}
	add := func(p oauth.ProviderType, creds config.ProviderCreds) {
		if !creds.Configured() {
			return
		}
		providers[p] = tenant.ProviderConfig{
			Provider:     p,
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURIs: creds.RedirectURIs,
			Enabled:      true,
		}
	}
	add(oauth.Google, st.Google)
	add(oauth.GitHub, st.GitHub)

	c.Tenants.WithStatic(&tenant.Static{Tenant: *t, Providers: providers})
	logger.From(ctx).Info("single-tenant mode",
		logger.TenantID(t.ID),
		logger.Int("providers", len(providers)),
	)
	return nil
}

// DefaultProviders arma los presets con un http.Client con timeout.
func DefaultProviders(cfg *config.Config) []oauth.Provider {
	hc := oauth.NewHTTPClient(cfg.OAuth.HTTPTimeout)
	o := oidc.Options{HTTPClient: hc, JWKSTTL: cfg.OAuth.JWKSTTL}
	return []oauth.Provider{
		oidc.NewGoogle(o),
		oidc.NewMicrosoft(o),
		oidc.NewApple(o),
		github.New(hc, nil),
	}
}

// New arma el servicio completo: core, dominio, HTTP.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	core, err := OpenCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := build(ctx, core, opts)
	if err != nil {
		_ = core.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, core *Core, opts Options) (*App, error) {
	cfg := core.Config
	log := logger.From(ctx).With(logger.Component("app"))

	providers := opts.Providers
	if len(providers) == 0 {
		providers = DefaultProviders(cfg)
	}
	registry, err := oauth.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	m, err := metrics.New(opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if st, ok := core.Postgres(); ok {
		if err := m.RegisterPool(st.Pool); err != nil {
			return nil, fmt.Errorf("metrics pool: %w", err)
		}
	}

	users := identity.NewService(core.Store, identity.Options{
		SendLimiter:   otpLimiter(core.Cache, cfg, cfg.OTP.MaxSends),
		VerifyLimiter: otpLimiter(core.Cache, cfg, cfg.OTP.MaxVerifyAttempts),
		Mailer:        mailer(cfg, opts.Mailer),
		OTPTTL:        cfg.OTP.TTL,
	})

	sessions, err := jwt.NewSessionIssuer(cfg.JWT.Issuer, []byte(cfg.JWT.SessionSecret), cfg.JWT.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	tokens := providertoken.New(core.Store.ProviderTokens(), core.Box)
	services := authsvc.NewServices(authsvc.Deps{
		Tenants:   core.Tenants,
		Registry:  registry,
		Users:     users,
		Tokens:    tokens,
		Refresher: providertoken.NewRefresher(tokens, registry, core.Tenants),
		Sessions:  sessions,
		Metrics:   m,
	})

	transport := mw.SessionTransport{
		Mode: cfg.Auth.Session.Transport,
		Cookie: helpers.CookieConfig{
			Name:     cfg.Auth.Session.CookieName,
			Domain:   cfg.Auth.Session.Domain,
			SameSite: cfg.Auth.Session.SameSite,
			Secure:   cfg.Auth.Session.Secure,
		},
	}

	health := healthsvc.NewService(opts.Version, 2*time.Second).Add("store", core.Store)
	if cfg.Cache.Kind == "redis" {
		health.Add("cache", core.Cache)
	}

	handler := router.New(router.Deps{
		Auth:        authctrl.NewControllers(services, transport),
		Health:      healthctrl.NewController(health),
		Sessions:    sessions,
		Transport:   transport,
		Metrics:     m,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	})

	log.Info("app wired",
		logger.Any("providers", registry.Types()),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("session_transport", transport.Mode),
	)

	return &App{Core: core, Metrics: m, Sessions: sessions, Handler: handler}, nil
}

// otpLimiter usa redis cuando está disponible para que el límite sea global entre réplicas.
func otpLimiter(c cache.Client, cfg *config.Config, limit int) rate.Limiter {
	if r, ok := c.(*cache.Redis); ok {
		return rate.NewRedisLimiter(r.Client(), cfg.Cache.Redis.Prefix+":", limit, cfg.OTP.Window)
	}
	return rate.NewMemoryLimiter(limit, cfg.OTP.Window)
}

func mailer(cfg *config.Config, override email.Sender) email.Sender {
	if override != nil {
		return override
	}
	if cfg.SMTP.Host == "" {
		return email.NopSender{}
	}
	return &email.SMTPSender{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		From:               cfg.SMTP.From,
		User:               cfg.SMTP.User,
		Pass:               cfg.SMTP.Pass,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		Timeout:            10 * time.Second,
	}
}
