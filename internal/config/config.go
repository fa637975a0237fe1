package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix antecede a todas las variables de entorno (TENANTAUTH_SERVER_ADDR, ...).
const EnvPrefix = "TENANTAUTH_"

// ProviderCreds credenciales de un proveedor para el modo single-tenant.
type ProviderCreds struct {
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURIs []string `yaml:"redirect_uris" env:"REDIRECT_URIS"`
}

// Configured indica si hay client id y secret.
func (p ProviderCreds) Configured() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env" env:"ENV"`
		LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	} `yaml:"app" envPrefix:"APP_"`

	Server struct {
		Addr               string        `yaml:"addr" env:"ADDR"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
		ReadTimeout        time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
		WriteTimeout       time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	} `yaml:"server" envPrefix:"SERVER_"`

	Storage struct {
		// memory | postgres
		Driver       string `yaml:"driver" env:"DRIVER"`
		DSN          string `yaml:"dsn" env:"DSN"`
		MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	} `yaml:"storage" envPrefix:"STORAGE_"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind" env:"KIND"`
		Redis struct {
			Addr     string `yaml:"addr" env:"ADDR"`
			Password string `yaml:"password" env:"PASSWORD"`
			DB       int    `yaml:"db" env:"DB"`
			Prefix   string `yaml:"prefix" env:"PREFIX"`
		} `yaml:"redis" envPrefix:"REDIS_"`
		DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	} `yaml:"cache" envPrefix:"CACHE_"`

	JWT struct {
		Issuer        string        `yaml:"issuer" env:"ISSUER"`
		SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"`
		SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	} `yaml:"jwt" envPrefix:"JWT_"`

	Auth struct {
		Session struct {
			// bearer | cookie
			Transport  string `yaml:"transport" env:"TRANSPORT"`
			CookieName string `yaml:"cookie_name" env:"COOKIE_NAME"`
			Domain     string `yaml:"domain" env:"DOMAIN"`
			SameSite   string `yaml:"samesite" env:"SAMESITE"`
			Secure     bool   `yaml:"secure" env:"SECURE"`
		} `yaml:"session" envPrefix:"SESSION_"`
	} `yaml:"auth" envPrefix:"AUTH_"`

	Security struct {
		// 32 bytes en base64 o hex. Cifra client secrets y refresh tokens.
		SecretBoxMasterKey string `yaml:"secretbox_master_key" env:"SECRETBOX_MASTER_KEY"`
	} `yaml:"security" envPrefix:"SECURITY_"`

	OAuth struct {
		HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
		JWKSTTL     time.Duration `yaml:"jwks_ttl" env:"JWKS_TTL"`
	} `yaml:"oauth" envPrefix:"OAUTH_"`

	OTP struct {
		TTL      time.Duration `yaml:"ttl" env:"TTL"`
		Window   time.Duration `yaml:"window" env:"WINDOW"`
		MaxSends int           `yaml:"max_sends" env:"MAX_SENDS"`
		// MaxVerifyAttempts por (tenant, email) y ventana; al agotarse se invalida el código.
		MaxVerifyAttempts int `yaml:"max_verify_attempts" env:"MAX_VERIFY_ATTEMPTS"`
	} `yaml:"otp" envPrefix:"OTP_"`

	SMTP struct {
		Host string `yaml:"host" env:"HOST"`
		Port int    `yaml:"port" env:"PORT"`
		From string `yaml:"from" env:"FROM"`
		User string `yaml:"user" env:"USER"`
		Pass string `yaml:"pass" env:"PASS"`
		// auto | starttls | ssl | none
		TLS                string `yaml:"tls" env:"TLS"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
	} `yaml:"smtp" envPrefix:"SMTP_"`

	SingleTenant struct {
		Enabled bool          `yaml:"enabled" env:"ENABLED"`
		Slug    string        `yaml:"slug" env:"SLUG"`
		Name    string        `yaml:"name" env:"NAME"`
		Google  ProviderCreds `yaml:"google" envPrefix:"GOOGLE_"`
		GitHub  ProviderCreds `yaml:"github" envPrefix:"GITHUB_"`
	} `yaml:"single_tenant" envPrefix:"SINGLE_TENANT_"`
}

// Default devuelve la configuración con valores sanos para dev.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.App.LogLevel = "info"

	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second

	c.Storage.Driver = "memory"
	c.Storage.MaxOpenConns = 10

	c.Cache.Kind = "memory"
	c.Cache.Redis.Prefix = "tenantauth"
	c.Cache.DefaultTTL = 2 * time.Minute

	c.JWT.Issuer = "tenantauth"
	c.JWT.SessionTTL = time.Hour

	c.Auth.Session.Transport = "bearer"
	c.Auth.Session.CookieName = "tenantauth_session"
	c.Auth.Session.SameSite = "Lax"

	c.OAuth.HTTPTimeout = 10 * time.Second
	c.OAuth.JWKSTTL = time.Hour

	c.OTP.TTL = 5 * time.Minute
	c.OTP.Window = 300 * time.Second
	c.OTP.MaxSends = 5
	c.OTP.MaxVerifyAttempts = 5

	c.SMTP.Port = 587
	c.SMTP.TLS = "auto"

	c.SingleTenant.Slug = "default"
	c.SingleTenant.Name = "Default"
	return &c
}

// LoadDotEnv carga los .env indicados (o ".env"). Un archivo ausente no es error.
// Las variables ya presentes en el entorno no se pisan.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("dotenv %s: %w", f, err)
		}
	}
	return nil
}

// Load aplica defaults, el YAML (si path != "") y luego el entorno. Valida al final.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnvOverrides solo toca los campos cuya variable está definida.
func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Cache.Kind = strings.ToLower(strings.TrimSpace(c.Cache.Kind))
	c.Auth.Session.Transport = strings.ToLower(strings.TrimSpace(c.Auth.Session.Transport))
	c.SMTP.TLS = strings.ToLower(strings.TrimSpace(c.SMTP.TLS))

	origins := c.Server.CORSAllowedOrigins[:0]
	for _, o := range c.Server.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSAllowedOrigins = origins
}

// IsProd indica entorno productivo.
func (c *Config) IsProd() bool { return c.App.Env == "prod" || c.App.Env == "production" }

// Validate revisa los valores críticos. Acumula todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (memory|postgres)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	if len(c.JWT.SessionSecret) < 32 {
		errs = append(errs, errors.New("jwt.session_secret must be at least 32 bytes"))
	}
	if c.JWT.SessionTTL <= 0 {
		errs = append(errs, errors.New("jwt.session_ttl must be positive"))
	}

	switch c.Auth.Session.Transport {
	case "bearer", "cookie":
	default:
		errs = append(errs, fmt.Errorf("auth.session.transport %q not supported (bearer|cookie)", c.Auth.Session.Transport))
	}
	if c.Auth.Session.Transport == "cookie" && strings.EqualFold(c.Auth.Session.SameSite, "none") && !c.Auth.Session.Secure {
		errs = append(errs, errors.New("auth.session: SameSite=None requires secure=true"))
	}

	if strings.TrimSpace(c.Security.SecretBoxMasterKey) == "" {
		errs = append(errs, errors.New("security.secretbox_master_key is required"))
	}

	if c.OTP.TTL <= 0 || c.OTP.Window <= 0 || c.OTP.MaxSends <= 0 || c.OTP.MaxVerifyAttempts <= 0 {
		errs = append(errs, errors.New("otp: ttl, window, max_sends and max_verify_attempts must be positive"))
	}

	if c.SingleTenant.Enabled && strings.TrimSpace(c.SingleTenant.Slug) == "" {
		errs = append(errs, errors.New("single_tenant.slug is required when enabled"))
	}

	return errors.Join(errs...)
}
