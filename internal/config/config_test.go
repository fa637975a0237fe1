package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9090"
  cors_allowed_origins: ["https://app.example.com", " "]
jwt:
  session_secret: "`+testSecret+`"
  session_ttl: 2h
security:
  secretbox_master_key: "k"
otp:
  max_sends: 3
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, c.Server.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Hour, c.JWT.SessionTTL)
	assert.Equal(t, 3, c.OTP.MaxSends)
	// defaults intactos
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "bearer", c.Auth.Session.Transport)
	assert.Equal(t, 5*time.Minute, c.OTP.TTL)
	assert.Equal(t, 300*time.Second, c.OTP.Window)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
storage:
  driver: memory
jwt:
  session_secret: "`+testSecret+`"
security:
  secretbox_master_key: "k"
`)
	t.Setenv("TENANTAUTH_SERVER_ADDR", ":7000")
	t.Setenv("TENANTAUTH_STORAGE_DRIVER", "postgres")
	t.Setenv("TENANTAUTH_STORAGE_DSN", "postgres://u:p@localhost/db")
	t.Setenv("TENANTAUTH_AUTH_SESSION_TRANSPORT", "COOKIE")
	t.Setenv("TENANTAUTH_SINGLE_TENANT_ENABLED", "true")
	t.Setenv("TENANTAUTH_SINGLE_TENANT_GOOGLE_CLIENT_ID", "gid")
	t.Setenv("TENANTAUTH_SINGLE_TENANT_GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("TENANTAUTH_SERVER_CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, "postgres", c.Storage.Driver)
	assert.Equal(t, "cookie", c.Auth.Session.Transport)
	assert.True(t, c.SingleTenant.Enabled)
	assert.True(t, c.SingleTenant.Google.Configured())
	assert.False(t, c.SingleTenant.GitHub.Configured())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, c.Server.CORSAllowedOrigins)
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("TENANTAUTH_JWT_SESSION_SECRET", testSecret)
	t.Setenv("TENANTAUTH_SECURITY_SECRETBOX_MASTER_KEY", "k")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.JWT.SessionSecret = testSecret
		c.Security.SecretBoxMasterKey = "k"
		return c
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"weak secret":        func(c *Config) { c.JWT.SessionSecret = "short" },
		"postgres sin dsn":   func(c *Config) { c.Storage.Driver = "postgres" },
		"driver desconocido": func(c *Config) { c.Storage.Driver = "mongo" },
		"redis sin addr":     func(c *Config) { c.Cache.Kind = "redis" },
		"transport inválido": func(c *Config) { c.Auth.Session.Transport = "header" },
		"samesite none":      func(c *Config) { c.Auth.Session.Transport = "cookie"; c.Auth.Session.SameSite = "None" },
		"sin master key":     func(c *Config) { c.Security.SecretBoxMasterKey = "" },
		"otp sin ventana":    func(c *Config) { c.OTP.Window = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, ".env", "TENANTAUTH_APP_LOG_LEVEL=debug\n")
	// t.Setenv registra la restauración; luego lo borramos para que godotenv lo cargue
	t.Setenv("TENANTAUTH_APP_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("TENANTAUTH_APP_LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(p, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "debug", os.Getenv("TENANTAUTH_APP_LOG_LEVEL"))
}
