package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/config"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/oauth/oidc"
	"github.com/dropDatabas3/tenantauth/internal/oauth/oidc/oidctest"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

func testConfig() *config.Config {
	c := config.Default()
	c.JWT.SessionSecret = "0123456789abcdef0123456789abcdef"
	c.Security.SecretBoxMasterKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // 32 bytes en base64
	return c
}

func TestNew_MemoryStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(), Options{Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, isPG := a.Postgres()
	assert.False(t, isPG)

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store"`)
}

func TestNew_BadMasterKey(t *testing.T) {
	c := testConfig()
	c.Security.SecretBoxMasterKey = "nope"
	_, err := New(context.Background(), c, Options{})
	require.Error(t, err)
}

func TestSingleTenant_CallbackWithoutAPIKey(t *testing.T) {
	ctx := context.Background()
	google := oidctest.NewServer(t)
	eps := google.Endpoints()

	c := testConfig()
	c.SingleTenant.Enabled = true
	c.SingleTenant.Slug = "solo"
	c.SingleTenant.Google = config.ProviderCreds{ClientID: "solo-client", ClientSecret: "solo-secret"}

	a, err := New(ctx, c, Options{Providers: []oauth.Provider{oidc.NewGoogle(oidc.Options{Endpoints: &eps})}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	google.AddCode("code-1", oidctest.Grant{
		ClientID:      "solo-client",
		Subject:       "g-1",
		Email:         "solo@example.com",
		EmailVerified: true,
		Name:          "Solo",
	})

	body, _ := json.Marshal(map[string]string{
		"code":         "code-1",
		"codeVerifier": "verifier-verifier-verifier-verifier-verifier-1",
		"redirectUri":  "https://app.example.com/cb",
	})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/auth/google/callback", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	a.Handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		SessionToken string `json:"sessionToken"`
		User         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, "solo@example.com", resp.User.Email)

	claims, err := a.Sessions.Verify(resp.SessionToken)
	require.NoError(t, err)
	tn, err := a.Tenants.Lookup(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, claims.TenantID)
}

func TestSingleTenant_ProviderWithoutCreds(t *testing.T) {
	c := testConfig()
	c.SingleTenant.Enabled = true

	core, err := OpenCore(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })

	tn, err := core.Tenants.ResolveTenant(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "default", tn.Slug)

	_, err = core.Tenants.ResolveProvider(context.Background(), "", oauth.GitHub)
	assert.ErrorIs(t, err, tenant.ErrProviderNotConfigured)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestNew_CookieTransportUsesConfiguredSameSite(t *testing.T) {
	c := testConfig()
	c.SingleTenant.Enabled = true
	c.Auth.Session.Transport = "cookie"
	c.Auth.Session.SameSite = "Strict"
	c.Auth.Session.Secure = true

	a, err := New(context.Background(), c, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	creds := map[string]string{"email": "cookie@example.com", "password": "secret-1"}
	w := postJSON(t, a.Handler, "/auth/password/register", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, a.Handler, "/auth/password/login", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == c.Auth.Session.CookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.True(t, session.Secure)
	assert.True(t, session.HttpOnly)
}

func TestNew_OTPVerifyAttemptsLimited(t *testing.T) {
	c := testConfig()
	c.SingleTenant.Enabled = true
	c.OTP.MaxVerifyAttempts = 2

	a, err := New(context.Background(), c, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	w := postJSON(t, a.Handler, "/auth/password/register", map[string]string{"email": "guess@example.com", "password": "secret-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = postJSON(t, a.Handler, "/auth/otp/send", map[string]string{"email": "guess@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	guess := map[string]string{"email": "guess@example.com", "code": "000000x"}
	for i := 0; i < 2; i++ {
		w = postJSON(t, a.Handler, "/auth/otp/verify", guess)
		require.Equal(t, http.StatusUnauthorized, w.Code, "guess %d", i)
	}
	w = postJSON(t, a.Handler, "/auth/otp/verify", guess)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
