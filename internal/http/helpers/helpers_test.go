package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	type body struct {
		Code string `json:"code"`
	}

	t.Run("ok", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"abc","extra":1}`))
		r.Header.Set("Content-Type", "application/json")
		var b body
		require.NoError(t, ReadJSON(httptest.NewRecorder(), r, &b))
		assert.Equal(t, "abc", b.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var b body
		require.NoError(t, ReadJSON(httptest.NewRecorder(), r, &b))
	})

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":`))
		r.Header.Set("Content-Type", "application/json")
		err := ReadJSON(httptest.NewRecorder(), r, &body{})
		require.Error(t, err)
		assert.Equal(t, "invalid_json", httperrors.FromError(err).Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`code=x`))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		err := ReadJSON(httptest.NewRecorder(), r, &body{})
		assert.Equal(t, http.StatusBadRequest, httperrors.FromError(err).HTTPStatus)
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"code":"` + strings.Repeat("a", MaxBodyBytes+10) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		r.Header.Set("Content-Type", "application/json")
		err := ReadJSON(httptest.NewRecorder(), r, &body{})
		assert.Equal(t, http.StatusRequestEntityTooLarge, httperrors.FromError(err).HTTPStatus)
	})
}

func TestAPIKeyPrefersHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, "body-key", APIKey(r, " body-key "))
	r.Header.Set(HeaderAPIKey, "header-key")
	assert.Equal(t, "header-key", APIKey(r, "body-key"))
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(r))
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(r))
	r.Header.Set("Authorization", "bearer tok.en")
	assert.Equal(t, "tok.en", BearerToken(r))
}

func TestSessionCookies(t *testing.T) {
	cfg := CookieConfig{Secure: true}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ck := cfg.SessionCookie("tok", now.Add(time.Hour), now)
	assert.Equal(t, DefaultSessionCookie, ck.Name)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Equal(t, 3600, ck.MaxAge)

	del := cfg.DeletionCookie()
	assert.Equal(t, -1, del.MaxAge)
	assert.Equal(t, int64(0), del.Expires.Unix())
	assert.Empty(t, del.Value)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", ClientIP(r))
}
