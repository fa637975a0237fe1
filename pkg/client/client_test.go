package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/security/pkce"
)

const (
	testAPIKey   = "k1"
	testRedirect = "https://app.example.com/cb"
)

// fakeBackend responde como tenantauth y cuenta las llamadas.
type fakeBackend struct {
	*httptest.Server
	hits     atomic.Int32
	lastBody map[string]string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		if r.Header.Get(HeaderAPIKey) != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"invalid_api_key","message":"invalid api key"}`))
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		fb.lastBody = in
		if in["code"] == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"provider_exchange_failed","message":"exchange failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"sessionToken":"sess-1","user":{"id":"u1","email":"a@b.c"}}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"session_invalid","message":"invalid session"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.c","providers":["google"]}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("POST /auth/password/login", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		_, _ = w.Write([]byte(`{"sessionToken":"sess-1","user":{"id":"u1","email":"a@b.c"}}`))
	})
	mux.HandleFunc("POST /auth/password/register", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		fb.lastBody = in
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"userId":"u1"}`))
	})
	mux.HandleFunc("POST /auth/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		fb.hits.Add(1)
		_, _ = w.Write([]byte(`{"sessionToken":"sess-2","provider":"google"}`))
	})
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

type recordingNav struct{ urls []string }

func (n *recordingNav) Navigate(_ context.Context, u string) error {
	n.urls = append(n.urls, u)
	return nil
}

func newTestClient(t *testing.T, fb *fakeBackend, stash Stash) (*Client, *recordingNav) {
	t.Helper()
	nav := &recordingNav{}
	c, err := New(Config{
		BaseURL:     fb.URL,
		APIKey:      testAPIKey,
		RedirectURI: testRedirect,
		Providers: map[ProviderType]ProviderSettings{
			Google: {ClientID: "G1"},
			GitHub: {ClientID: "GH1"},
		},
		Stash:     stash,
		Navigator: nav,
	})
	require.NoError(t, err)
	return c, nav
}

func TestInitiate_GoogleURL(t *testing.T) {
	fb := newFakeBackend(t)
	stash := NewMemoryStash()
	c, nav := newTestClient(t, fb, stash)
	ctx := context.Background()

	raw, err := c.Initiate(ctx, Google)
	require.NoError(t, err)
	require.Equal(t, []string{raw}, nav.urls)
	assert.Equal(t, AwaitingCallback, c.State())

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "G1", q.Get("client_id"))
	assert.Equal(t, testRedirect, q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))

	verifier, ok, _ := stash.Get(ctx, keyVerifier)
	require.True(t, ok)
	assert.Equal(t, pkce.GenerateChallenge(verifier), q.Get("code_challenge"))
	state, _, _ := stash.Get(ctx, keyState)
	assert.Equal(t, state, q.Get("state"))
	assert.NotEqual(t, state, verifier)
}

func TestInitiate_GitHubWithoutPKCE(t *testing.T) {
	fb := newFakeBackend(t)
	stash := NewMemoryStash()
	c, _ := newTestClient(t, fb, stash)
	ctx := context.Background()

	raw, err := c.LoginWithGitHub(ctx)
	require.NoError(t, err)
	u, _ := url.Parse(raw)
	q := u.Query()
	assert.Equal(t, "read:user user:email", q.Get("scope"))
	assert.Equal(t, "true", q.Get("allow_signup"))
	assert.Empty(t, q.Get("code_challenge"))

	_, ok, _ := stash.Get(ctx, keyVerifier)
	assert.False(t, ok)
}

func TestInitiate_MicrosoftConsumersTenant(t *testing.T) {
	fb := newFakeBackend(t)
	nav := &recordingNav{}
	c, err := New(Config{
		BaseURL:     fb.URL,
		APIKey:      testAPIKey,
		RedirectURI: testRedirect,
		Providers:   map[ProviderType]ProviderSettings{Microsoft: {ClientID: "MS1"}},
		Navigator:   nav,
	})
	require.NoError(t, err)

	raw, err := c.Initiate(context.Background(), Microsoft)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/consumers/oauth2/v2.0/authorize", u.Path)
	assert.Equal(t, "openid email profile offline_access", u.Query().Get("scope"))
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
}

func TestAttachPasswordSendsCode(t *testing.T) {
	fb := newFakeBackend(t)
	c, _ := newTestClient(t, fb, NewMemoryStash())

	id, err := c.AttachPassword(context.Background(), "a@b.c", "123456", "secret-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.Equal(t, map[string]string{"email": "a@b.c", "code": "123456", "password": "secret-1"}, fb.lastBody)
}

func TestInitiate_UnknownProvider(t *testing.T) {
	fb := newFakeBackend(t)
	c, nav := newTestClient(t, fb, nil)
	_, err := c.Initiate(context.Background(), Microsoft)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Empty(t, nav.urls)
}

func TestHandleRedirect_Success(t *testing.T) {
	fb := newFakeBackend(t)
	stash := NewMemoryStash()
	c, nav := newTestClient(t, fb, stash)
	ctx := context.Background()

	_, err := c.LoginWithGoogle(ctx)
	require.NoError(t, err)
	u, _ := url.Parse(nav.urls[0])
	verifier, _, _ := stash.Get(ctx, keyVerifier)

	s, err := c.HandleGoogleRedirect(ctx, url.Values{"code": {"abc"}, "state": {u.Query().Get("state")}})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, Authenticated, c.State())

	assert.Equal(t, "abc", fb.lastBody["code"])
	assert.Equal(t, verifier, fb.lastBody["codeVerifier"])
	assert.Equal(t, testRedirect, fb.lastBody["redirectUri"])

	// verifier y state se consumen
	for _, k := range []string{keyVerifier, keyState, keyProvider} {
		_, ok, _ := stash.Get(ctx, k)
		assert.False(t, ok, k)
	}

	me, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, me.Providers)
}

func TestHandleRedirect_StateMismatchMakesNoCall(t *testing.T) {
	fb := newFakeBackend(t)
	stash := NewMemoryStash()
	c, _ := newTestClient(t, fb, stash)
	ctx := context.Background()

	_, err := c.LoginWithGoogle(ctx)
	require.NoError(t, err)

	_, err = c.HandleRedirect(ctx, url.Values{"code": {"abc"}, "state": {"forged"}})
	assert.ErrorIs(t, err, ErrCsrfStateMismatch)
	assert.Equal(t, Failed, c.State())
	assert.Zero(t, fb.hits.Load())

	// el verifier ya se borró: reintentar con el state correcto tampoco sirve
	_, ok, _ := stash.Get(ctx, keyVerifier)
	assert.False(t, ok)
}

func TestHandleRedirect_MissingParams(t *testing.T) {
	fb := newFakeBackend(t)
	c, _ := newTestClient(t, fb, nil)
	ctx := context.Background()

	_, err := c.HandleRedirect(ctx, url.Values{"code": {"abc"}})
	assert.ErrorIs(t, err, ErrMissingOAuthParameters)

	// sin flujo iniciado
	_, err = c.HandleRedirect(ctx, url.Values{"code": {"abc"}, "state": {"s"}})
	assert.ErrorIs(t, err, ErrMissingOAuthParameters)
	assert.Zero(t, fb.hits.Load())
}

func TestHandleRedirect_ProviderDenied(t *testing.T) {
	fb := newFakeBackend(t)
	c, _ := newTestClient(t, fb, nil)
	ctx := context.Background()
	_, err := c.LoginWithGitHub(ctx)
	require.NoError(t, err)

	_, err = c.HandleGitHubRedirect(ctx, url.Values{"error": {"access_denied"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "access_denied", pe.Code)
}

func TestHandleRedirect_WrongProviderWrapper(t *testing.T) {
	fb := newFakeBackend(t)
	stash := NewMemoryStash()
	c, _ := newTestClient(t, fb, stash)
	ctx := context.Background()
	_, err := c.LoginWithGitHub(ctx)
	require.NoError(t, err)

	_, err = c.HandleGoogleRedirect(ctx, url.Values{"code": {"x"}, "state": {"y"}})
	assert.ErrorIs(t, err, ErrMissingOAuthParameters)
	_, ok, _ := stash.Get(ctx, keyState)
	assert.False(t, ok)
}

func TestHandleRedirect_BackendRejects(t *testing.T) {
	fb := newFakeBackend(t)
	c, nav := newTestClient(t, fb, nil)
	ctx := context.Background()
	_, err := c.LoginWithGoogle(ctx)
	require.NoError(t, err)
	u, _ := url.Parse(nav.urls[0])

	_, err = c.HandleRedirect(ctx, url.Values{"code": {"bad"}, "state": {u.Query().Get("state")}})
	var be *BackendAuthenticationFailedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.Status)
	assert.Equal(t, "provider_exchange_failed", be.Code)
	assert.Equal(t, Failed, c.State())

	_, err = c.CurrentSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSignInRefreshLogout(t *testing.T) {
	fb := newFakeBackend(t)
	c, _ := newTestClient(t, fb, nil)
	ctx := context.Background()

	s, err := c.SignInUser(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionToken)

	s, err = c.RefreshSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", s.SessionToken)
	assert.Equal(t, "a@b.c", s.User.Email)

	// sess-2 no es válida para el fake: 401 descarta la sesión local
	_, err = c.GetUser(ctx)
	require.Error(t, err)
	_, err = c.CurrentSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = c.SignInUser(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx, true))
	_, err = c.CurrentSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, Idle, c.State())
}

func TestBoltStash_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stash.db")

	s, err := OpenBoltStash(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = OpenBoltStash(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackendError_NonJSONBody(t *testing.T) {
	e := backendError(502, []byte("bad gateway"))
	assert.Equal(t, "bad gateway", e.Message)
	assert.Empty(t, e.Code)
}
