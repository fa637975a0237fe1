package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGitHub(t *testing.T, emails string, userStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good" {
			_, _ = w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"gho_abc","token_type":"bearer","scope":"read:user,user:email"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_abc", r.Header.Get("Authorization"))
		if userStatus != 0 {
			w.WriteHeader(userStatus)
			return
		}
		_, _ = w.Write([]byte(`{"id":583231,"login":"octocat","name":"","avatar_url":"https://avatars/u/583231","email":"public@octo.cat"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, _ *http.Request) {
		if emails == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(emails))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProvider(srv *httptest.Server) *Provider {
	return New(srv.Client(), &Endpoints{
		AuthURL:    srv.URL + "/login/oauth/authorize",
		TokenURL:   srv.URL + "/login/oauth/access_token",
		APIBaseURL: srv.URL + "/",
	})
}

func TestAuthCodeURL(t *testing.T) {
	p := New(nil, nil)
	u, err := url.Parse(p.AuthCodeURL(oauth.AuthCodeRequest{ClientID: "cid", RedirectURI: "https://app/cb", State: "st", Challenge: "ignored"}))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "read:user user:email", q.Get("scope"))
	assert.Equal(t, "true", q.Get("allow_signup"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Empty(t, q.Get("code_challenge"))
}

func TestExchangeAndIdentify(t *testing.T) {
	srv := fakeGitHub(t, `[
		{"email":"old@octo.cat","verified":false,"primary":false},
		{"email":"work@octo.cat","verified":true,"primary":false},
		{"email":"Main@Octo.cat","verified":true,"primary":true}
	]`, 0)
	p := newProvider(srv)
	creds := oauth.Credentials{ClientID: "cid", ClientSecret: "sec"}

	tok, err := p.Exchange(context.Background(), oauth.ExchangeRequest{Credentials: creds, Code: "good", CodeVerifier: "dropped", RedirectURI: "https://app/cb"})
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", tok.AccessToken)

	id, err := p.Identify(context.Background(), creds, tok)
	require.NoError(t, err)
	assert.Equal(t, "583231", id.Subject)
	assert.Equal(t, "main@octo.cat", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "octocat", id.Name)
	assert.Equal(t, oauth.GitHub, id.Provider)
}

func TestExchangeBadCode(t *testing.T) {
	srv := fakeGitHub(t, "", 0)
	_, err := newProvider(srv).Exchange(context.Background(), oauth.ExchangeRequest{
		Credentials: oauth.Credentials{ClientID: "cid"},
		Code:        "bad",
		RedirectURI: "https://app/cb",
	})
	assert.ErrorIs(t, err, oauth.ErrProviderExchangeFailed)
	assert.NotErrorIs(t, err, oauth.ErrProviderUnavailable)
}

func TestIdentifyFallsBackToProfileEmail(t *testing.T) {
	srv := fakeGitHub(t, "", 0)
	id, err := newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{AccessToken: "gho_abc"})
	require.NoError(t, err)
	assert.Equal(t, "public@octo.cat", id.Email)
	assert.False(t, id.EmailVerified)
}

func TestIdentifyErrors(t *testing.T) {
	srv := fakeGitHub(t, "", http.StatusUnauthorized)
	_, err := newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{AccessToken: "gho_abc"})
	assert.ErrorIs(t, err, oauth.ErrIdentityVerificationFailed)

	srv = fakeGitHub(t, "", http.StatusBadGateway)
	_, err = newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{AccessToken: "gho_abc"})
	assert.ErrorIs(t, err, oauth.ErrProviderUnavailable)

	_, err = newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{})
	assert.ErrorIs(t, err, oauth.ErrIdentityVerificationFailed)
}

func TestPickEmail(t *testing.T) {
	srv := fakeGitHub(t, `[{"email":"x@a.com","verified":false},{"email":"y@a.com","verified":true}]`, 0)
	id, err := newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{AccessToken: "gho_abc"})
	require.NoError(t, err)
	assert.Equal(t, "y@a.com", id.Email)
	assert.True(t, id.EmailVerified)

	srv = fakeGitHub(t, `[{"email":"x@a.com","verified":false}]`, 0)
	id, err = newProvider(srv).Identify(context.Background(), oauth.Credentials{}, &oauth.Tokens{AccessToken: "gho_abc"})
	require.NoError(t, err)
	assert.Equal(t, "x@a.com", id.Email)
	assert.False(t, id.EmailVerified)
}
