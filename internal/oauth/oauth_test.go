package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ t ProviderType }

func (s stubProvider) Type() ProviderType { return s.t }
func (s stubProvider) AuthCodeURL(AuthCodeRequest) string { return "" }
func (s stubProvider) Exchange(context.Context, ExchangeRequest) (*Tokens, error) {
	return nil, nil
}
func (s stubProvider) Identify(context.Context, Credentials, *Tokens) (*Identity, error) {
	return nil, nil
}
func (s stubProvider) Refresh(context.Context, Credentials, string) (*Tokens, error) {
	return nil, nil
}

func TestParseProviderType(t *testing.T) {
	p, err := ParseProviderType(" Google ")
	require.NoError(t, err)
	assert.Equal(t, Google, p)

	_, err = ParseProviderType("facebook")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	assert.True(t, Google.SupportsPKCE())
	assert.True(t, Apple.SupportsPKCE())
	assert.False(t, GitHub.SupportsPKCE())
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(stubProvider{Google}, stubProvider{GitHub})
	require.NoError(t, err)

	p, err := r.Get(Google)
	require.NoError(t, err)
	assert.Equal(t, Google, p.Type())

	_, err = r.Get(Apple)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Equal(t, []ProviderType{GitHub, Google}, r.Types())

	_, err = NewRegistry(stubProvider{Google}, stubProvider{Google})
	assert.Error(t, err)
}

func TestPostTokenForm_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "verifier", r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","id_token":"it","expires_in":"3599","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	form := AuthorizationCodeForm(ExchangeRequest{
		Credentials:  Credentials{ClientID: "cid", ClientSecret: "sec"},
		Code:         "the-code",
		CodeVerifier: "verifier",
		RedirectURI:  "https://app/cb",
	})
	tok, err := PostTokenForm(context.Background(), srv.Client(), Google, srv.URL, form)
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	assert.Equal(t, "it", tok.IDToken)
	assert.EqualValues(t, 3599, tok.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(3599*time.Second), tok.Expiry, 5*time.Second)
}

func TestPostTokenForm_Errors(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		grant       string
		unavailable bool
		revoked     bool
		reason      string
	}{
		{name: "invalid grant", status: 400, body: `{"error":"invalid_grant","error_description":"Bad Request"}`, grant: "authorization_code", reason: "Bad Request"},
		{name: "github 200 error", status: 200, body: `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`, grant: "authorization_code", reason: "The code passed is incorrect or expired."},
		{name: "server error", status: 503, body: `upstream down`, grant: "authorization_code", unavailable: true},
		{name: "refresh revoked", status: 400, body: `{"error":"invalid_grant"}`, grant: "refresh_token", revoked: true, reason: "invalid_grant"},
		{name: "nested error", status: 401, body: `{"error":{"code":"unauthorized_client","message":"nope"}}`, grant: "refresh_token", revoked: true, reason: "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			form := RefreshForm(Credentials{ClientID: "cid"}, "rt")
			form.Set("grant_type", tc.grant)
			_, err := PostTokenForm(context.Background(), srv.Client(), Google, srv.URL, form)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProviderExchangeFailed)
			assert.Equal(t, tc.unavailable, errors.Is(err, ErrProviderUnavailable))
			assert.Equal(t, tc.revoked, errors.Is(err, ErrRefreshRevoked))

			var ee *ExchangeError
			require.ErrorAs(t, err, &ee)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, ee.Reason)
			}
		})
	}
}

func TestPostTokenForm_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := PostTokenForm(context.Background(), NewHTTPClient(time.Second), Google, url, RefreshForm(Credentials{ClientID: "c"}, "rt"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrRefreshRevoked)
}

func TestValidateExchange(t *testing.T) {
	ok := ExchangeRequest{Credentials: Credentials{ClientID: "c"}, Code: "x", CodeVerifier: "v", RedirectURI: "https://a/cb"}
	assert.NoError(t, ValidateExchange(Google, ok))

	noVerifier := ok
	noVerifier.CodeVerifier = ""
	assert.ErrorIs(t, ValidateExchange(Google, noVerifier), ErrProviderExchangeFailed)
	assert.NoError(t, ValidateExchange(GitHub, noVerifier))

	noCode := ok
	noCode.Code = ""
	assert.ErrorIs(t, ValidateExchange(Google, noCode), ErrProviderExchangeFailed)
}
