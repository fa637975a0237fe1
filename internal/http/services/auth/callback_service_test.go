package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/cache"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/oauth/oauthmock"
	"github.com/dropDatabas3/tenantauth/internal/providertoken"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	"github.com/dropDatabas3/tenantauth/internal/store/memory"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const cbRedirect = "https://app.example.com/cb"

type fixture struct {
	svc      CallbackService
	provider *oauthmock.MockProvider
	store    *memory.Store
	tokens   *providertoken.Store
	sessions *jwt.SessionIssuer
	apiKey   string
	tenantID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	prov := oauthmock.NewMockProvider(ctrl)
	prov.EXPECT().Type().Return(oauth.GitHub).AnyTimes()
	registry, err := oauth.NewRegistry(prov)
	require.NoError(t, err)

	st := memory.New()
	box, err := secretbox.New(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	res := tenant.NewResolver(st, box, cache.NewMemory("t", time.Minute))
	tn, key, err := res.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	require.NoError(t, res.SetProvider(ctx, tenant.SetProviderInput{
		TenantID: tn.ID, Provider: oauth.GitHub, ClientID: "gh-acme", ClientSecret: "gh-secret", Enabled: true,
	}))

	sessions, err := jwt.NewSessionIssuer("test", bytes.Repeat([]byte{1}, 32), time.Hour)
	require.NoError(t, err)
	tokens := providertoken.New(st.ProviderTokens(), box)

	return &fixture{
		svc: NewCallbackService(Deps{
			Tenants:  res,
			Registry: registry,
			Users:    identity.NewService(st, identity.Options{}),
			Tokens:   tokens,
			Sessions: sessions,
		}),
		provider: prov,
		store:    st,
		tokens:   tokens,
		sessions: sessions,
		apiKey:   key,
		tenantID: tn.ID,
	}
}

func TestCallback_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creds := oauth.Credentials{ClientID: "gh-acme", ClientSecret: "gh-secret"}
	tok := &oauth.Tokens{AccessToken: "gho_x", RefreshToken: "ghr_y"}
	gomock.InOrder(
		f.provider.EXPECT().Exchange(gomock.Any(), oauth.ExchangeRequest{
			Credentials: creds, Code: "the-code", RedirectURI: cbRedirect,
		}).Return(tok, nil),
		f.provider.EXPECT().Identify(gomock.Any(), creds, tok).Return(&oauth.Identity{
			Provider: oauth.GitHub, Subject: "1234", Email: "dev@acme.com", EmailVerified: true, Name: "Dev",
		}, nil),
	)

	out, err := f.svc.Callback(ctx, "GitHub", f.apiKey, dto.CallbackRequest{Code: " the-code ", RedirectURI: cbRedirect})
	require.NoError(t, err)
	assert.Equal(t, "dev@acme.com", out.User.Email)
	assert.Equal(t, "Dev", out.User.Name)

	claims, err := f.sessions.Verify(out.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, claims.UserID)
	assert.Equal(t, f.tenantID, claims.TenantID)

	rt, err := f.tokens.GetValidRefreshToken(ctx, out.User.ID, oauth.GitHub)
	require.NoError(t, err)
	assert.Equal(t, "ghr_y", rt)
}

func TestCallback_InvalidKeyNeverExchanges(t *testing.T) {
	f := newFixture(t)
	// Sin EXPECT de Exchange: cualquier llamada falla el test.
	_, err := f.svc.Callback(context.Background(), "github", "wrong-key", dto.CallbackRequest{Code: "c", RedirectURI: cbRedirect})
	assert.ErrorIs(t, err, tenant.ErrInvalidAPIKey)
}

func TestCallback_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Callback(context.Background(), "github", f.apiKey, dto.CallbackRequest{})
	require.ErrorIs(t, err, ErrMissingFields)

	var mf *MissingFieldsError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, []string{"code", "redirectUri"}, mf.Fields)
}

func TestCallback_IdentifyFailureCreatesNoUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.provider.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(&oauth.Tokens{AccessToken: "x"}, nil)
	f.provider.EXPECT().Identify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, oauth.ErrIdentityVerificationFailed)

	_, err := f.svc.Callback(ctx, "github", f.apiKey, dto.CallbackRequest{Code: "c", RedirectURI: cbRedirect})
	require.ErrorIs(t, err, oauth.ErrIdentityVerificationFailed)

	_, err = f.store.Users().GetByEmail(ctx, f.tenantID, "dev@acme.com")
	assert.Error(t, err)
}

func TestCallback_ExchangeErrorPropagates(t *testing.T) {
	f := newFixture(t)
	exErr := &oauth.ExchangeError{Provider: oauth.GitHub, Status: 400, Code: "bad_verification_code"}
	f.provider.EXPECT().Exchange(gomock.Any(), gomock.Any()).Return(nil, exErr)

	_, err := f.svc.Callback(context.Background(), "github", f.apiKey, dto.CallbackRequest{Code: "c", RedirectURI: cbRedirect})
	assert.ErrorIs(t, err, oauth.ErrProviderExchangeFailed)
	assert.False(t, errors.Is(err, oauth.ErrProviderUnavailable))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "unavailable", outcome(&oauth.ExchangeError{Temporary: true}))
	assert.Equal(t, "rejected", outcome(tenant.ErrInvalidAPIKey))
	assert.Equal(t, "error", outcome(errors.New("db down")))
}
