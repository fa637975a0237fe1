package tenant

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	"github.com/dropDatabas3/tenantauth/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*Resolver, *memory.Store) {
	t.Helper()
	box, err := secretbox.New(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	st := memory.New()
	return NewResolver(st, box, cache.NewMemory("test:", time.Minute)), st
}

func TestResolveProvider(t *testing.T) {
	ctx := context.Background()
	r, st := newResolver(t)

	acme, acmeKey, err := r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	_, betaKey, err := r.CreateTenant(ctx, "Beta", "beta")
	require.NoError(t, err)
	assert.Len(t, acmeKey, 64)

	require.NoError(t, r.SetProvider(ctx, SetProviderInput{
		TenantID:     acme.ID,
		Provider:     oauth.Google,
		ClientID:     "acme-client",
		ClientSecret: "acme-secret",
		Enabled:      true,
	}))

	// el secret queda sellado en el storage
	row, err := st.ProviderConfigs().Get(ctx, acme.ID, "google")
	require.NoError(t, err)
	assert.NotEqual(t, "acme-secret", row.ClientSecret)

	res, err := r.ResolveProvider(ctx, acmeKey, oauth.Google)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, res.Tenant.ID)
	assert.Equal(t, "acme-client", res.Config.ClientID)
	assert.Equal(t, "acme-secret", res.Config.ClientSecret)

	_, err = r.ResolveProvider(ctx, betaKey, oauth.Google)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = r.ResolveProvider(ctx, "not-a-key", oauth.Google)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = r.ResolveProvider(ctx, "", oauth.Google)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestResolveProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	acme, key, err := r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	require.NoError(t, r.SetProvider(ctx, SetProviderInput{TenantID: acme.ID, Provider: oauth.GitHub, ClientID: "gh", ClientSecret: "s", Enabled: true}))

	require.NoError(t, r.ToggleProvider(ctx, acme.ID, oauth.GitHub, false))
	_, err = r.ResolveProvider(ctx, key, oauth.GitHub)
	assert.ErrorIs(t, err, ErrProviderDisabled)

	require.NoError(t, r.ToggleProvider(ctx, acme.ID, oauth.GitHub, true))
	_, err = r.ResolveProvider(ctx, key, oauth.GitHub)
	assert.NoError(t, err)

	assert.ErrorIs(t, r.ToggleProvider(ctx, acme.ID, oauth.Apple, true), ErrProviderNotConfigured)
}

func TestRevokeAndRotateAPIKey(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	acme, key, err := r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)

	// primer resolve llena el cache
	_, err = r.ResolveTenant(ctx, key)
	require.NoError(t, err)

	newKey, err := r.RotateAPIKey(ctx, acme.ID, key)
	require.NoError(t, err)
	assert.NotEqual(t, key, newKey)

	_, err = r.ResolveTenant(ctx, key)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	got, err := r.ResolveTenant(ctx, newKey)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)

	assert.ErrorIs(t, r.RevokeAPIKey(ctx, "other-tenant", newKey), ErrInvalidAPIKey)
}

func TestStaticFallbackOnlyWithEmptyKey(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	st, err := r.EnsureTenant(ctx, "Default", "default")
	require.NoError(t, err)
	again, err := r.EnsureTenant(ctx, "Default", "default")
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)

	r.WithStatic(&Static{
		Tenant: *st,
		Providers: map[oauth.ProviderType]ProviderConfig{
			oauth.Google: {Provider: oauth.Google, ClientID: "static-id", ClientSecret: "static-secret", Enabled: true},
		},
	})

	res, err := r.ResolveProvider(ctx, "", oauth.Google)
	require.NoError(t, err)
	assert.Equal(t, "static-id", res.Config.ClientID)

	_, err = r.ResolveProvider(ctx, "", oauth.GitHub)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	// una key inválida nunca cae al fallback
	_, err = r.ResolveProvider(ctx, "bogus", oauth.Google)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestCreateTenantValidation(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	_, _, err := r.CreateTenant(ctx, "x", "Bad Slug!")
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, _, err = r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	_, _, err = r.CreateTenant(ctx, "Acme 2", "acme")
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := r.Lookup(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)
	_, err = r.Lookup(ctx, "nobody")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestListProvidersMasksSecret(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	acme, _, err := r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)
	require.NoError(t, r.SetProvider(ctx, SetProviderInput{TenantID: acme.ID, Provider: oauth.Google, ClientID: "c", ClientSecret: "s", Enabled: true, RedirectURIs: []string{"https://acme.app/cb"}}))

	list, err := r.ListProviders(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "********", list[0].ClientSecret)
	assert.True(t, list[0].AllowsRedirect("https://acme.app/cb"))
	assert.False(t, list[0].AllowsRedirect("https://evil.app/cb"))

	creds, err := r.ProviderCredentials(ctx, acme.ID, oauth.Google)
	require.NoError(t, err)
	assert.Equal(t, "s", creds.ClientSecret)
}

func TestSetProviderRejectsBadRedirectURI(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)
	acme, _, err := r.CreateTenant(ctx, "Acme", "acme")
	require.NoError(t, err)

	for _, uri := range []string{"http://acme.app/cb", "https://acme.app/cb#x", "/cb"} {
		err := r.SetProvider(ctx, SetProviderInput{TenantID: acme.ID, Provider: oauth.Google, ClientID: "c", ClientSecret: "s", RedirectURIs: []string{uri}})
		assert.ErrorIs(t, err, repository.ErrInvalidInput, uri)
	}

	list, err := r.ListProviders(ctx, acme.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
