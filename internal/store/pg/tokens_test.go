package pg

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/migrations/postgres"
)

func TestUpsertTokenSQLIsSingleStatement(t *testing.T) {
	sql := strings.Join(strings.Fields(upsertTokenSQL), " ")
	if !strings.Contains(sql, "ON CONFLICT (user_id, provider) DO UPDATE") {
		t.Fatalf("refresh token write must upsert on the primary key: %s", sql)
	}
	if strings.Contains(strings.ToUpper(sql), "DELETE") {
		t.Fatal("refresh token write must not delete-then-insert")
	}
}

// openTestStore usa TENANTAUTH_TEST_PG_DSN; sin DSN el test se saltea.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TENANTAUTH_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TENANTAUTH_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	st, err := Open(ctx, Config{DSN: dsn, MaxOpenConns: 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.Migrate(ctx, postgres.FS)
	require.NoError(t, err)
	return st
}

func TestTokenReplace_ConcurrentKeepsOneRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	slug := "tok-" + uuid.NewString()[:8]
	tn, err := st.Tenants().Create(ctx, slug, slug)
	require.NoError(t, err)
	u, err := st.Users().Create(ctx, repository.CreateUserInput{TenantID: tn.ID, Email: slug + "@x.com"})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- st.ProviderTokens().Replace(ctx, repository.ProviderRefreshToken{
				UserID: u.ID, Provider: "google", Token: fmt.Sprintf("tok-%d", i), ExpiresAt: exp,
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	list, err := st.ProviderTokens().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].Token, "tok-"))

	require.NoError(t, st.ProviderTokens().Replace(ctx, repository.ProviderRefreshToken{
		UserID: u.ID, Provider: "google", Token: "latest", ExpiresAt: exp,
	}))
	got, err := st.ProviderTokens().Get(ctx, u.ID, "google")
	require.NoError(t, err)
	assert.Equal(t, "latest", got.Token)
}
