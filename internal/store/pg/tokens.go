package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type tokenRepo struct{ pool *pgxpool.Pool }

const tokenCols = `user_id, provider, token_enc, expires_at, created_at`

func scanToken(row interface{ Scan(...any) error }) (*repository.ProviderRefreshToken, error) {
	var t repository.ProviderRefreshToken
	if err := row.Scan(&t.UserID, &t.Provider, &t.Token, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// upsertTokenSQL: un solo statement, así dos callbacks concurrentes del mismo
// (user, provider) no chocan en la PK; gana el último en escribir.
const upsertTokenSQL = `INSERT INTO provider_refresh_tokens (user_id, provider, token_enc, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, provider) DO UPDATE
SET token_enc = EXCLUDED.token_enc, expires_at = EXCLUDED.expires_at, created_at = NOW()`

// Replace deja exactamente un token por (user, provider).
func (r *tokenRepo) Replace(ctx context.Context, t repository.ProviderRefreshToken) error {
	if t.UserID == "" || t.Provider == "" || t.Token == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.pool.Exec(ctx, upsertTokenSQL, t.UserID, t.Provider, t.Token, t.ExpiresAt.UTC())
	return mapErr(err)
}

func (r *tokenRepo) Get(ctx context.Context, userID, provider string) (*repository.ProviderRefreshToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM provider_refresh_tokens WHERE user_id = $1 AND provider = $2`, userID, provider))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *tokenRepo) Delete(ctx context.Context, userID, provider string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider_refresh_tokens WHERE user_id = $1 AND provider = $2`, userID, provider)
	return mapErr(err)
}

func (r *tokenRepo) DeleteAllByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM provider_refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) ListByUser(ctx context.Context, userID string) ([]repository.ProviderRefreshToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tokenCols+` FROM provider_refresh_tokens WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.ProviderRefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
