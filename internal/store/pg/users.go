package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

const userCols = `id, tenant_id, email, username, image_url, password_hash, email_verified, otp_hash, otp_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*repository.User, error) {
	var u repository.User
	var pwd, otp *string
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Username, &u.ImageURL,
		&pwd, &u.EmailVerified, &otp, &u.OTPExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = derefStr(pwd)
	u.OTPHash = derefStr(otp)
	return &u, nil
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func insertUser(ctx context.Context, db PgExecQuerier, in repository.CreateUserInput) (*repository.User, error) {
	if in.TenantID == "" {
		return nil, repository.ErrInvalidInput
	}
	q := `
INSERT INTO users (id, tenant_id, email, username, image_url, password_hash, email_verified)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userCols
	u, err := scanUser(db.QueryRow(ctx, q,
		uuid.NewString(), in.TenantID, normEmail(in.Email), in.Username, in.ImageURL,
		nullIfEmpty(in.PasswordHash), in.EmailVerified))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

type userRepo struct{ db PgExecQuerier }

func (r *userRepo) GetByID(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, tenantID, email string) (*repository.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE tenant_id = $1 AND lower(email) = $2 AND email <> ''`,
		tenantID, normEmail(email)))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	return insertUser(ctx, r.db, in)
}

func (r *userRepo) UpdateProfile(ctx context.Context, tenantID, userID, username, imageURL string) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE users SET username = $3, image_url = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, username, imageURL))
}

func (r *userRepo) SetPasswordHash(ctx context.Context, tenantID, userID, hash string) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE users SET password_hash = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, nullIfEmpty(hash)))
}

func (r *userRepo) SetOTP(ctx context.Context, tenantID, userID, hash string, expiresAt time.Time) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE users SET otp_hash = $3, otp_expires_at = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, hash, expiresAt.UTC()))
}

func (r *userRepo) ClearOTP(ctx context.Context, tenantID, userID string, verified bool) error {
	return expectOne(r.db.Exec(ctx, `
UPDATE users SET otp_hash = NULL, otp_expires_at = NULL,
    email_verified = email_verified OR $3, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, verified))
}

// ─── identities ───

type identityRepo struct{ pool *pgxpool.Pool }

const identityCols = `id, user_id, tenant_id, provider, external_id, email, created_at`

func scanIdentity(row interface{ Scan(...any) error }) (*repository.Identity, error) {
	var i repository.Identity
	if err := row.Scan(&i.ID, &i.UserID, &i.TenantID, &i.Provider, &i.ExternalID, &i.Email, &i.CreatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func insertIdentity(ctx context.Context, db PgExecQuerier, tenantID, userID string, in repository.IdentityInput) (*repository.Identity, error) {
	if in.Provider == "" || in.ExternalID == "" {
		return nil, repository.ErrInvalidInput
	}
	q := `
INSERT INTO identities (id, user_id, tenant_id, provider, external_id, email)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + identityCols
	id, err := scanIdentity(db.QueryRow(ctx, q, uuid.NewString(), userID, tenantID, in.Provider, in.ExternalID, normEmail(in.Email)))
	if err != nil {
		return nil, mapErr(err)
	}
	return id, nil
}

func (r *identityRepo) GetByExternalID(ctx context.Context, tenantID, provider, externalID string) (*repository.Identity, error) {
	id, err := scanIdentity(r.pool.QueryRow(ctx,
		`SELECT `+identityCols+` FROM identities WHERE tenant_id = $1 AND provider = $2 AND external_id = $3`,
		tenantID, provider, externalID))
	if err != nil {
		return nil, mapErr(err)
	}
	return id, nil
}

// CreateWithUser inserta usuario e identidad en la misma transacción.
// Una violación de unicidad en cualquiera de los dos aborta todo y devuelve ErrConflict.
func (r *identityRepo) CreateWithUser(ctx context.Context, in repository.CreateUserInput, idIn repository.IdentityInput) (*repository.User, *repository.Identity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := insertUser(ctx, tx, in)
	if err != nil {
		return nil, nil, err
	}
	ident, err := insertIdentity(ctx, tx, in.TenantID, u.ID, idIn)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, mapErr(err)
	}
	return u, ident, nil
}

func (r *identityRepo) Link(ctx context.Context, tenantID, userID string, in repository.IdentityInput) (*repository.Identity, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE tenant_id = $1 AND id = $2)`, tenantID, userID).Scan(&exists)
	if err != nil {
		return nil, mapErr(err)
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return insertIdentity(ctx, r.pool, tenantID, userID, in)
}

func (r *identityRepo) ListByUser(ctx context.Context, tenantID, userID string) ([]repository.Identity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+identityCols+` FROM identities WHERE tenant_id = $1 AND user_id = $2 ORDER BY created_at`,
		tenantID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}
