package pg

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type tenantRepo struct{ db PgExecQuerier }

func (r *tenantRepo) Create(ctx context.Context, name, slug string) (*repository.Tenant, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, repository.ErrInvalidInput
	}
	const q = `
INSERT INTO tenants (id, slug, name)
VALUES ($1, $2, $3)
RETURNING id, slug, name, created_at`
	var t repository.Tenant
	err := r.db.QueryRow(ctx, q, uuid.NewString(), slug, name).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *tenantRepo) getOne(ctx context.Context, q string, arg any) (*repository.Tenant, error) {
	var t repository.Tenant
	if err := r.db.QueryRow(ctx, q, arg).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	return r.getOne(ctx, `SELECT id, slug, name, created_at FROM tenants WHERE id = $1`, id)
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	return r.getOne(ctx, `SELECT id, slug, name, created_at FROM tenants WHERE slug = $1`, slug)
}

func (r *tenantRepo) List(ctx context.Context) ([]repository.Tenant, error) {
	rows, err := r.db.Query(ctx, `SELECT id, slug, name, created_at FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.Tenant
	for rows.Next() {
		var t repository.Tenant
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *tenantRepo) GetByAPIKeyHash(ctx context.Context, keyHash string) (*repository.Tenant, error) {
	const q = `
SELECT t.id, t.slug, t.name, t.created_at
FROM tenant_api_keys k
JOIN tenants t ON t.id = k.tenant_id
WHERE k.key_hash = $1 AND k.revoked_at IS NULL`
	return r.getOne(ctx, q, keyHash)
}

func (r *tenantRepo) AddAPIKey(ctx context.Context, tenantID, keyHash, label string) (*repository.APIKey, error) {
	const q = `
INSERT INTO tenant_api_keys (id, tenant_id, key_hash, label)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, key_hash, label, created_at, revoked_at`
	var k repository.APIKey
	err := r.db.QueryRow(ctx, q, uuid.NewString(), tenantID, keyHash, label).
		Scan(&k.ID, &k.TenantID, &k.KeyHash, &k.Label, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &k, nil
}

func (r *tenantRepo) RevokeAPIKey(ctx context.Context, tenantID, keyHash string) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE tenant_api_keys SET revoked_at = NOW() WHERE tenant_id = $1 AND key_hash = $2 AND revoked_at IS NULL`,
		tenantID, keyHash))
}

// ─── provider configs ───

type providerRepo struct{ db PgExecQuerier }

const providerCols = `tenant_id, provider, client_id, client_secret_enc, enabled, redirect_uris, updated_at`

func scanProvider(row interface{ Scan(...any) error }) (*repository.ProviderConfig, error) {
	var c repository.ProviderConfig
	if err := row.Scan(&c.TenantID, &c.Provider, &c.ClientID, &c.ClientSecret, &c.Enabled, &c.RedirectURIs, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *providerRepo) Get(ctx context.Context, tenantID, provider string) (*repository.ProviderConfig, error) {
	c, err := scanProvider(r.db.QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider_configs WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider))
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *providerRepo) Upsert(ctx context.Context, c repository.ProviderConfig) error {
	if c.TenantID == "" || c.Provider == "" {
		return repository.ErrInvalidInput
	}
	uris := c.RedirectURIs
	if uris == nil {
		uris = []string{}
	}
	const q = `
INSERT INTO provider_configs (tenant_id, provider, client_id, client_secret_enc, enabled, redirect_uris, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (tenant_id, provider) DO UPDATE SET
    client_id = EXCLUDED.client_id,
    client_secret_enc = EXCLUDED.client_secret_enc,
    enabled = EXCLUDED.enabled,
    redirect_uris = EXCLUDED.redirect_uris,
    updated_at = NOW()`
	_, err := r.db.Exec(ctx, q, c.TenantID, c.Provider, c.ClientID, c.ClientSecret, c.Enabled, uris)
	return mapErr(err)
}

func (r *providerRepo) SetEnabled(ctx context.Context, tenantID, provider string, enabled bool) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE provider_configs SET enabled = $3, updated_at = NOW() WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider, enabled))
}

func (r *providerRepo) List(ctx context.Context, tenantID string) ([]repository.ProviderConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+providerCols+` FROM provider_configs WHERE tenant_id = $1 ORDER BY provider`, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []repository.ProviderConfig
	for rows.Next() {
		c, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
