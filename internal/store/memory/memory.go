// Package memory implementa repository.Store en memoria.
// Pensado para dev y tests: respeta los mismos invariantes de unicidad que el schema SQL.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type providerKey struct{ tenantID, provider string }
type emailKey struct{ tenantID, email string }
type identityKey struct{ tenantID, provider, externalID string }
type tokenKey struct{ userID, provider string }

// Store guarda todo bajo un único mutex; las operaciones compuestas son atómicas.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	tenants    map[string]*repository.Tenant
	slugs      map[string]string
	apiKeys    map[string]*repository.APIKey
	providers  map[providerKey]*repository.ProviderConfig
	users      map[string]*repository.User
	emails     map[emailKey]string
	identities map[identityKey]*repository.Identity
	tokens     map[tokenKey]*repository.ProviderRefreshToken
}

var _ repository.Store = (*Store)(nil)

// New crea un store vacío.
func New() *Store {
	return &Store{
		now:        time.Now,
		tenants:    map[string]*repository.Tenant{},
		slugs:      map[string]string{},
		apiKeys:    map[string]*repository.APIKey{},
		providers:  map[providerKey]*repository.ProviderConfig{},
		users:      map[string]*repository.User{},
		emails:     map[emailKey]string{},
		identities: map[identityKey]*repository.Identity{},
		tokens:     map[tokenKey]*repository.ProviderRefreshToken{},
	}
}

// WithClock reemplaza el reloj usado para timestamps (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) Tenants() repository.TenantRepository                 { return tenantRepo{s} }
func (s *Store) ProviderConfigs() repository.ProviderConfigRepository { return providerRepo{s} }
func (s *Store) Users() repository.UserRepository                     { return userRepo{s} }
func (s *Store) Identities() repository.IdentityRepository            { return identityRepo{s} }
func (s *Store) ProviderTokens() repository.ProviderTokenRepository   { return tokenRepo{s} }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// ─── Tenants ───

type tenantRepo struct{ s *Store }

func (r tenantRepo) Create(_ context.Context, name, slug string) (*repository.Tenant, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.slugs[slug]; ok {
		return nil, repository.ErrConflict
	}
	t := &repository.Tenant{ID: uuid.NewString(), Slug: slug, Name: name, CreatedAt: r.s.now().UTC()}
	r.s.tenants[t.ID] = t
	r.s.slugs[slug] = t.ID
	cp := *t
	return &cp, nil
}

func (r tenantRepo) GetByID(_ context.Context, id string) (*repository.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	r.s.mu.RLock()
	id, ok := r.s.slugs[slug]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r tenantRepo) List(context.Context) ([]repository.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r tenantRepo) GetByAPIKeyHash(ctx context.Context, keyHash string) (*repository.Tenant, error) {
	r.s.mu.RLock()
	k, ok := r.s.apiKeys[keyHash]
	r.s.mu.RUnlock()
	if !ok || k.RevokedAt != nil {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, k.TenantID)
}

func (r tenantRepo) AddAPIKey(_ context.Context, tenantID, keyHash, label string) (*repository.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tenants[tenantID]; !ok {
		return nil, repository.ErrNotFound
	}
	if _, ok := r.s.apiKeys[keyHash]; ok {
		return nil, repository.ErrConflict
	}
	k := &repository.APIKey{ID: uuid.NewString(), TenantID: tenantID, KeyHash: keyHash, Label: label, CreatedAt: r.s.now().UTC()}
	r.s.apiKeys[keyHash] = k
	cp := *k
	return &cp, nil
}

func (r tenantRepo) RevokeAPIKey(_ context.Context, tenantID, keyHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[keyHash]
	if !ok || k.TenantID != tenantID {
		return repository.ErrNotFound
	}
	now := r.s.now().UTC()
	k.RevokedAt = &now
	return nil
}

// ─── Provider configs ───

type providerRepo struct{ s *Store }

func (r providerRepo) Get(_ context.Context, tenantID, provider string) (*repository.ProviderConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.providers[providerKey{tenantID, provider}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyConfig(c), nil
}

func (r providerRepo) Upsert(_ context.Context, cfg repository.ProviderConfig) error {
	if cfg.TenantID == "" || cfg.Provider == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tenants[cfg.TenantID]; !ok {
		return repository.ErrNotFound
	}
	cfg.UpdatedAt = r.s.now().UTC()
	r.s.providers[providerKey{cfg.TenantID, cfg.Provider}] = copyConfig(&cfg)
	return nil
}

func (r providerRepo) SetEnabled(_ context.Context, tenantID, provider string, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.providers[providerKey{tenantID, provider}]
	if !ok {
		return repository.ErrNotFound
	}
	c.Enabled = enabled
	c.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r providerRepo) List(_ context.Context, tenantID string) ([]repository.ProviderConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.ProviderConfig
	for k, c := range r.s.providers {
		if k.tenantID == tenantID {
			out = append(out, *copyConfig(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func copyConfig(c *repository.ProviderConfig) *repository.ProviderConfig {
	cp := *c
	cp.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	return &cp
}

// ─── Users ───

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, tenantID, userID string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, tenantID, email string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[emailKey{tenantID, normEmail(email)}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(r.s.users[id]), nil
}

func (r userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.s.insertUserLocked(in)
	if err != nil {
		return nil, err
	}
	return copyUser(u), nil
}

// insertUserLocked asume r.s.mu tomado en escritura.
func (s *Store) insertUserLocked(in repository.CreateUserInput) (*repository.User, error) {
	if in.TenantID == "" {
		return nil, repository.ErrInvalidInput
	}
	if _, ok := s.tenants[in.TenantID]; !ok {
		return nil, repository.ErrNotFound
	}
	email := normEmail(in.Email)
	if email != "" {
		if _, dup := s.emails[emailKey{in.TenantID, email}]; dup {
			return nil, repository.ErrConflict
		}
	}
	now := s.now().UTC()
	u := &repository.User{
		ID:            uuid.NewString(),
		TenantID:      in.TenantID,
		Email:         email,
		Username:      in.Username,
		ImageURL:      in.ImageURL,
		PasswordHash:  in.PasswordHash,
		EmailVerified: in.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[u.ID] = u
	if email != "" {
		s.emails[emailKey{in.TenantID, email}] = u.ID
	}
	return u, nil
}

func (r userRepo) mutate(tenantID, userID string, fn func(u *repository.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok || u.TenantID != tenantID {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r userRepo) UpdateProfile(_ context.Context, tenantID, userID, username, imageURL string) error {
	return r.mutate(tenantID, userID, func(u *repository.User) {
		u.Username = username
		u.ImageURL = imageURL
	})
}

func (r userRepo) SetPasswordHash(_ context.Context, tenantID, userID, hash string) error {
	return r.mutate(tenantID, userID, func(u *repository.User) { u.PasswordHash = hash })
}

func (r userRepo) SetOTP(_ context.Context, tenantID, userID, hash string, expiresAt time.Time) error {
	return r.mutate(tenantID, userID, func(u *repository.User) {
		u.OTPHash = hash
		exp := expiresAt.UTC()
		u.OTPExpiresAt = &exp
	})
}

func (r userRepo) ClearOTP(_ context.Context, tenantID, userID string, verified bool) error {
	return r.mutate(tenantID, userID, func(u *repository.User) {
		u.OTPHash = ""
		u.OTPExpiresAt = nil
		if verified {
			u.EmailVerified = true
		}
	})
}

func copyUser(u *repository.User) *repository.User {
	cp := *u
	if u.OTPExpiresAt != nil {
		t := *u.OTPExpiresAt
		cp.OTPExpiresAt = &t
	}
	return &cp
}

// ─── Identities ───

type identityRepo struct{ s *Store }

func (r identityRepo) GetByExternalID(_ context.Context, tenantID, provider, externalID string) (*repository.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.identities[identityKey{tenantID, provider, externalID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (r identityRepo) CreateWithUser(_ context.Context, in repository.CreateUserInput, idIn repository.IdentityInput) (*repository.User, *repository.Identity, error) {
	if idIn.Provider == "" || idIn.ExternalID == "" {
		return nil, nil, repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.identities[identityKey{in.TenantID, idIn.Provider, idIn.ExternalID}]; dup {
		return nil, nil, repository.ErrConflict
	}
	u, err := r.s.insertUserLocked(in)
	if err != nil {
		return nil, nil, err
	}
	ident := r.s.insertIdentityLocked(in.TenantID, u.ID, idIn)
	cp := *ident
	return copyUser(u), &cp, nil
}

func (r identityRepo) Link(_ context.Context, tenantID, userID string, idIn repository.IdentityInput) (*repository.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	if _, dup := r.s.identities[identityKey{tenantID, idIn.Provider, idIn.ExternalID}]; dup {
		return nil, repository.ErrConflict
	}
	ident := r.s.insertIdentityLocked(tenantID, userID, idIn)
	cp := *ident
	return &cp, nil
}

func (s *Store) insertIdentityLocked(tenantID, userID string, in repository.IdentityInput) *repository.Identity {
	ident := &repository.Identity{
		ID:         uuid.NewString(),
		UserID:     userID,
		TenantID:   tenantID,
		Provider:   in.Provider,
		ExternalID: in.ExternalID,
		Email:      normEmail(in.Email),
		CreatedAt:  s.now().UTC(),
	}
	s.identities[identityKey{tenantID, in.Provider, in.ExternalID}] = ident
	return ident
}

func (r identityRepo) ListByUser(_ context.Context, tenantID, userID string) ([]repository.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Identity
	for _, id := range r.s.identities {
		if id.TenantID == tenantID && id.UserID == userID {
			out = append(out, *id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Provider refresh tokens ───

type tokenRepo struct{ s *Store }

func (r tokenRepo) Replace(_ context.Context, t repository.ProviderRefreshToken) error {
	if t.UserID == "" || t.Provider == "" || t.Token == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := tokenKey{t.UserID, t.Provider}
	delete(r.s.tokens, k)
	t.CreatedAt = r.s.now().UTC()
	r.s.tokens[k] = &t
	return nil
}

func (r tokenRepo) Get(_ context.Context, userID, provider string) (*repository.ProviderRefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[tokenKey{userID, provider}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r tokenRepo) Delete(_ context.Context, userID, provider string) error {
	r.s.mu.Lock()
	delete(r.s.tokens, tokenKey{userID, provider})
	r.s.mu.Unlock()
	return nil
}

func (r tokenRepo) DeleteAllByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for k := range r.s.tokens {
		if k.userID == userID {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r tokenRepo) ListByUser(_ context.Context, userID string) ([]repository.ProviderRefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.ProviderRefreshToken
	for k, t := range r.s.tokens {
		if k.userID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
