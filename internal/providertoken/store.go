// Package providertoken persiste los refresh tokens de providers externos (sellados)
// y los usa para renovar sesiones.
package providertoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
)

// DefaultExpiry cuando el provider no informa vencimiento del refresh token.
const DefaultExpiry = 90 * 24 * time.Hour

var ErrNotFound = errors.New("provider refresh token not found")

// Store envuelve el repositorio sellando/abriendo el token.
type Store struct {
	repo repository.ProviderTokenRepository
	box  *secretbox.Box
	ttl  time.Duration
	now  func() time.Time
}

func New(repo repository.ProviderTokenRepository, box *secretbox.Box) *Store {
	return &Store{repo: repo, box: box, ttl: DefaultExpiry, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// StoreRefreshToken reemplaza el token de (user, provider). expiresAt cero usa DefaultExpiry.
func (s *Store) StoreRefreshToken(ctx context.Context, userID string, p oauth.ProviderType, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(s.ttl)
	}
	sealed, err := s.box.Seal(token)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}
	if err := s.repo.Replace(ctx, repository.ProviderRefreshToken{
		UserID:    userID,
		Provider:  string(p),
		Token:     sealed,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// GetValidRefreshToken devuelve ErrNotFound si no hay token o venció. Los vencidos se borran.
func (s *Store) GetValidRefreshToken(ctx context.Context, userID string, p oauth.ProviderType) (string, error) {
	row, err := s.repo.Get(ctx, userID, string(p))
	if repository.IsNotFound(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s.open(ctx, row)
}

// Latest devuelve el token válido más reciente del usuario, de cualquier provider.
func (s *Store) Latest(ctx context.Context, userID string) (oauth.ProviderType, string, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	for i := range rows {
		tok, err := s.open(ctx, &rows[i])
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		return oauth.ProviderType(rows[i].Provider), tok, nil
	}
	return "", "", ErrNotFound
}

func (s *Store) open(ctx context.Context, row *repository.ProviderRefreshToken) (string, error) {
	if !s.now().Before(row.ExpiresAt) {
		if err := s.repo.Delete(ctx, row.UserID, row.Provider); err != nil {
			logger.From(ctx).Warn("expired refresh token cleanup failed",
				logger.Layer("service"), logger.UserID(row.UserID), logger.Provider(row.Provider), logger.Err(err))
		}
		return "", ErrNotFound
	}
	tok, err := s.box.Open(row.Token)
	if err != nil {
		return "", fmt.Errorf("open refresh token: %w", err)
	}
	return tok, nil
}

// Revoke es idempotente.
func (s *Store) Revoke(ctx context.Context, userID string, p oauth.ProviderType) error {
	return s.repo.Delete(ctx, userID, string(p))
}

// RevokeAll borra todos los tokens del usuario (logout everywhere).
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	return s.repo.DeleteAllByUser(ctx, userID)
}
