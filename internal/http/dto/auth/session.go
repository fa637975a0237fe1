package auth

import "time"

// MeResponse es GET /auth/me.
type MeResponse struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenantId"`
	Email         string   `json:"email"`
	Username      string   `json:"username,omitempty"`
	Image         string   `json:"image,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	HasPassword   bool     `json:"hasPassword"`
	Providers     []string `json:"providers"`
}

// LogoutRequest: everywhere revoca además todos los refresh tokens de provider.
type LogoutRequest struct {
	Everywhere bool `json:"everywhere,omitempty"`
}

type LogoutResponse struct {
	OK      bool `json:"ok"`
	Revoked int  `json:"revoked,omitempty"`
}

type RefreshRequest struct {
	UserID string `json:"userId"`
	APIKey string `json:"apiKey,omitempty"`
}

type RefreshResponse struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Provider     string    `json:"provider"`
}
