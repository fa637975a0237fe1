// Package auth contiene los DTOs de request/response de /auth.
package auth

import "time"

// CallbackRequest llega a POST /auth/{provider}/callback.
// APIKey en el body solo se usa si no vino X-API-Key.
type CallbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	RedirectURI  string `json:"redirectUri"`
	APIKey       string `json:"apiKey,omitempty"`
}

// User es la vista pública del usuario en respuestas de login.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// SessionResponse es la respuesta de cualquier login exitoso.
type SessionResponse struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}
