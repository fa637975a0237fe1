package auth

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	// Code es el OTP que prueba el email cuando la cuenta ya existe por un provider social.
	Code   string `json:"code,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"apiKey,omitempty"`
}
