package auth

type OTPSendRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"apiKey,omitempty"`
}

type OTPSendResponse struct {
	Sent bool `json:"sent"`
}

type OTPVerifyRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	APIKey string `json:"apiKey,omitempty"`
}

type OTPVerifyResponse struct {
	Verified bool   `json:"verified"`
	UserID   string `json:"userId,omitempty"`
}
