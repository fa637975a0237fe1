package client

import (
	"context"
	"errors"
	"net/http"
	"time"
)

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	s, err := c.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	return s.SessionToken, nil
}

// GetUser consulta /auth/me con la sesión guardada. Un 401 descarta la sesión.
func (c *Client) GetUser(ctx context.Context) (*Me, error) {
	tok, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	var me Me
	if err := c.do(ctx, http.MethodGet, "/auth/me", tok, nil, &me); err != nil {
		var be *BackendAuthenticationFailedError
		if errors.As(err, &be) && be.IsUnauthorized() {
			_ = c.clearSession(ctx)
		}
		return nil, err
	}
	return &me, nil
}

// Logout cierra la sesión en el backend y la borra localmente aunque el backend falle.
// everywhere también revoca los refresh tokens de proveedor del usuario.
func (c *Client) Logout(ctx context.Context, everywhere bool) error {
	tok, err := c.sessionToken(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	body := map[string]bool{"everywhere": everywhere}
	callErr := c.do(ctx, http.MethodPost, "/auth/logout", tok, body, nil)
	if err := c.clearSession(ctx); err != nil {
		return err
	}
	c.setState(Idle)
	return callErr
}

// RegisterUser crea un usuario con password. Devuelve el id.
func (c *Client) RegisterUser(ctx context.Context, email, password, username string) (string, error) {
	in := map[string]string{"email": email, "password": password, "username": username}
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/password/register", "", in, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// AttachPassword agrega password a una cuenta creada por un provider social.
// code es el OTP recibido por email (SendOTP).
func (c *Client) AttachPassword(ctx context.Context, email, code, password string) (string, error) {
	in := map[string]string{"email": email, "password": password, "code": code}
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/password/register", "", in, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// SignInUser hace login con password y guarda la sesión.
func (c *Client) SignInUser(ctx context.Context, email, password string) (*Session, error) {
	in := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/password/login", "", in, &s); err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, &s); err != nil {
		return nil, err
	}
	c.setState(Authenticated)
	return &s, nil
}

// RefreshSession pide una sesión nueva usando el refresh token de proveedor del usuario.
// Conserva el user de la sesión anterior si la hay.
func (c *Client) RefreshSession(ctx context.Context, userID string) (*Session, error) {
	var out struct {
		SessionToken string    `json:"sessionToken"`
		ExpiresAt    time.Time `json:"expiresAt"`
	}
	in := map[string]string{"userId": userID}
	if err := c.do(ctx, http.MethodPost, "/auth/token/refresh", "", in, &out); err != nil {
		return nil, err
	}
	s := Session{SessionToken: out.SessionToken, ExpiresAt: out.ExpiresAt}
	if prev, err := c.CurrentSession(ctx); err == nil && prev.User.ID == userID {
		s.User = prev.User
	} else {
		s.User = User{ID: userID}
	}
	if err := c.saveSession(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SendOTP pide un código de un solo uso por email.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/send", "", map[string]string{"email": email}, nil)
}

// VerifyOTP devuelve el id del usuario verificado.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	var out struct {
		Verified bool   `json:"verified"`
		UserID   string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", "", map[string]string{"email": email, "code": code}, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}
