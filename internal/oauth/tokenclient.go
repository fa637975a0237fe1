package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultHTTPTimeout acota toda llamada saliente a un provider.
	DefaultHTTPTimeout = 10 * time.Second
	maxBodyBytes       = 1 << 20
)

// NewHTTPClient crea el cliente para providers. Sin reintentos.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// PostTokenForm hace POST x-www-form-urlencoded al token endpoint y parsea la respuesta JSON.
// Un 2xx con campo "error" (GitHub) también es un fallo.
func PostTokenForm(ctx context.Context, client *http.Client, provider ProviderType, endpoint string, form url.Values) (*Tokens, error) {
	grant := form.Get("grant_type")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Status: resp.StatusCode, Temporary: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, reason := errorFields(body)
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, &ExchangeError{
			Provider:  provider,
			GrantType: grant,
			Status:    resp.StatusCode,
			Code:      code,
			Reason:    reason,
			Temporary: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Status: resp.StatusCode, Reason: "invalid token response"}
	}
	if code, reason := errorFields(body); code != "" {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Status: resp.StatusCode, Code: code, Reason: reason}
	}

	res := gjson.ParseBytes(body)
	tok := &Tokens{
		AccessToken:  res.Get("access_token").String(),
		IDToken:      res.Get("id_token").String(),
		RefreshToken: res.Get("refresh_token").String(),
		TokenType:    res.Get("token_type").String(),
		Scope:        res.Get("scope").String(),
		ExpiresIn:    res.Get("expires_in").Int(),
	}
	if tok.AccessToken == "" && tok.IDToken == "" {
		return nil, &ExchangeError{Provider: provider, GrantType: grant, Status: resp.StatusCode, Reason: "token response without access_token"}
	}
	if tok.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return tok, nil
}

func errorFields(body []byte) (code, reason string) {
	if !gjson.ValidBytes(body) {
		return "", ""
	}
	res := gjson.ParseBytes(body)
	e := res.Get("error")
	if e.IsObject() {
		// algunos providers anidan {error: {code, message}}
		code = e.Get("code").String()
		reason = e.Get("message").String()
	} else {
		code = e.String()
		reason = res.Get("error_description").String()
	}
	if reason == "" {
		reason = code
	}
	return code, reason
}

// AuthorizationCodeForm arma el form estándar de canje. code_verifier solo si viene.
func AuthorizationCodeForm(req ExchangeRequest) url.Values {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	form.Set("client_id", req.ClientID)
	if req.ClientSecret != "" {
		form.Set("client_secret", req.ClientSecret)
	}
	form.Set("redirect_uri", req.RedirectURI)
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}
	return form
}

// RefreshForm arma el form de grant_type=refresh_token.
func RefreshForm(creds Credentials, refreshToken string) url.Values {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", creds.ClientID)
	if creds.ClientSecret != "" {
		form.Set("client_secret", creds.ClientSecret)
	}
	return form
}

// ValidateExchange chequea los campos obligatorios antes de salir a la red.
func ValidateExchange(p ProviderType, req ExchangeRequest) error {
	switch {
	case strings.TrimSpace(req.Code) == "":
		return fmt.Errorf("%w: missing code", ErrProviderExchangeFailed)
	case strings.TrimSpace(req.ClientID) == "":
		return fmt.Errorf("%w: missing client id", ErrProviderExchangeFailed)
	case strings.TrimSpace(req.RedirectURI) == "":
		return fmt.Errorf("%w: missing redirect uri", ErrProviderExchangeFailed)
	case p.SupportsPKCE() && strings.TrimSpace(req.CodeVerifier) == "":
		return fmt.Errorf("%w: missing code verifier", ErrProviderExchangeFailed)
	}
	return nil
}
