package oidc

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

var (
	GoogleEndpoints = Endpoints{
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		JWKSURL:  "https://www.googleapis.com/oauth2/v3/certs",
		Issuers:  []string{"https://accounts.google.com", "accounts.google.com"},
	}

	// Microsoft: tenant "consumers" (cuentas personales). Su issuer es fijo.
	MicrosoftEndpoints = Endpoints{
		AuthURL:  "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize",
		TokenURL: "https://login.microsoftonline.com/consumers/oauth2/v2.0/token",
		JWKSURL:  "https://login.microsoftonline.com/consumers/discovery/v2.0/keys",
		Issuers:  []string{"https://login.microsoftonline.com/9188040d-6c67-4c5b-b112-36a304b66dad/v2.0"},
	}

	AppleEndpoints = Endpoints{
		AuthURL:  "https://appleid.apple.com/auth/authorize",
		TokenURL: "https://appleid.apple.com/auth/token",
		JWKSURL:  "https://appleid.apple.com/auth/keys",
		Issuers:  []string{"https://appleid.apple.com"},
	}
)

// Options comunes a los presets.
type Options struct {
	HTTPClient *http.Client
	JWKSTTL    time.Duration
	// Endpoints sobreescribe los del preset (tests, sovereign clouds).
	Endpoints *Endpoints
}

func (o Options) endpoints(def Endpoints) Endpoints {
	if o.Endpoints != nil {
		return *o.Endpoints
	}
	return def
}

// NewGoogle pide refresh token (access_type=offline, prompt=consent).
func NewGoogle(o Options) *Provider {
	return New(Config{
		Type:      oauth.Google,
		Endpoints: o.endpoints(GoogleEndpoints),
		Scopes:    []string{"openid", "email", "profile"},
		ExtraAuthParams: url.Values{
			"access_type": {"offline"},
			"prompt":      {"consent"},
		},
		HTTPClient: o.HTTPClient,
		JWKSTTL:    o.JWKSTTL,
	})
}

// NewMicrosoft usa offline_access para obtener refresh token.
func NewMicrosoft(o Options) *Provider {
	return New(Config{
		Type:       oauth.Microsoft,
		Endpoints:  o.endpoints(MicrosoftEndpoints),
		Scopes:     []string{"openid", "email", "profile", "offline_access"},
		HTTPClient: o.HTTPClient,
		JWKSTTL:    o.JWKSTTL,
	})
}

// NewApple: con scope email Apple exige response_mode=form_post, el redirect llega por POST.
// El client_secret del tenant es el JWT ES256 ya firmado con su clave de Apple.
func NewApple(o Options) *Provider {
	return New(Config{
		Type:      oauth.Apple,
		Endpoints: o.endpoints(AppleEndpoints),
		Scopes:    []string{"openid", "email"},
		ExtraAuthParams: url.Values{
			"response_mode": {"form_post"},
		},
		HTTPClient: o.HTTPClient,
		JWKSTTL:    o.JWKSTTL,
	})
}
