package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultJWKSTTL es cuánto se conserva una clave pública descargada.
	DefaultJWKSTTL = time.Hour
	// DefaultMinRefresh evita que kids inventados fuercen una descarga por request.
	DefaultMinRefresh = 10 * time.Second
)

// KeyProvider resuelve una clave RSA por kid.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// KeySet cachea el JWKS de un issuer. En cache miss por kid se vuelve a descargar,
// con una sola descarga en vuelo por URL.
type KeySet struct {
	url        string
	client     *http.Client
	ttl        time.Duration
	minRefresh time.Duration
	keys       *gocache.Cache
	group      singleflight.Group

	mu        sync.Mutex
	lastFetch time.Time
	lastErr   error // error de la última descarga; se repite mientras dure el throttle
	now       func() time.Time
}

// NewKeySet crea el cache para jwksURL. ttl<=0 usa DefaultJWKSTTL.
func NewKeySet(jwksURL string, client *http.Client, ttl time.Duration) *KeySet {
	if ttl <= 0 {
		ttl = DefaultJWKSTTL
	}
	if client == nil {
		client = oauth.NewHTTPClient(0)
	}
	return &KeySet{
		url:        jwksURL,
		client:     client,
		ttl:        ttl,
		minRefresh: DefaultMinRefresh,
		keys:       gocache.New(ttl, ttl),
		now:        time.Now,
	}
}

// WithMinRefresh ajusta el intervalo mínimo entre descargas forzadas por kid desconocido.
func (k *KeySet) WithMinRefresh(d time.Duration) *KeySet {
	k.minRefresh = d
	return k
}

// Key busca el kid en cache y, si falta, refresca el JWKS una vez.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrUnknownSigningKey
	}
	if v, ok := k.keys.Get(kid); ok {
		return v.(*rsa.PublicKey), nil
	}
	if ok, lastErr := k.refreshAllowed(); !ok {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrUnknownSigningKey
	}
	_, err, _ := k.group.Do(k.url, func() (any, error) {
		// otro caller pudo haber refrescado entre el miss y el Do
		if _, ok := k.keys.Get(kid); ok {
			return nil, nil
		}
		return nil, k.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if v, ok := k.keys.Get(kid); ok {
		return v.(*rsa.PublicKey), nil
	}
	return nil, ErrUnknownSigningKey
}

func (k *KeySet) refreshAllowed() (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.lastFetch.IsZero() || k.minRefresh <= 0 {
		return true, nil
	}
	return k.now().Sub(k.lastFetch) >= k.minRefresh, k.lastErr
}

func (k *KeySet) fetch(ctx context.Context) error {
	err := k.download(ctx)
	if err != nil && ctx.Err() != nil {
		// el caller canceló: no es una caída del provider
		return err
	}
	k.mu.Lock()
	k.lastFetch = k.now()
	k.lastErr = err
	k.mu.Unlock()
	return err
}

func (k *KeySet) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: jwks fetch: %v", oauth.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: jwks status %d", oauth.ErrProviderUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: jwks read: %v", oauth.ErrProviderUnavailable, err)
	}
	keys, err := parseJWKS(body)
	if err != nil {
		return err
	}
	for kid, pub := range keys {
		k.keys.Set(kid, pub, k.ttl)
	}
	return nil
}

// parseJWKS extrae las claves RSA de firma. Ignora claves de otros tipos o de cifrado.
func parseJWKS(body []byte) (map[string]*rsa.PublicKey, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("jwks: invalid json")
	}
	out := map[string]*rsa.PublicKey{}
	var firstErr error
	gjson.GetBytes(body, "keys").ForEach(func(_, key gjson.Result) bool {
		if key.Get("kty").String() != "RSA" {
			return true
		}
		if use := key.Get("use").String(); use != "" && use != "sig" {
			return true
		}
		kid := key.Get("kid").String()
		if kid == "" {
			return true
		}
		pub, err := rsaKey(key.Get("n").String(), key.Get("e").String())
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("jwks key %s: %w", kid, err)
			}
			return true
		}
		out[kid] = pub
		return true
	})
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 || len(eb) > 4 {
		return nil, errors.New("invalid rsa parameters")
	}
	exp := 0
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exp}, nil
}
