package oauth

import (
	"fmt"
	"sort"
)

// Registry mapea ProviderType → Provider. Se arma una vez en main y es inmutable.
type Registry struct {
	providers map[ProviderType]Provider
}

// NewRegistry falla si hay dos providers del mismo tipo.
func NewRegistry(ps ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[ProviderType]Provider, len(ps))}
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, dup := r.providers[p.Type()]; dup {
			return nil, fmt.Errorf("provider %q registered twice", p.Type())
		}
		r.providers[p.Type()] = p
	}
	return r, nil
}

// Get retorna ErrUnsupportedProvider si el tipo no fue registrado.
func (r *Registry) Get(t ProviderType) (Provider, error) {
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, t)
	}
	return p, nil
}

// Types lista los providers registrados, ordenados.
func (r *Registry) Types() []ProviderType {
	out := make([]ProviderType, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
