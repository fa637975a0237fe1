// Package health contiene los DTOs de /healthz y /readyz.
package health

type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}
