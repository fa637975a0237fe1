// Package health verifica las dependencias que el servicio necesita para atender tráfico.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Pinger lo implementan repository.Store y cache.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result de un chequeo de readiness.
type Result struct {
	Ready      bool
	Components map[string]string // nombre → "ok" | mensaje de error
}

// Service corre los pings en paralelo con timeout.
type Service struct {
	checks  map[string]Pinger
	timeout time.Duration
	Version string
}

// NewService: timeout <= 0 usa 2s.
func NewService(version string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{checks: map[string]Pinger{}, timeout: timeout, Version: version}
}

// Add registra un componente; nil se ignora.
func (s *Service) Add(name string, p Pinger) *Service {
	if p != nil {
		s.checks[name] = p
	}
	return s
}

func (s *Service) Ready(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	res := Result{Ready: true, Components: make(map[string]string, len(names))}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, n := range names {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			status := "ok"
			if err := p.Ping(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			res.Components[name] = status
			if status != "ok" {
				res.Ready = false
			}
			mu.Unlock()
		}(n, s.checks[n])
	}
	wg.Wait()
	return res
}
