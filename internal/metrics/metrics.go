// Package metrics agrupa los collectors Prometheus del servicio.
// Vive aparte para que http, services y store no se importen entre sí.
package metrics

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes de autenticación.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics contiene los collectors registrados en un registry propio.
// Los métodos aceptan receiver nil para que los tests no necesiten registry.
type Metrics struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Inflight        *prometheus.GaugeVec
	AuthTotal       *prometheus.CounterVec
	RefreshTotal    *prometheus.CounterVec
	OTPSentTotal    *prometheus.CounterVec
}

// New crea y registra los collectors. reg nil crea un registry nuevo.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"}),
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantauth_auth_total",
			Help: "Intentos de autenticación por método y resultado",
		}, []string{"method", "outcome"}), // method: google|github|...|password|otp
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantauth_provider_refresh_total",
			Help: "Refresh de tokens de provider por resultado",
		}, []string{"provider", "outcome"}),
		OTPSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantauth_otp_sent_total",
			Help: "Códigos OTP emitidos por resultado",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.RequestsTotal, m.RequestDuration, m.Inflight,
		m.AuthTotal, m.RefreshTotal, m.OTPSentTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry expone el registry para tests y collectors extra.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler sirve /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Auth(method, outcome string) {
	if m == nil {
		return
	}
	m.AuthTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Refresh(provider, outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) OTPSent(outcome string) {
	if m == nil {
		return
	}
	m.OTPSentTotal.WithLabelValues(outcome).Inc()
}

// RegisterPool agrega gauges del pool de Postgres.
func (m *Metrics) RegisterPool(pool func() *pgxpool.Pool) error {
	if m == nil || pool == nil {
		return nil
	}
	return register(m.reg, newPoolCollector(pool))
}

// register ignora duplicados.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

type poolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	st := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
}
