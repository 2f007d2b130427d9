package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chamadas à API Evolution
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapdash_gateway_requests_total",
		Help: "Total de chamadas ao gateway de mensagens",
	}, []string{"operation", "outcome"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zapdash_gateway_request_duration_seconds",
		Help:    "Latência das chamadas ao gateway de mensagens",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Disparos em massa
	CampaignMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapdash_campaign_messages_total",
		Help: "Mensagens processadas por disparos em massa",
	}, []string{"status"})

	CampaignsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapdash_campaigns_running",
		Help: "Disparos em massa em andamento",
	})

	PairingSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapdash_pairing_sessions",
		Help: "Fluxos de QR code abertos",
	})

	OnboardingDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapdash_onboarding_deliveries_total",
		Help: "Entregas do webhook de onboarding",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapdash_http_requests_total",
		Help: "Requisições HTTP atendidas",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zapdash_http_request_duration_seconds",
		Help:    "Latência das requisições HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeOpen    = "circuit_open"
)
