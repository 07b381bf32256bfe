package devserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dev server collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	turns    *prometheus.CounterVec
	tools    *prometheus.CounterVec
	runs     prometheus.Counter
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentchat_devserver_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentchat_devserver_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentchat_devserver_turns_total",
				Help: "Conversation turns appended, by actor",
			},
			[]string{"actor"},
		),
		tools: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentchat_devserver_tool_runs_total",
				Help: "Tool runs by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentchat_devserver_workflow_starts_total",
			Help: "Workflows started",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.turns, m.tools, m.runs)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTurn counts an appended turn
func (m *Metrics) ObserveTurn(actor string) {
	m.turns.WithLabelValues(actor).Inc()
}

// ToolMiddleware counts tool runs by outcome
func (m *Metrics) ToolMiddleware() Middleware {
	return func(next ToolFunc) ToolFunc {
		return func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
			result, err := next(ctx, name, args)
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.tools.WithLabelValues(name, outcome).Inc()
			return result, err
		}
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
