package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "http_duration_seconds",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "Duration of HTTP requests.",
		Buckets:   []float64{.005, .01, .025, .05, .075, .1, .2, .5, .75, 1, 2, 5},
	}, []string{"path"})
)

var (
	httpResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "http_responses",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "HTTP responses by path and status code.",
	}, []string{"path", "code"})
)
