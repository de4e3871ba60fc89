package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "preseed_composer"

	apiSubsystem   = "api"
	storeSubsystem = "store"
)

var (
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_http_requests",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "total number of http requests made to preseed-composer",
	})
)

var (
	PreviewRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_preview_requests",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "total number of preview requests made to preseed-composer",
	})
)

var (
	StoreRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_store_requests",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "total number of store requests made to preseed-composer",
	})
)

var (
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_failed_validations",
		Namespace: namespace,
		Subsystem: apiSubsystem,
		Help:      "total number of install configurations rejected by validation",
	})
)

var (
	StoredPreseeds = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_stored_preseeds",
		Namespace: namespace,
		Subsystem: storeSubsystem,
		Help:      "total number of preseed documents stored",
	})
)

var (
	// counts 500s of the store operation
	StoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "total_failed_store_requests",
		Namespace: namespace,
		Subsystem: storeSubsystem,
		Help:      "total number of preseed documents that could not be stored",
	})
)
