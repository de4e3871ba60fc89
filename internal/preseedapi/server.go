// Package preseedapi implements the HTTP API: previewing, storing and
// showing preseed documents.
package preseedapi

import (
	"context"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/preseed-composer/internal/common"
	"github.com/osbuild/preseed-composer/internal/preseed"
	"github.com/osbuild/preseed-composer/internal/prometheus"
	"github.com/osbuild/preseed-composer/internal/schema"
	"github.com/osbuild/preseed-composer/internal/store"
)

// Server represents the state of the preseed API
type Server struct {
	validator *schema.Validator
	renderer  *preseed.Renderer
	store     store.Store
	config    ServerConfig
}

type ServerConfig struct {
	// MaxAttempts bounds the identifiers tried when storing a document.
	MaxAttempts int

	// BodyLimit is the maximum request body size, e.g. "1M". Empty means
	// no limit.
	BodyLimit string

	// SentryEnabled reports panics and errors to the sentry hub set up by
	// the caller.
	SentryEnabled bool
}

func NewServer(validator *schema.Validator, renderer *preseed.Renderer, s store.Store, config ServerConfig) *Server {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = store.DefaultMaxAttempts
	}
	return &Server{
		validator: validator,
		renderer:  renderer,
		store:     s,
		config:    config,
	}
}

// Handler returns an http.Handler serving the API below path.
func (s *Server) Handler(path string) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Binder = binder{}
	e.HTTPErrorHandler = s.HTTPErrorHandler
	e.Logger = common.NewEchoLogrusLogger(logrus.StandardLogger(), context.Background())
	e.Pre(common.OperationIDMiddleware)
	e.Pre(common.ExternalIDMiddleware)
	e.Use(common.LoggerMiddleware(logrus.StandardLogger()))
	e.Use(middleware.Recover())
	if s.config.SentryEnabled {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	if s.config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(s.config.BodyLimit))
	}

	handler := apiHandlers{
		server: s,
		path:   path,
	}

	g := e.Group(path, prometheus.MetricsMiddleware)
	g.GET("/openapi", handler.GetOpenapi)
	g.POST("/preseed/preview", handler.PostPreview)
	g.POST("/preseed", handler.PostPreseed)
	g.GET("/preseed/:id", handler.GetPreseed)

	return e
}
