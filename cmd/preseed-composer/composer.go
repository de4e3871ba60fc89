package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/osbuild/preseed-composer/internal/common/slogger"
	"github.com/osbuild/preseed-composer/internal/preseed"
	"github.com/osbuild/preseed-composer/internal/preseedapi"
	"github.com/osbuild/preseed-composer/internal/schema"
	"github.com/osbuild/preseed-composer/internal/store"
	"github.com/osbuild/preseed-composer/internal/store/dbstore"
	"github.com/osbuild/preseed-composer/internal/store/fsstore"
)

const shutdownTimeout = 10 * time.Second

type Composer struct {
	config *PreseedComposerConfigFile
	logger *logrus.Logger

	store store.Store
	api   *preseedapi.Server

	// closeStore releases the database pool, if any.
	closeStore func()

	apiListener, metricsListener net.Listener
}

func NewComposer(ctx context.Context, config *PreseedComposerConfigFile, logger *logrus.Logger) (*Composer, error) {
	c := Composer{
		config:     config,
		logger:     logger,
		closeStore: func() {},
	}

	switch config.Store.Backend {
	case StoreBackendDB:
		db, err := dbstore.NewWithConfig(ctx, config.Store.dbURL(), dbstore.Config{
			Logger: slogger.NewLogrusLogger(logger),
		})
		if err != nil {
			return nil, fmt.Errorf("cannot create store: %v", err)
		}
		c.store = db
		c.closeStore = db.Close
	default:
		err := os.MkdirAll(config.Store.Directory, 0700)
		if err != nil {
			return nil, fmt.Errorf("cannot create store directory %s: %v", config.Store.Directory, err)
		}
		c.store, err = fsstore.New(config.Store.Directory)
		if err != nil {
			return nil, fmt.Errorf("cannot create store: %v", err)
		}
	}

	if config.Render.UsesPlaceholderPassphrase() {
		logger.Warn("render.crypto_passphrase is the built-in placeholder, documents using crypto partitioning will share it")
	}

	return &c, nil
}

func (c *Composer) InitAPI(l net.Listener, sentryEnabled bool) error {
	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("cannot load validation schema: %v", err)
	}

	c.api = preseedapi.NewServer(validator, preseed.NewRenderer(c.config.Render), c.store, preseedapi.ServerConfig{
		MaxAttempts:   c.config.Store.MaxAttempts,
		BodyLimit:     c.config.API.BodyLimit,
		SentryEnabled: sentryEnabled,
	})
	c.apiListener = l

	return nil
}

func (c *Composer) InitMetrics(l net.Listener) {
	c.metricsListener = l
}

// Handler returns the API mux. Metrics are always served next to the API.
func (c *Composer) Handler() http.Handler {
	apiRoute := c.config.API.BasePath

	mux := http.NewServeMux()

	// Add a "/" here, because http.ServeMux expects the
	// trailing slash for rooted subtrees, whereas the
	// handler functions don't.
	mux.Handle(apiRoute+"/", c.api.Handler(apiRoute))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Start serves all initialized listeners until ctx is cancelled or one of
// the servers fails.
func (c *Composer) Start(ctx context.Context) error {
	if c.apiListener == nil {
		return errors.New("the API listener is not initialized")
	}

	g, ctx := errgroup.WithContext(ctx)
	errorLog := c.logger.WriterLevel(logrus.ErrorLevel)
	defer errorLog.Close()

	serve := func(l net.Listener, h http.Handler) {
		s := &http.Server{
			ErrorLog:          log.New(errorLog, "", 0),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			c.logger.Infof("Listening on %s", l.Addr())
			err := s.Serve(l)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.Shutdown(shutdownCtx)
		})
	}

	serve(c.apiListener, c.Handler())
	if c.metricsListener != nil {
		metrics := http.NewServeMux()
		metrics.Handle("/metrics", promhttp.Handler())
		serve(c.metricsListener, metrics)
	}

	return g.Wait()
}

func (c *Composer) Close() {
	c.closeStore()
}
