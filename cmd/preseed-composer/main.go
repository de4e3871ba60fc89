package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/journal"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/preseed-composer/internal/common"
)

const (
	configFile = "/etc/preseed-composer/preseed-composer.toml"
	socketName = "preseed-composer.socket"
)

func setupLogging(config LogConfig) error {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if config.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.AddHook(&common.BuildHook{})
	if journal.Enabled() {
		logrus.AddHook(&common.JournalHook{})
	}
	return nil
}

func setupSentry(config SentryConfig) (bool, error) {
	if config.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         config.DSN,
		Environment: config.Environment,
		Release:     common.BuildCommit,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// listeners returns the socket-activated listeners when the unit provides
// them, otherwise a TCP listener on the configured address.
func listeners(config APIConfig) (api net.Listener, metrics net.Listener, err error) {
	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, nil, err
	}

	if ls, exists := named[socketName]; exists && len(ls) > 0 {
		logrus.Infof("Using socket activated listener %s", socketName)
		api = ls[0]
		if len(ls) > 1 {
			metrics = ls[1]
		}
		return api, metrics, nil
	}

	api, err = net.Listen("tcp", config.Listen)
	if err != nil {
		return nil, nil, err
	}
	if config.MetricsListen != "" {
		metrics, err = net.Listen("tcp", config.MetricsListen)
		if err != nil {
			api.Close()
			return nil, nil, err
		}
	}
	return api, metrics, nil
}

func main() {
	var configPath string
	var dumpConfig bool
	flag.StringVar(&configPath, "config", configFile, "Path to the configuration file")
	flag.BoolVar(&dumpConfig, "dump-config", false, "Print the effective configuration and exit")
	flag.Parse()

	// Runs last so the deferred cleanups below still happen on failure.
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	config, err := LoadConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("Configuration file %s not found, using defaults", configPath)
			config = GetDefaultConfig()
			err = loadConfigFromEnv(&config.Store)
		}
		if err != nil {
			logrus.Fatalf("Error loading configuration: %v", err)
		}
	}

	if dumpConfig {
		err = DumpConfig(config, os.Stdout)
		if err != nil {
			logrus.Fatalf("Error printing configuration: %v", err)
		}
		return
	}

	err = setupLogging(config.Log)
	if err != nil {
		logrus.Fatalf("Invalid log configuration: %v", err)
	}

	sentryEnabled, err := setupSentry(config.Sentry)
	if err != nil {
		logrus.Fatalf("Cannot initialize sentry: %v", err)
	}
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	composer, err := NewComposer(ctx, config, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	defer composer.Close()

	apiListener, metricsListener, err := listeners(config.API)
	if err != nil {
		logrus.Fatalf("Could not get listening sockets: %v", err)
	}

	err = composer.InitAPI(apiListener, sentryEnabled)
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	if metricsListener != nil {
		composer.InitMetrics(metricsListener)
	}

	logrus.Infof("Starting preseed-composer %s (built %s with %s)", common.BuildCommit, common.BuildTime, common.BuildGoVersion)
	err = composer.Start(ctx)
	if err != nil {
		logrus.Errorf("preseed-composer failed: %v", err)
		exitCode = 1
		return
	}
	logrus.Info("preseed-composer stopped")
}
