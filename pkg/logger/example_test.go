package logger_test

import (
	"errors"

	"github.com/wonny/remitquote/pkg/config"
	"github.com/wonny/remitquote/pkg/logger"
)

// Example_basic demonstrates basic logger usage.
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Aggregator started")
	log.Warn("Provider registry has zero active adapters")
	log.Error("Failed to reach cache backend")

	log.Infof("Corridor %s->%s quoted", "US", "MX")
	log.Warnf("Retry attempt %d of %d", 1, 2)
}

// Example_withFields demonstrates structured logging with fields.
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	corridorLog := log.WithField("corridor", "US-MX")
	corridorLog.Info("Corridor validated")

	quoteLog := log.WithFields(map[string]interface{}{
		"provider_id": "mockwire",
		"fee":         "8.42",
		"rate":        "17.94",
	})
	quoteLog.Info("Quote normalized")
}

// Example_withError demonstrates error logging.
func Example_withError() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	err := errors.New("dial tcp: connection refused")
	log.WithError(err).Error("Provider request failed")

	log.WithError(err).
		WithFields(map[string]interface{}{
			"provider_id": "globalpay",
			"attempt":     2,
		}).
		Error("Provider request failed after retry")
}

// Example_environments demonstrates different log formats per environment.
func Example_environments() {
	devCfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "console",
	}
	devLog := logger.New(devCfg)
	devLog.Debug("Dispatching fan-out to 3 adapters")
	devLog.Info("Aggregate request received")

	prodCfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}
	prodLog := logger.New(prodCfg)
	prodLog.Info("Aggregator service started")
	prodLog.Warn("Cache backend degraded, falling back to direct fan-out")
}
