package backend

import (
	"errors"
	"fmt"
	"strings"

	"kharcha/internal/config"
)

// BackendTypes lists every supported storage backend.
var BackendTypes = []BackendType{MemoryBackend, SQLiteBackend}

// FromAppConfig selects the backend and event settings from app config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	c := Config{
		Type:          BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend))),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.SeedDir,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q (want one of %s)", appConfig.DataBackend, backendNames())
	}
	return c, nil
}

// Validate reports every missing setting for the selected backend.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("unknown data backend %q (want one of %s)", c.Type, backendNames()))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errs = append(errs, errors.New("AMQP URL set without an exchange"))
		}
		if c.AMQPQueue == "" {
			errs = append(errs, errors.New("AMQP URL set without a queue"))
		}
	}
	return errors.Join(errs...)
}

func backendNames() string {
	names := make([]string, len(BackendTypes))
	for i, t := range BackendTypes {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
