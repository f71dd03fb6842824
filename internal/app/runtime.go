// Package app wires configuration, logging and tracing into the
// components the binaries use.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ShadowFalcon24/atomic-cloud/internal/channel"
	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	"github.com/ShadowFalcon24/atomic-cloud/internal/logging"
	"github.com/ShadowFalcon24/atomic-cloud/internal/manage"
	natsclient "github.com/ShadowFalcon24/atomic-cloud/internal/nats"
	"github.com/ShadowFalcon24/atomic-cloud/internal/permission"
	"github.com/ShadowFalcon24/atomic-cloud/internal/telemetry"
	"github.com/ShadowFalcon24/atomic-cloud/internal/transport"
)

// Runtime holds the ambient pieces shared by every command.
type Runtime struct {
	Config *config.Config
	Logger *zap.Logger
	Tracer trace.TracerProvider

	closers []func(context.Context) error
}

// NewRuntime loads and validates configuration for the given sections,
// then builds the logger and tracer provider.
func NewRuntime(v *viper.Viper, sections ...string) (*Runtime, error) {
	cfg, err := config.Load(v, sections...)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("configuration loaded", zap.String("file", used))
	}

	tp, shutdown, err := telemetry.Setup(cfg.Tracing.Enabled, os.Stderr)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: logger, Tracer: tp}
	rt.closers = append(rt.closers, shutdown)
	return rt, nil
}

// Grants is the permission identity of whoever runs the process.
func (rt *Runtime) Grants() permission.Grants {
	op := rt.Config.Operator
	return permission.Grants{Name: op.Name, Permissions: op.Permissions, Operator: op.Operator}
}

// Privileged dials the controller and returns the management facade.
// The connection is closed by Close.
func (rt *Runtime) Privileged() (*manage.Privileged, error) {
	conn, err := transport.Dial(rt.Config.Controller,
		transport.WithLogger(rt.Logger.Named("transport")),
		transport.WithTracerProvider(rt.Tracer))
	if err != nil {
		return nil, err
	}
	rt.onClose(func(context.Context) error { return conn.Close() })
	return manage.New(conn), nil
}

// Channels builds a channel manager over NATS when a URL is configured,
// in process otherwise.
func (rt *Runtime) Channels(ctx context.Context) (*channel.Manager, error) {
	cfg := rt.Config.Channels
	logger := rt.Logger.Named("channel")

	var broker channel.Broker
	if cfg.NatsURL != "" {
		nb, err := natsclient.NewBroker(cfg.NatsURL, "atomic-cloud", logger)
		if err != nil {
			return nil, fmt.Errorf("open channel broker: %w", err)
		}
		rt.onClose(func(context.Context) error {
			nb.Close()
			return nil
		})
		broker = nb
		logger.Debug("channels over nats", zap.String("url", cfg.NatsURL))
	} else {
		broker = channel.NewLocalBroker()
		logger.Debug("channels in process")
	}

	m := channel.NewManager(broker,
		channel.WithLogger(logger),
		channel.WithSender(cfg.Sender),
		channel.WithSubjectPrefix(cfg.SubjectPrefix),
		channel.WithBacklogWarning(cfg.BacklogWarning))
	rt.onClose(func(context.Context) error {
		m.Cleanup()
		return nil
	})
	return m, nil
}

func (rt *Runtime) onClose(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases everything in reverse order of acquisition. Failures
// are logged as well as returned so deferred calls do not lose them.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	err := errors.Join(errs...)
	if err != nil {
		rt.Logger.Warn("runtime teardown incomplete", zap.Error(err))
	}
	_ = rt.Logger.Sync()
	return err
}
