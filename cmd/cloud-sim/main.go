package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShadowFalcon24/atomic-cloud/internal/api"
	"github.com/ShadowFalcon24/atomic-cloud/internal/app"
	"github.com/ShadowFalcon24/atomic-cloud/internal/config"
	natsclient "github.com/ShadowFalcon24/atomic-cloud/internal/nats"
	"github.com/ShadowFalcon24/atomic-cloud/internal/server"
	"github.com/ShadowFalcon24/atomic-cloud/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	config.ConfigureEnv(v)

	var cfgFile string
	cmd := &cobra.Command{
		Use:          "cloud-sim",
		Short:        "Run a simulated atomic-cloud controller.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config file: %w", err)
				}
			}
			return run(cmd.Context(), v)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&cfgFile, "config", "c", "", "configuration file")
	fs.String("grpc-addr", ":50051", "gRPC listen address")
	fs.String("http-addr", ":8080", "HTTP shim listen address")
	fs.String("db", "./data/badger", "Badger DB path; empty keeps state in memory")
	fs.String("nats-url", "", "NATS URL for lifecycle events")
	fs.String("token", "", "token clients must present")
	fs.Duration("startup-delay", server.DefaultStartupDelay, "time a scheduled server stays starting")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	for key, flag := range map[string]string{
		"simulator.grpc_addr":     "grpc-addr",
		"simulator.http_addr":     "http-addr",
		"simulator.db_path":       "db",
		"simulator.nats_url":      "nats-url",
		"simulator.token":         "token",
		"simulator.startup_delay": "startup-delay",
		"log.level":               "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	rt, err := app.NewRuntime(v, "simulator")
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))
	cfg := rt.Config.Simulator
	logger := rt.Logger

	// Create storage
	var store *storage.BadgerStore
	if cfg.DBPath == "" {
		store, err = storage.NewInMemoryBadgerStore()
	} else {
		store, err = storage.NewBadgerStore(cfg.DBPath)
	}
	if err != nil {
		return fmt.Errorf("open badger store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []server.Option{
		server.WithLogger(logger.Named("sim")),
		server.WithStartupDelay(cfg.StartupDelay),
		server.WithStopHook(cancel),
	}
	if cfg.NatsURL != "" {
		events, err := natsclient.NewBroker(cfg.NatsURL, "cloud-sim", logger.Named("nats"))
		if err != nil {
			// events are optional, the simulator keeps running without them
			logger.Warn("nats unavailable, lifecycle events disabled", zap.Error(err))
		} else {
			defer events.Close()
			opts = append(opts, server.WithEvents(events))
		}
	}
	srv := server.New(store, opts...)
	defer srv.Close()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := server.NewGRPCServer(cfg.Token, logger.Named("grpc"))
	srv.RegisterGRPC(grpcServer)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHTTPHandler(srv, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("HTTP shim listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		grpcServer.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("simulator stopped with error", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
