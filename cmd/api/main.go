package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ncastellanos/eventgate/internal/cache"
	"github.com/ncastellanos/eventgate/internal/config"
	httpx "github.com/ncastellanos/eventgate/internal/http"
	"github.com/ncastellanos/eventgate/internal/http/handlers"
	"github.com/ncastellanos/eventgate/internal/observability"
	"github.com/ncastellanos/eventgate/internal/upstream"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional, only wired when an endpoint is configured
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "eventgate", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()

				_ = shutdown(ctx)
			}()
		}
	}

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	prom := observability.NewProm(reg)
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	// upstream ticketing API client
	client := upstream.New(cfg.APIBaseURL, cfg.UpstreamTimeout, log, prom)

	readiness := []handlers.ReadyCheck{
		{Name: "upstream", Check: func(ctx context.Context) error {
			_, err := client.FetchCategories(ctx)
			return err
		}},
	}

	// snapshot cache: redis when configured, in-process otherwise
	var store cache.Store

	if cfg.RedisAddr != "" {
		rds := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, log)

		defer func() { _ = rds.Close() }()

		readiness = append(readiness, handlers.ReadyCheck{Name: "redis", Check: rds.Ping})

		store = rds
	} else {
		store = cache.NewMemory(cfg.CacheTTL)
	}

	// set up router with everything wired
	router := httpx.NewRouter(cfg, log, client, store, prom, metricsHandler, readiness...)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "upstream", cfg.APIBaseURL)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
