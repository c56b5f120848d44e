package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitchndeck/api/internal/config"
	httpx "github.com/pitchndeck/api/internal/http"
	"github.com/pitchndeck/api/internal/observability"
	"github.com/pitchndeck/api/internal/redisclient"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "pitchndeck-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// Document store: one client for the process, shared by reference.
	client, db, err := mongodb.Connect(cfg.MongoURI, cfg.MongoDB)

	if err != nil {
		log.Error("could not connect to document store", "err", err)
		os.Exit(1)
	}

	defer func() {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	idxCtx, idxCancel := config.WithTimeout(10 * time.Second)
	err = mongodb.EnsureIndexes(idxCtx, db)
	idxCancel()

	if err != nil {
		log.Error("could not ensure indexes", "err", err)
		os.Exit(1)
	}

	// Redis is optional; without it rate limiting stays in-process.
	var rdb *redis.Client

	if cfg.RedisAddr != "" {
		rdb = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, pingCancel := config.WithTimeout(2 * time.Second)
		err = redisclient.Ping(pingCtx, rdb)
		pingCancel()

		if err != nil {
			log.Warn("redis unreachable, falling back to in-process rate limiting", "err", err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	router := httpx.NewRouter(httpx.Deps{
		Cfg:   cfg,
		Log:   log,
		DB:    db,
		Redis: rdb,
		Reg:   reg,
		Prom:  prom,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
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

	ctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := shutdownTracer(ctx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
