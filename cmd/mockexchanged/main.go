// Command mockexchanged runs the mock exchange core: the HTTP/WS
// adapter, the tick and prune background loops, and the Prometheus
// metrics endpoint, all wired against one Redis-backed store.
//
// Grounded on the teacher's cmd/api/main.go wiring order (load env,
// dial datastore, build services, build handler, register routes,
// run), generalized from dial-Postgres-then-Redis to dial-Redis-only
// and from one http.Run call to an http.Server with graceful shutdown
// driven by an os/signal context, the way newplayman-market-maker-go's
// cmd/trader/main.go shuts its engine down.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/config"
	"github.com/didac-crst/mockexchange-api/internal/engine"
	"github.com/didac-crst/mockexchange-api/internal/httpapi"
	"github.com/didac-crst/mockexchange-api/internal/logging"
	"github.com/didac-crst/mockexchange-api/internal/market"
	"github.com/didac-crst/mockexchange-api/internal/metrics"
	"github.com/didac-crst/mockexchange-api/internal/orderbook"
	"github.com/didac-crst/mockexchange-api/internal/portfolio"
	"github.com/didac-crst/mockexchange-api/internal/scheduler"
	"github.com/didac-crst/mockexchange-api/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, env vars always override)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.New(ctx, store.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatal("store: connect", zap.Error(err))
	}
	defer s.Close()

	mkt := market.New(s)
	pf := portfolio.New(s)
	ob := orderbook.New(s)

	eng := engine.New(s, mkt, pf, ob, cfg, log)

	if *configPath != "" {
		if watcher, err := config.NewWatcher(*configPath, 0); err != nil {
			log.Warn("config: hot-reload watcher unavailable", zap.Error(err))
		} else {
			go watcher.Start(ctx,
				func(updated config.Config) {
					eng.UpdateConfig(updated)
					log.Info("config: reloaded", zap.String("path", *configPath))
				},
				func(err error) {
					log.Error("config: reload failed", zap.Error(err))
				},
			)
		}
	}

	sched := scheduler.New(eng, log, cfg.TickInterval(), cfg.PruneInterval())
	sched.Start(ctx)
	defer sched.Stop()

	metrics.StartServer(cfg.MetricsAddr)

	router := httpapi.NewRouter(ctx, eng, cfg, log)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}
}
