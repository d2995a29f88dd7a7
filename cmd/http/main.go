package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/app/cache"
	"github.com/awmpietro/path-analysis/internal/config"
	"github.com/awmpietro/path-analysis/internal/transport/httptransport"
)

func main() {
	_ = godotenv.Load()
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: "15:04:05.00"})

	cfg, err := config.Resolve("")
	if err != nil {
		logger.Fatal("config", "err", err)
	}

	runObserver := app.NewAsyncRunObserver(app.NewRunLogger(logger), cfg.ObsBuffer)
	defer runObserver.Close()

	svc := app.NewService(
		app.WithCache(cache.NewInMemory(cfg.CacheMaxItems)),
		app.WithLogger(logger),
		app.WithRunObserver(runObserver),
		app.WithDefaults(cfg.Analysis),
	)
	h := httptransport.NewHandler(svc, httptransport.WithLogger(logger))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		return
	}
	runObserver.Close()
	logger.Info("shutdown complete", "dropped_run_events", runObserver.Dropped())
}
