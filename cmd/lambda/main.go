package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"

	"github.com/awmpietro/path-analysis/internal/app"
	"github.com/awmpietro/path-analysis/internal/app/cache"
	"github.com/awmpietro/path-analysis/internal/config"
	"github.com/awmpietro/path-analysis/internal/transport/lambdatransport"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

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
	h := lambdatransport.NewHandler(svc)

	lambda.Start(h.Analyze)
}
