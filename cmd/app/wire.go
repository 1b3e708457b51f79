//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/airguard/internal/bootstrap"
	"github.com/yanqian/airguard/internal/domain/airquality"
	"github.com/yanqian/airguard/internal/domain/records"
	"github.com/yanqian/airguard/internal/infra/config"
	httpiface "github.com/yanqian/airguard/internal/interface/http"
	"github.com/yanqian/airguard/pkg/logger"
	"github.com/yanqian/airguard/pkg/metrics"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		metrics.New,
		provideDashboardConfig,
		provideCatalog,
		provideSession,
		provideState,
		provideFetcher,
		provideReadingCache,
		provideChatClient,
		provideForecastConfig,
		provideForecaster,
		provideRecorder,
		provideArchiver,
		airquality.NewService,
		wire.Bind(new(httpiface.AlertLister), new(*records.Catalog)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
