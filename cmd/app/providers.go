package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/airguard/internal/domain/airquality"
	"github.com/yanqian/airguard/internal/domain/forecast"
	"github.com/yanqian/airguard/internal/domain/records"
	"github.com/yanqian/airguard/internal/infra/aqisource/simulated"
	"github.com/yanqian/airguard/internal/infra/aqisource/waqi"
	"github.com/yanqian/airguard/internal/infra/archive"
	"github.com/yanqian/airguard/internal/infra/config"
	"github.com/yanqian/airguard/internal/infra/llm/chatgpt"
	"github.com/yanqian/airguard/internal/infra/readingcache"
	"github.com/yanqian/airguard/internal/infra/recordstore"
	"github.com/yanqian/airguard/pkg/util"
)

// session is the profile and starting location fixed at startup.
type session struct {
	Profile  airquality.HealthProfile
	Location string
}

func provideDashboardConfig(cfg *config.Config) airquality.Config {
	return airquality.Config{CacheTTL: cfg.Dashboard.CacheTTL}
}

func provideCatalog(cfg *config.Config, logger *slog.Logger) (*records.Catalog, func()) {
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory record store")
		return recordstore.NewMemoryCatalog(), noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory record store", "error", err)
		return recordstore.NewMemoryCatalog(), noop
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory record store", "error", err)
		return recordstore.NewMemoryCatalog(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory record store", "error", err)
		pool.Close()
		return recordstore.NewMemoryCatalog(), noop
	}
	logger.Info("postgres record store enabled")
	return recordstore.NewPostgresCatalog(pool), pool.Close
}

func provideSession(cfg *config.Config, catalog *records.Catalog, logger *slog.Logger) session {
	level, _ := airquality.ParseSensitivityLevel(cfg.Profile.SensitivityLevel)
	out := session{
		Profile: airquality.HealthProfile{
			HasAsthma:         cfg.Profile.HasAsthma,
			HasHeartCondition: cfg.Profile.HasHeartCondition,
			Age:               cfg.Profile.Age,
			SensitivityLevel:  level,
		},
		Location: cfg.Dashboard.InitialLocation,
	}
	userID := strings.TrimSpace(cfg.Profile.UserID)
	if userID == "" {
		return out
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row, err := catalog.LoadProfile(ctx, userID)
	if err != nil {
		logger.Warn("user profile unavailable, using configured profile", "user_id", userID, "error", err)
		return out
	}
	out.Profile = records.ProfileFromRow(row)
	loc, found, err := catalog.PreferredLocation(ctx, row)
	if err != nil {
		logger.Warn("preferred location unavailable", "user_id", userID, "error", err)
	} else if found {
		out.Location = strings.Join(nonEmpty(loc.City, loc.State, loc.Country), ", ")
	}
	logger.Info("session profile loaded", "user_id", userID, "location", out.Location)
	return out
}

func provideState(s session) *airquality.State {
	return airquality.NewState(airquality.SeedReading(s.Location, util.NowUTC()), s.Profile)
}

func provideFetcher(cfg *config.Config, logger *slog.Logger) airquality.Fetcher {
	if cfg.Dashboard.Fetcher == config.FetcherWAQI {
		logger.Info("using waqi fetcher", "base_url", cfg.WAQI.BaseURL)
		return waqi.NewClient(cfg.WAQI.BaseURL, cfg.WAQI.Token, cfg.WAQI.Timeout)
	}
	delay := cfg.Dashboard.SimulatedDelay
	if delay == 0 {
		delay = -1
	}
	logger.Info("using simulated fetcher", "delay", cfg.Dashboard.SimulatedDelay)
	return simulated.NewFetcher(delay, airquality.SeedReading("", util.NowUTC()))
}

func provideReadingCache(cfg *config.Config, logger *slog.Logger) (airquality.Cache, func()) {
	noop := func() {}
	if cfg.Dashboard.Fetcher != config.FetcherWAQI {
		logger.Info("reading cache disabled for simulated fetcher")
		return nil, noop
	}
	if !cfg.Valkey.Enabled {
		return readingcache.NewMemoryStore(), noop
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return readingcache.NewMemoryStore(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return readingcache.NewMemoryStore(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return readingcache.NewMemoryStore(), noop
	}
	logger.Info("valkey reading cache enabled", "addr", cfg.Valkey.Addr)
	return readingcache.NewValkeyStore(client, cfg.Valkey.Prefix), client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}, nil
}

func provideChatClient(cfg *config.Config, logger *slog.Logger) forecast.ChatClient {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Info("llm api key not set, forecasts use persistence model")
		return nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		logger.Error("failed to create chatgpt client, forecasts use persistence model", "error", err)
		return nil
	}
	return client
}

func provideForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.Config{
		Model:                 cfg.LLM.Model,
		Temperature:           cfg.LLM.Temperature,
		Prompt:                cfg.Forecast.Prompt,
		PersistenceConfidence: cfg.Forecast.PersistenceConfidence,
	}
}

func provideForecaster(cfg *config.Config, fcfg forecast.Config, client forecast.ChatClient, logger *slog.Logger) airquality.Forecaster {
	if !cfg.Forecast.Enabled {
		return nil
	}
	return forecast.NewService(fcfg, client, logger)
}

func provideRecorder(cfg *config.Config, catalog *records.Catalog, logger *slog.Logger) airquality.Recorder {
	return records.NewRecorder(records.RecorderConfig{AlertTTL: cfg.Dashboard.AlertTTL}, catalog, logger)
}

func provideArchiver(cfg *config.Config, logger *slog.Logger) airquality.Archiver {
	if !cfg.Archive.Enabled {
		return nil
	}
	storage, err := archive.NewS3Storage(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.Region, logger)
	if err != nil {
		logger.Error("failed to create archive storage, archiving to memory", "error", err)
		return archive.NewArchiver(archive.NewMemoryStorage(), cfg.Archive.Prefix, logger)
	}
	logger.Info("raw payload archive enabled", "bucket", cfg.Archive.Bucket)
	return archive.NewArchiver(storage, cfg.Archive.Prefix, logger)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
