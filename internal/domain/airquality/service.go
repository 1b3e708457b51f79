package airquality

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	apperrors "github.com/yanqian/airguard/pkg/errors"
	"github.com/yanqian/airguard/pkg/metrics"
	"github.com/yanqian/airguard/pkg/util"
)

// Service exposes the dashboard capabilities.
type Service interface {
	Dashboard(ctx context.Context) (Dashboard, error)
	UpdateLocation(ctx context.Context, req UpdateRequest) (Dashboard, error)
	Evaluate(ctx context.Context, req EvaluateRequest) (Evaluation, error)
}

type service struct {
	cfg        Config
	state      *State
	fetcher    Fetcher
	cache      Cache
	forecaster Forecaster
	recorder   Recorder
	archiver   Archiver
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        util.Clock
}

// NewService wires up the dashboard domain. cache, forecaster, recorder and
// archiver may be nil.
func NewService(cfg Config, state *State, fetcher Fetcher, cache Cache, forecaster Forecaster, recorder Recorder, archiver Archiver, m *metrics.Metrics, logger *slog.Logger) Service {
	return &service{
		cfg:        cfg,
		state:      state,
		fetcher:    fetcher,
		cache:      cache,
		forecaster: forecaster,
		recorder:   recorder,
		archiver:   archiver,
		metrics:    m,
		logger:     logger.With("component", "airquality.service"),
		now:        util.NowUTC,
	}
}

func (s *service) Dashboard(_ context.Context) (Dashboard, error) {
	reading, profile, updating := s.state.Snapshot()
	return buildDashboard(reading, profile, updating), nil
}

func (s *service) UpdateLocation(ctx context.Context, req UpdateRequest) (Dashboard, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return Dashboard{}, apperrors.Wrap(apperrors.CodeInvalidInput, "location cannot be empty", nil)
	}
	if !s.state.beginUpdate() {
		return Dashboard{}, apperrors.Wrap(apperrors.CodeUpdateInProgress, "a location update is already running", nil)
	}
	defer s.state.endUpdate()

	key := CacheKey(location)
	reading, cached := s.lookupCache(ctx, key)
	if !cached {
		var err error
		reading, err = s.fetch(ctx, location)
		if err != nil {
			s.metrics.CountUpdate("failure")
			s.logger.Warn("location update failed, keeping previous reading", "location", location, "code", apperrors.CodeOf(err), "error", err)
			return Dashboard{}, err
		}
		s.enrich(ctx, &reading)
		s.archive(ctx, reading)
		s.storeCache(ctx, key, reading)
	}

	s.state.replace(reading)
	profile := s.state.Profile()
	dash := buildDashboard(reading, profile, false)

	s.metrics.CountUpdate("success")
	s.metrics.CountClassification(string(dash.Classification.Category))
	s.metrics.SetCurrentAQI(reading.AQI)
	s.logger.Info("location updated", "location", reading.Location, "aqi", reading.AQI, "category", dash.Classification.Category, "cached", cached)

	if s.recorder != nil && !cached {
		if err := s.recorder.Record(ctx, dash); err != nil {
			s.logger.Warn("record dashboard snapshot failed", "location", reading.Location, "error", err)
		}
	}
	return dash, nil
}

func (s *service) Evaluate(_ context.Context, req EvaluateRequest) (Evaluation, error) {
	if req.AQI == nil {
		return Evaluation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "aqi is required", nil)
	}
	aqi := *req.AQI
	if math.IsNaN(aqi) || math.IsInf(aqi, 0) {
		return Evaluation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "aqi must be a finite number", nil)
	}
	profile := s.state.Profile()
	if req.Profile != nil {
		profile = *req.Profile
		if profile.SensitivityLevel != "" {
			level, ok := ParseSensitivityLevel(string(profile.SensitivityLevel))
			if !ok {
				return Evaluation{}, apperrors.Wrap(apperrors.CodeInvalidInput, "sensitivityLevel must be one of low, medium, high", nil)
			}
			profile.SensitivityLevel = level
		}
	}
	return Evaluate(aqi, profile), nil
}

func (s *service) fetch(ctx context.Context, location string) (Reading, error) {
	source := "unknown"
	if named, ok := s.fetcher.(sourceNamer); ok {
		source = named.Source()
	}
	start := time.Now()
	reading, err := s.fetcher.Fetch(ctx, location)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveFetch(source, "failure", elapsed)
		if apperrors.CodeOf(err) == "" {
			return Reading{}, apperrors.Wrap(apperrors.CodeTransient, "failed to fetch air quality reading", err)
		}
		return Reading{}, err
	}
	s.metrics.ObserveFetch(source, "success", elapsed)
	if strings.TrimSpace(reading.Location) == "" {
		reading.Location = location
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.now()
	}
	if reading.Source == "" {
		reading.Source = source
	}
	return reading, nil
}

func (s *service) enrich(ctx context.Context, reading *Reading) {
	if reading.Forecast != nil || s.forecaster == nil {
		return
	}
	forecast, err := s.forecaster.Forecast(ctx, *reading)
	if err != nil {
		s.logger.Warn("forecast failed, continuing without forecast", "location", reading.Location, "error", err)
		return
	}
	reading.Forecast = &forecast
}

func (s *service) archive(ctx context.Context, reading Reading) {
	if s.archiver == nil || len(reading.Raw) == 0 {
		return
	}
	if err := s.archiver.Archive(ctx, reading); err != nil {
		s.logger.Warn("archive upstream payload failed", "location", reading.Location, "error", err)
	}
}

func (s *service) cacheEnabled() bool {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return false
	}
	if policy, ok := s.fetcher.(cachePolicy); ok {
		return policy.Cacheable()
	}
	return true
}

func (s *service) lookupCache(ctx context.Context, key string) (Reading, bool) {
	if !s.cacheEnabled() {
		return Reading{}, false
	}
	reading, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("reading cache lookup failed", "key", key, "error", err)
		return Reading{}, false
	}
	return reading, ok
}

func (s *service) storeCache(ctx context.Context, key string, reading Reading) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Put(ctx, key, reading, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("reading cache store failed", "key", key, "error", err)
	}
}

// CacheKey normalizes a location query for cache lookups.
func CacheKey(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}
