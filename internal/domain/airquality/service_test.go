package airquality

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/airguard/pkg/errors"
)

func TestServiceDashboardEndToEnd(t *testing.T) {
	fetcher := &stubFetcher{readings: []Reading{{AQI: 140, Source: "stub"}}}
	svc, state := newTestService(fetcher, nil)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 85.0, dash.Reading.AQI)
	require.False(t, dash.IsUnhealthy)
	require.Empty(t, dash.Banner)
	require.Equal(t, CategoryModerate, dash.Classification.Category)
	require.Equal(t, MessageModerateAsthma, dash.Recommendation)

	dash, err = svc.UpdateLocation(context.Background(), UpdateRequest{Location: "  Delhi, India "})
	require.NoError(t, err)
	require.True(t, dash.IsUnhealthy)
	require.Equal(t, BannerUnhealthy, dash.Banner)
	require.Equal(t, CategoryUnhealthyForSensitiveGroups, dash.Classification.Category)
	require.Equal(t, MessageSensitiveAtRisk, dash.Recommendation)
	require.Equal(t, "Delhi, India", dash.Reading.Location)
	require.Equal(t, testNow, dash.Reading.Timestamp)
	require.Equal(t, []string{"Delhi, India"}, fetcher.queries)

	reading, _, updating := state.Snapshot()
	require.Equal(t, 140.0, reading.AQI)
	require.False(t, updating)
}

func TestServiceUpdateRejectsBlankLocation(t *testing.T) {
	fetcher := &stubFetcher{}
	svc, _ := newTestService(fetcher, nil)

	_, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Empty(t, fetcher.queries)
}

func TestServiceFetchFailureKeepsPreviousReading(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not found", apperrors.Wrap(apperrors.CodeNotFound, "unknown station", nil), apperrors.CodeNotFound},
		{"transient", apperrors.Wrap(apperrors.CodeTransient, "upstream down", nil), apperrors.CodeTransient},
		{"foreign error", errors.New("boom"), apperrors.CodeTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, state := newTestService(&stubFetcher{err: tc.err}, nil)

			_, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Atlantis"})
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tc.code))

			reading, _, updating := state.Snapshot()
			require.Equal(t, "New York, NY", reading.Location)
			require.Equal(t, 85.0, reading.AQI)
			require.False(t, updating)
		})
	}
}

func TestServiceRejectsConcurrentUpdate(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	svc, _ := newTestService(fetcher, nil)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Paris"})
	}()
	<-fetcher.started

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.True(t, dash.Updating)

	_, err = svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Rome"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpdateInProgress))

	close(fetcher.release)
	wg.Wait()
	require.NoError(t, firstErr)

	dash, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.False(t, dash.Updating)
	require.Equal(t, "Paris", dash.Reading.Location)
}

func TestServiceUsesCacheBeforeFetching(t *testing.T) {
	fetcher := &stubFetcher{readings: []Reading{{AQI: 42}}}
	cache := newStubCache()
	recorder := &stubRecorder{}
	svc, _ := newTestService(fetcher, cache)
	svc.recorder = recorder

	first, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Oslo"})
	require.NoError(t, err)
	second, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: " oslo "})
	require.NoError(t, err)

	require.Len(t, fetcher.queries, 1)
	require.Equal(t, first.Reading.AQI, second.Reading.AQI)
	require.Equal(t, time.Minute, cache.lastTTL)
	require.Len(t, recorder.dashboards, 1)
}

func TestServiceSkipsCacheForUncacheableFetcher(t *testing.T) {
	fetcher := &uncacheableFetcher{stubFetcher: stubFetcher{readings: []Reading{{AQI: 42}, {AQI: 171}}}}
	cache := newStubCache()
	recorder := &stubRecorder{}
	svc, _ := newTestService(fetcher, cache)
	svc.recorder = recorder

	first, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Paris"})
	require.NoError(t, err)
	second, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Paris"})
	require.NoError(t, err)

	require.Equal(t, []string{"Paris", "Paris"}, fetcher.queries)
	require.Equal(t, 42.0, first.Reading.AQI)
	require.Equal(t, 171.0, second.Reading.AQI)
	require.Empty(t, cache.items)
	require.Len(t, recorder.dashboards, 2)
}

func TestServiceAttachesForecastAndArchives(t *testing.T) {
	fetcher := &stubFetcher{readings: []Reading{{AQI: 60, Raw: []byte(`{"status":"ok"}`)}}}
	forecast := Forecast{ModelVersion: "persistence-v1"}
	archiver := &stubArchiver{}
	svc, _ := newTestService(fetcher, nil)
	svc.forecaster = stubForecaster{forecast: forecast}
	svc.archiver = archiver

	dash, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Lima"})
	require.NoError(t, err)
	require.NotNil(t, dash.Reading.Forecast)
	require.Equal(t, "persistence-v1", dash.Reading.Forecast.ModelVersion)
	require.Equal(t, 1, archiver.calls)
}

func TestServiceForecastFailureDoesNotFailUpdate(t *testing.T) {
	fetcher := &stubFetcher{readings: []Reading{{AQI: 60}}}
	svc, _ := newTestService(fetcher, nil)
	svc.forecaster = stubForecaster{err: errors.New("llm offline")}
	svc.recorder = &stubRecorder{err: errors.New("db offline")}

	dash, err := svc.UpdateLocation(context.Background(), UpdateRequest{Location: "Lima"})
	require.NoError(t, err)
	require.Nil(t, dash.Reading.Forecast)
}

func TestServiceEvaluate(t *testing.T) {
	svc, _ := newTestService(&stubFetcher{}, nil)

	aqi := 120.0
	eval, err := svc.Evaluate(context.Background(), EvaluateRequest{AQI: &aqi})
	require.NoError(t, err)
	require.Equal(t, MessageSensitiveAtRisk, eval.Recommendation)
	require.True(t, eval.IsUnhealthy)

	eval, err = svc.Evaluate(context.Background(), EvaluateRequest{AQI: &aqi, Profile: &HealthProfile{SensitivityLevel: "HIGH"}})
	require.NoError(t, err)
	require.Equal(t, MessageSensitive, eval.Recommendation)

	_, err = svc.Evaluate(context.Background(), EvaluateRequest{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Evaluate(context.Background(), EvaluateRequest{AQI: &aqi, Profile: &HealthProfile{SensitivityLevel: "extreme"}})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

var testNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func newTestService(fetcher Fetcher, cache Cache) (*service, *State) {
	state := NewState(SeedReading("", testNow), DefaultProfile())
	svc := &service{
		cfg:     Config{CacheTTL: time.Minute},
		state:   state,
		fetcher: fetcher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     func() time.Time { return testNow },
	}
	if cache != nil {
		svc.cache = cache
	}
	return svc, state
}

type stubFetcher struct {
	readings []Reading
	err      error
	queries  []string
}

func (s *stubFetcher) Fetch(_ context.Context, query string) (Reading, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return Reading{}, s.err
	}
	if len(s.readings) == 0 {
		return Reading{AQI: 10}, nil
	}
	next := s.readings[0]
	if len(s.readings) > 1 {
		s.readings = s.readings[1:]
	}
	return next, nil
}

type uncacheableFetcher struct {
	stubFetcher
}

func (u *uncacheableFetcher) Cacheable() bool { return false }

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, query string) (Reading, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return Reading{}, ctx.Err()
	}
	return Reading{AQI: 33, Location: query}, nil
}

type stubCache struct {
	mu      sync.Mutex
	items   map[string]Reading
	lastTTL time.Duration
}

func newStubCache() *stubCache {
	return &stubCache{items: make(map[string]Reading)}
}

func (c *stubCache) Get(_ context.Context, key string) (Reading, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[key]
	return r, ok, nil
}

func (c *stubCache) Put(_ context.Context, key string, reading Reading, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = reading
	c.lastTTL = ttl
	return nil
}

type stubForecaster struct {
	forecast Forecast
	err      error
}

func (s stubForecaster) Forecast(_ context.Context, _ Reading) (Forecast, error) {
	return s.forecast, s.err
}

type stubRecorder struct {
	dashboards []Dashboard
	err        error
}

func (s *stubRecorder) Record(_ context.Context, dash Dashboard) error {
	s.dashboards = append(s.dashboards, dash)
	return s.err
}

type stubArchiver struct {
	calls int
}

func (s *stubArchiver) Archive(_ context.Context, _ Reading) error {
	s.calls++
	return nil
}
