package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/airguard/internal/domain/airquality"
	"github.com/yanqian/airguard/internal/domain/records"
	"github.com/yanqian/airguard/internal/infra/config"
	apperrors "github.com/yanqian/airguard/pkg/errors"
	"github.com/yanqian/airguard/pkg/metrics"
)

func TestRouter_DashboardSuccess(t *testing.T) {
	dash := airquality.Dashboard{
		Reading:        airquality.SeedReading("New York, NY", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		Classification: airquality.Classify(85),
		Recommendation: airquality.MessageModerateAsthma,
	}
	svc := &stubDashboard{dashboardFn: func(context.Context) (airquality.Dashboard, error) { return dash, nil }}

	recorder := performRequest(http.MethodGet, "/api/v1/dashboard", "", newRouterUnderTest(t, svc, nil, defaultTestConfig()))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got airquality.Dashboard
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "New York, NY", got.Reading.Location)
	require.Equal(t, airquality.CategoryModerate, got.Classification.Category)
	require.Equal(t, "air-good", got.Classification.ColorToken)
}

func TestRouter_UpdateLocationSuccess(t *testing.T) {
	svc := &stubDashboard{
		updateFn: func(_ context.Context, req airquality.UpdateRequest) (airquality.Dashboard, error) {
			require.Equal(t, "Los Angeles, CA", req.Location)
			return airquality.Dashboard{Reading: airquality.Reading{Location: req.Location, AQI: 140}}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"Los Angeles, CA"}`, newRouterUnderTest(t, svc, nil, defaultTestConfig()))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got airquality.Dashboard
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, 140.0, got.Reading.AQI)
}

func TestRouter_UpdateLocationErrorStatuses(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{code: apperrors.CodeInvalidInput, status: http.StatusBadRequest},
		{code: apperrors.CodeNotFound, status: http.StatusNotFound},
		{code: apperrors.CodeUpdateInProgress, status: http.StatusConflict},
		{code: apperrors.CodeTransient, status: http.StatusServiceUnavailable},
		{code: apperrors.CodeStorage, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubDashboard{
				updateFn: func(context.Context, airquality.UpdateRequest) (airquality.Dashboard, error) {
					return airquality.Dashboard{}, apperrors.Wrap(tc.code, "update failed", nil)
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"x"}`, newRouterUnderTest(t, svc, nil, defaultTestConfig()))
			require.Equal(t, tc.status, recorder.Code)

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
			require.Contains(t, errBody["error"]["message"], "update failed")
		})
	}
}

func TestRouter_UpdateLocationInvalidJSON(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":123}`, newRouterUnderTest(t, &stubDashboard{}, nil, defaultTestConfig()))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeInvalidInput, errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_UpdateLocationRetriesTransientFailure(t *testing.T) {
	var calls int
	svc := &stubDashboard{
		updateFn: func(_ context.Context, req airquality.UpdateRequest) (airquality.Dashboard, error) {
			calls++
			require.Equal(t, "Paris", req.Location)
			if calls == 1 {
				return airquality.Dashboard{}, apperrors.Wrap(apperrors.CodeTransient, "upstream down", nil)
			}
			return airquality.Dashboard{Reading: airquality.Reading{Location: req.Location}}, nil
		},
	}
	cfg := defaultTestConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"Paris"}`, newRouterUnderTest(t, svc, nil, cfg))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, calls)
}

func TestRouter_UpdateLocationDoesNotRetryInternalFailure(t *testing.T) {
	var calls int
	svc := &stubDashboard{
		updateFn: func(context.Context, airquality.UpdateRequest) (airquality.Dashboard, error) {
			calls++
			return airquality.Dashboard{}, apperrors.Wrap(apperrors.CodeStorage, "record snapshot failed", nil)
		},
	}
	cfg := defaultTestConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"Paris"}`, newRouterUnderTest(t, svc, nil, cfg))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Equal(t, 1, calls)
}

func TestRouter_UpdateLocationGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	svc := &stubDashboard{
		updateFn: func(context.Context, airquality.UpdateRequest) (airquality.Dashboard, error) {
			calls++
			return airquality.Dashboard{}, apperrors.Wrap(apperrors.CodeTransient, "upstream down", nil)
		},
	}
	cfg := defaultTestConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"Paris"}`, newRouterUnderTest(t, svc, nil, cfg))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, "1", recorder.Header().Get("Retry-After"))
	require.Equal(t, 3, calls)
}

func TestRouter_RetryBackoffStopsWhenClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	svc := &stubDashboard{
		updateFn: func(context.Context, airquality.UpdateRequest) (airquality.Dashboard, error) {
			calls++
			cancel()
			return airquality.Dashboard{}, apperrors.Wrap(apperrors.CodeTransient, "upstream down", nil)
		},
	}
	cfg := defaultTestConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Hour}
	server := newRouterUnderTest(t, svc, nil, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/location", strings.NewReader(`{"location":"Paris"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	start := time.Now()
	server.Handler.ServeHTTP(rec, req)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ErrorBodyHidesCause(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "wrapped upstream cause",
			err:     apperrors.Wrap(apperrors.CodeTransient, "air quality source unavailable", errors.New("waqi request error: status=500 body=secret")),
			status:  http.StatusServiceUnavailable,
			code:    apperrors.CodeTransient,
			message: "air quality source unavailable",
		},
		{
			name:    "foreign error",
			err:     errors.New("pq: connection refused to 10.0.0.5"),
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "something went wrong",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubDashboard{
				updateFn: func(context.Context, airquality.UpdateRequest) (airquality.Dashboard, error) {
					return airquality.Dashboard{}, tc.err
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/dashboard/location", `{"location":"x"}`, newRouterUnderTest(t, svc, nil, defaultTestConfig()))
			require.Equal(t, tc.status, recorder.Code)
			require.NotContains(t, recorder.Body.String(), "secret")
			require.NotContains(t, recorder.Body.String(), "10.0.0.5")

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
			require.Equal(t, tc.message, errBody["error"]["message"])
		})
	}
}

func TestRouter_Recommendations(t *testing.T) {
	svc := &stubDashboard{
		evaluateFn: func(_ context.Context, req airquality.EvaluateRequest) (airquality.Evaluation, error) {
			require.NotNil(t, req.AQI)
			require.NotNil(t, req.Profile)
			return airquality.Evaluate(*req.AQI, *req.Profile), nil
		},
	}

	body := `{"aqi":120,"profile":{"hasAsthma":false,"hasHeartCondition":true,"age":60,"sensitivityLevel":"high"}}`
	recorder := performRequest(http.MethodPost, "/api/v1/recommendations", body, newRouterUnderTest(t, svc, nil, defaultTestConfig()))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got airquality.Evaluation
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, airquality.CategoryUnhealthyForSensitiveGroups, got.Classification.Category)
	require.Equal(t, airquality.MessageSensitiveAtRisk, got.Recommendation)
	require.True(t, got.IsUnhealthy)
}

func TestRouter_Categories(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/api/v1/categories", "", newRouterUnderTest(t, &stubDashboard{}, nil, defaultTestConfig()))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got struct {
		Categories []airquality.Band `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Categories, 5)
	require.Equal(t, airquality.CategoryGood, got.Categories[0].Category)
	require.Nil(t, got.Categories[0].MinAQI)
	require.NotContains(t, recorder.Body.String(), `"unbounded"`)
	require.Nil(t, got.Categories[4].MaxAQI)
	require.Equal(t, 200.0, *got.Categories[4].MinAQI)
}

func TestRouter_LocationAlerts(t *testing.T) {
	alerts := &stubAlerts{
		alerts: map[records.LocationID][]records.HealthAlert{
			"loc-1": {{ID: "a-1", LocationID: "loc-1", Severity: "unhealthy", Title: "Health Alert"}},
		},
	}
	server := newRouterUnderTest(t, &stubDashboard{}, alerts, defaultTestConfig())

	recorder := performRequest(http.MethodGet, "/api/v1/locations/loc-1/alerts", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	var got struct {
		Alerts []records.HealthAlert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Alerts, 1)
	require.Equal(t, "a-1", got.Alerts[0].ID)

	recorder = performRequest(http.MethodGet, "/api/v1/locations/missing/alerts", "", server)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.SetCurrentAQI(42)
	handler := NewHandler(&stubDashboard{}, &stubAlerts{}, newTestLogger())
	server := NewRouter(defaultTestConfig(), handler, m)

	recorder := performRequest(http.MethodGet, "/healthz", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())

	recorder = performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "airguard_current_aqi 42")
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.HTTP.AllowedOrigins = []string{"https://dashboard.example"}
	server := newRouterUnderTest(t, &stubDashboard{}, nil, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.HTTP.AllowedOrigins = []string{"https://dashboard.example/"}
	server := newRouterUnderTest(t, &stubDashboard{}, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := newRouterUnderTest(t, &stubDashboard{}, nil, cfg)

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/api/v1/categories", "", server).Code)
	recorder := performRequest(http.MethodGet, "/api/v1/categories", "", server)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newRouterUnderTest(t *testing.T, svc airquality.Service, alerts AlertLister, cfg *config.Config) *http.Server {
	t.Helper()
	if alerts == nil {
		alerts = &stubAlerts{}
	}
	handler := NewHandler(svc, alerts, newTestLogger())
	return NewRouter(cfg, handler, metrics.New())
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubDashboard struct {
	dashboardFn func(ctx context.Context) (airquality.Dashboard, error)
	updateFn    func(ctx context.Context, req airquality.UpdateRequest) (airquality.Dashboard, error)
	evaluateFn  func(ctx context.Context, req airquality.EvaluateRequest) (airquality.Evaluation, error)
}

func (s *stubDashboard) Dashboard(ctx context.Context) (airquality.Dashboard, error) {
	if s.dashboardFn != nil {
		return s.dashboardFn(ctx)
	}
	return airquality.Dashboard{}, nil
}

func (s *stubDashboard) UpdateLocation(ctx context.Context, req airquality.UpdateRequest) (airquality.Dashboard, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, req)
	}
	return airquality.Dashboard{}, nil
}

func (s *stubDashboard) Evaluate(ctx context.Context, req airquality.EvaluateRequest) (airquality.Evaluation, error) {
	if s.evaluateFn != nil {
		return s.evaluateFn(ctx, req)
	}
	return airquality.Evaluation{}, nil
}

type stubAlerts struct {
	mu     sync.Mutex
	alerts map[records.LocationID][]records.HealthAlert
}

func (s *stubAlerts) LocationAlerts(_ context.Context, id records.LocationID) ([]records.HealthAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alerts, ok := s.alerts[id]
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "location "+strings.TrimSpace(string(id))+" not found", nil)
	}
	return alerts, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
