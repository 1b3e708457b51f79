package waqi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/airguard/internal/domain/airquality"
	apperrors "github.com/yanqian/airguard/pkg/errors"
)

const okFeed = `{
  "status": "ok",
  "data": {
    "aqi": 142,
    "idx": 1451,
    "dominentpol": "pm25",
    "city": {"geo": [39.95, 116.46], "name": "Beijing", "url": "https://aqicn.org/city/beijing"},
    "iaqi": {
      "pm25": {"v": 142}, "pm10": {"v": 61}, "o3": {"v": 12.3}, "no2": {"v": 18.1},
      "so2": {"v": 2.4}, "co": {"v": 7.1}, "t": {"v": 21.5}, "h": {"v": 48}, "p": {"v": 1012}, "w": {"v": 3.6}
    },
    "time": {"s": "2024-05-01 16:00:00", "tz": "+08:00", "v": 1714579200, "iso": "2024-05-01T16:00:00+08:00"},
    "forecast": {"daily": {"pm25": [
      {"avg": 120, "day": "2024-05-01", "max": 150, "min": 90},
      {"avg": 98, "day": "2024-05-02", "max": 130, "min": 70},
      {"avg": 140, "day": "2024-05-03", "max": 160, "min": 110},
      {"avg": 75, "day": "2024-05-04", "max": 90, "min": 50}
    ]}}
  }
}`

func TestClientFetchMapsFeed(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		_, _ = w.Write([]byte(okFeed))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", time.Second)
	reading, err := client.Fetch(context.Background(), " Beijing ")
	require.NoError(t, err)
	require.Equal(t, "/feed/Beijing/", gotPath)
	require.Equal(t, "secret", gotToken)

	require.Equal(t, "Beijing", reading.Location)
	require.Equal(t, 142.0, reading.AQI)
	require.Equal(t, "pm25", reading.DominantPollutant)
	require.Equal(t, 61.0, reading.Pollutants.PM10)
	require.Equal(t, 21.5, reading.Weather.Temperature)
	require.NotNil(t, reading.Weather.Pressure)
	require.Equal(t, 1012.0, *reading.Weather.Pressure)
	require.Nil(t, reading.Weather.Visibility)
	require.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), reading.Timestamp)
	require.Equal(t, "waqi", reading.Source)
	require.NotEmpty(t, reading.Raw)

	require.NotNil(t, reading.Forecast)
	require.Equal(t, 24, reading.Forecast.Points[0].HorizonHours)
	require.Equal(t, 98.0, reading.Forecast.Points[0].AQI)
	require.Equal(t, 72, reading.Forecast.Points[2].HorizonHours)
	require.Equal(t, 75.0, reading.Forecast.Points[2].AQI)
}

func TestClientFetchErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "unknown station", status: http.StatusOK, body: `{"status":"error","data":"Unknown station"}`, code: apperrors.CodeNotFound},
		{name: "invalid key", status: http.StatusOK, body: `{"status":"error","data":"Invalid key"}`, code: apperrors.CodeTransient},
		{name: "no data", status: http.StatusOK, body: `{"status":"ok","data":{"aqi":"-"}}`, code: apperrors.CodeNotFound},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, code: apperrors.CodeTransient},
		{name: "garbage", status: http.StatusOK, body: `not json`, code: apperrors.CodeTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, "t", time.Second).Fetch(context.Background(), "Atlantis")
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, tc.code), err.Error())
		})
	}
}

func TestClientFetchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := NewClient(server.URL, "t", time.Second).Fetch(context.Background(), "Paris")
	require.True(t, apperrors.IsCode(err, apperrors.CodeTransient))
}

func TestClientFetchRejectsBlank(t *testing.T) {
	_, err := NewClient("", "t", 0).Fetch(context.Background(), "  ")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestParseAQIAcceptsNumericStrings(t *testing.T) {
	v, err := parseAQI([]byte(`"57"`))
	require.NoError(t, err)
	require.Equal(t, 57.0, v)
}

func TestDailyForecastUsesStationLocalDate(t *testing.T) {
	entries := []dailyEntry{
		{Avg: 120, Day: "2024-05-01"},
		{Avg: 98, Day: "2024-05-02"},
		{Avg: 140, Day: "2024-05-03"},
		{Avg: 75, Day: "2024-05-04"},
		{Avg: 60, Day: "2024-05-05"},
	}
	observed := feedTime{TZ: "+08:00", V: 1714586400, ISO: "2024-05-02T02:00:00+08:00"}

	require.Equal(t, time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC), parseTime(observed))
	require.Equal(t, "2024-05-02", stationDay(observed))

	forecast := dailyForecast(entries, stationDay(observed))
	require.NotNil(t, forecast)
	require.Equal(t, airquality.ForecastPoint{HorizonHours: 24, AQI: 140}, forecast.Points[0])
	require.Equal(t, airquality.ForecastPoint{HorizonHours: 72, AQI: 60}, forecast.Points[2])
}

func TestStationDayFallbacks(t *testing.T) {
	tests := []struct {
		name string
		in   feedTime
		want string
	}{
		{"iso offset", feedTime{ISO: "2024-05-02T23:30:00-05:00"}, "2024-05-02"},
		{"local string", feedTime{S: "2024-05-02 02:00:00", TZ: "+08:00"}, "2024-05-02"},
		{"epoch with offset", feedTime{V: 1714586400, TZ: "+08:00"}, "2024-05-02"},
		{"epoch without offset", feedTime{V: 1714586400}, "2024-05-01"},
		{"empty", feedTime{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, stationDay(tc.in))
		})
	}
}
