package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/airguard/internal/domain/airquality"
	apperrors "github.com/yanqian/airguard/pkg/errors"
)

const (
	defaultBaseURL = "https://api.waqi.info"
	modelVersion   = "waqi-daily"
	// dailyConfidence is attached to forecasts taken from the upstream feed.
	dailyConfidence = 0.7
)

// Client fetches city feeds from the World Air Quality Index API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds an API client. An empty baseURL uses the public endpoint.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Source implements the optional source label used in metrics.
func (c *Client) Source() string { return "waqi" }

// Fetch resolves a city name into the latest station reading.
func (c *Client) Fetch(ctx context.Context, locationQuery string) (airquality.Reading, error) {
	city := strings.TrimSpace(locationQuery)
	if city == "" {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeInvalidInput, "location cannot be empty", nil)
	}
	endpoint := fmt.Sprintf("%s/feed/%s/?token=%s", c.baseURL, url.PathEscape(city), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeInvalidInput, "build waqi request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "waqi request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeNotFound, "unknown station "+city, nil)
	}
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "waqi request error",
			fmt.Errorf("status=%d body=%s", resp.StatusCode, string(payload)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "read waqi response", err)
	}

	var raw feedResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "decode waqi response", err)
	}
	if raw.Status != "ok" {
		return airquality.Reading{}, statusError(city, raw.Data)
	}

	var data feedData
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "decode waqi feed", err)
	}
	reading, err := normalizeFeed(data)
	if err != nil {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeNotFound, "no aqi reported for "+city, err)
	}
	reading.Location = city
	reading.Source = c.Source()
	reading.Raw = body
	return reading, nil
}

func statusError(city string, data json.RawMessage) error {
	var message string
	_ = json.Unmarshal(data, &message)
	if strings.Contains(strings.ToLower(message), "unknown station") {
		return apperrors.Wrap(apperrors.CodeNotFound, "unknown station "+city, nil)
	}
	if message == "" {
		message = "unspecified error"
	}
	return apperrors.Wrap(apperrors.CodeTransient, "waqi api error", errors.New(message))
}

type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI         json.RawMessage `json:"aqi"`
	Idx         int             `json:"idx"`
	City        feedCity        `json:"city"`
	DominentPol string          `json:"dominentpol"`
	IAQI        feedIAQI        `json:"iaqi"`
	Time        feedTime        `json:"time"`
	Forecast    feedForecast    `json:"forecast"`
}

type feedCity struct {
	Geo  []float64 `json:"geo"`
	Name string    `json:"name"`
	URL  string    `json:"url"`
}

type measurement struct {
	V float64 `json:"v"`
}

type feedIAQI struct {
	PM25 *measurement `json:"pm25"`
	PM10 *measurement `json:"pm10"`
	O3   *measurement `json:"o3"`
	NO2  *measurement `json:"no2"`
	SO2  *measurement `json:"so2"`
	CO   *measurement `json:"co"`
	T    *measurement `json:"t"`
	H    *measurement `json:"h"`
	P    *measurement `json:"p"`
	W    *measurement `json:"w"`
}

type feedTime struct {
	S   string `json:"s"`
	TZ  string `json:"tz"`
	V   int64  `json:"v"`
	ISO string `json:"iso"`
}

type dailyEntry struct {
	Avg float64 `json:"avg"`
	Day string  `json:"day"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

type feedForecast struct {
	Daily struct {
		O3   []dailyEntry `json:"o3"`
		PM10 []dailyEntry `json:"pm10"`
		PM25 []dailyEntry `json:"pm25"`
	} `json:"daily"`
}

// normalizeFeed maps the feed onto a reading. iaqi values are per-pollutant
// sub-indices and are shown as-is.
func normalizeFeed(data feedData) (airquality.Reading, error) {
	aqi, err := parseAQI(data.AQI)
	if err != nil {
		return airquality.Reading{}, err
	}
	reading := airquality.Reading{
		AQI:               aqi,
		DominantPollutant: data.DominentPol,
		Pollutants: airquality.Pollutants{
			PM25: value(data.IAQI.PM25),
			PM10: value(data.IAQI.PM10),
			O3:   value(data.IAQI.O3),
			NO2:  value(data.IAQI.NO2),
			SO2:  value(data.IAQI.SO2),
			CO:   value(data.IAQI.CO),
		},
		Weather: airquality.Weather{
			Temperature: value(data.IAQI.T),
			Humidity:    value(data.IAQI.H),
			Pressure:    optional(data.IAQI.P),
			WindSpeed:   optional(data.IAQI.W),
		},
		Timestamp: parseTime(data.Time),
	}
	reading.Forecast = dailyForecast(data.Forecast.Daily.PM25, stationDay(data.Time))
	return reading, nil
}

// parseAQI accepts numbers and numeric strings; stations without data
// report "-".
func parseAQI(raw json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("unexpected aqi value %s", string(raw))
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("station reports no aqi (%q)", text)
	}
	return number, nil
}

// dailyForecast picks the first three days after today, both in station
// local dates.
func dailyForecast(entries []dailyEntry, today string) *airquality.Forecast {
	if today == "" || len(entries) == 0 {
		return nil
	}
	sorted := append([]dailyEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	var forecast airquality.Forecast
	n := 0
	for _, entry := range sorted {
		if entry.Day <= today {
			continue
		}
		forecast.Points[n] = airquality.ForecastPoint{
			HorizonHours: int(airquality.ForecastHorizons[n].Hours()),
			AQI:          entry.Avg,
		}
		n++
		if n == len(forecast.Points) {
			forecast.Confidence = dailyConfidence
			forecast.ModelVersion = modelVersion
			return &forecast
		}
	}
	return nil
}

func parseTime(t feedTime) time.Time {
	if t.ISO != "" {
		if ts, err := time.Parse(time.RFC3339, t.ISO); err == nil {
			return ts.UTC()
		}
	}
	if t.V > 0 {
		return time.Unix(t.V, 0).UTC()
	}
	return time.Time{}
}

// stationDay returns the observation date in the station's own offset, which
// is the calendar forecast.daily uses.
func stationDay(t feedTime) string {
	if t.ISO != "" {
		if ts, err := time.Parse(time.RFC3339, t.ISO); err == nil {
			return ts.Format(time.DateOnly)
		}
	}
	if len(t.S) >= len(time.DateOnly) {
		if day, err := time.Parse(time.DateOnly, t.S[:len(time.DateOnly)]); err == nil {
			return day.Format(time.DateOnly)
		}
	}
	if t.V > 0 {
		ts := time.Unix(t.V, 0).UTC()
		if offset, err := time.Parse("-07:00", t.TZ); err == nil {
			_, secs := offset.Zone()
			ts = ts.In(time.FixedZone(t.TZ, secs))
		}
		return ts.Format(time.DateOnly)
	}
	return ""
}

func value(m *measurement) float64 {
	if m == nil {
		return 0
	}
	return m.V
}

func optional(m *measurement) *float64 {
	if m == nil {
		return nil
	}
	v := m.V
	return &v
}

var _ airquality.Fetcher = (*Client)(nil)
