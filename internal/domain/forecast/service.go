package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/yanqian/airguard/internal/domain/airquality"
	"github.com/yanqian/airguard/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/airguard/pkg/errors"
)

const (
	persistenceModel       = "persistence-v1"
	persistenceSummary     = "Conditions are expected to persist over the next three days."
	defaultPersistenceConf = 0.5
)

// ChatClient is the subset of the ChatGPT client used for forecasts.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// Config tunes the forecaster.
type Config struct {
	Model                 string
	Temperature           float32
	Prompt                string
	PersistenceConfidence float64
}

type service struct {
	cfg    Config
	client ChatClient
	logger *slog.Logger
}

// NewService builds a forecaster. A nil client yields persistence forecasts
// only.
func NewService(cfg Config, client ChatClient, logger *slog.Logger) airquality.Forecaster {
	if cfg.PersistenceConfidence <= 0 || cfg.PersistenceConfidence > 1 {
		cfg.PersistenceConfidence = defaultPersistenceConf
	}
	return &service{cfg: cfg, client: client, logger: logger.With("component", "forecast.service")}
}

// Forecast asks the model for the three horizons and falls back to the
// persistence forecast when the model is unavailable or answers badly.
func (s *service) Forecast(ctx context.Context, reading airquality.Reading) (airquality.Forecast, error) {
	if math.IsNaN(reading.AQI) || math.IsInf(reading.AQI, 0) {
		return airquality.Forecast{}, apperrors.Wrap(apperrors.CodeInvalidInput, "cannot forecast a non-finite aqi", nil)
	}
	if s.client == nil {
		return s.persistence(reading), nil
	}
	forecast, err := s.fromModel(ctx, reading)
	if err != nil {
		if ctx.Err() != nil {
			return airquality.Forecast{}, apperrors.Wrap(apperrors.CodeTransient, "forecast cancelled", ctx.Err())
		}
		s.logger.Warn("llm forecast failed, using persistence forecast", "location", reading.Location, "error", err)
		return s.persistence(reading), nil
	}
	return forecast, nil
}

func (s *service) persistence(reading airquality.Reading) airquality.Forecast {
	var forecast airquality.Forecast
	for i, horizon := range airquality.ForecastHorizons {
		forecast.Points[i] = airquality.ForecastPoint{HorizonHours: int(horizon.Hours()), AQI: reading.AQI}
	}
	forecast.Confidence = s.cfg.PersistenceConfidence
	forecast.ModelVersion = persistenceModel
	forecast.Summary = persistenceSummary
	return forecast
}

func (s *service) fromModel(ctx context.Context, reading airquality.Reading) (airquality.Forecast, error) {
	prompt, err := buildUserPrompt(reading)
	if err != nil {
		return airquality.Forecast{}, err
	}
	completion, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []chatgpt.Message{
			{Role: "system", Content: s.buildSystemPrompt()},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &chatgpt.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return airquality.Forecast{}, apperrors.Wrap("llm_error", "chatgpt request failed", err)
	}
	if len(completion.Choices) == 0 {
		return airquality.Forecast{}, apperrors.Wrap("llm_error", "chatgpt returned no choices", nil)
	}
	forecast, err := parseForecast(completion.Choices[0].Message.Content)
	if err != nil {
		return airquality.Forecast{}, apperrors.Wrap("llm_error", "chatgpt response malformed", err)
	}
	forecast.ModelVersion = firstNonEmpty(completion.Model, s.cfg.Model)
	s.logger.Debug("llm forecast ready", "location", reading.Location, "model", forecast.ModelVersion)
	return forecast, nil
}

func (s *service) buildSystemPrompt() string {
	base := strings.TrimSpace(s.cfg.Prompt)
	if base == "" {
		base = "You are an air quality forecaster. Predict the US EPA AQI for the location in the reading."
	}
	enforcer := " Respond ONLY with valid minified JSON using this shape: {\"points\":[{\"horizonHours\":24,\"aqi\":number},{\"horizonHours\":48,\"aqi\":number},{\"horizonHours\":72,\"aqi\":number}],\"confidence\":number,\"summary\":string}. confidence is between 0 and 1. Never return plain text or other fields."
	return base + enforcer
}

func buildUserPrompt(reading airquality.Reading) (string, error) {
	payload, err := json.Marshal(reading)
	if err != nil {
		return "", fmt.Errorf("encode reading: %w", err)
	}
	return fmt.Sprintf("Forecast the AQI 24, 48 and 72 hours after %s based ONLY on this reading: %s",
		reading.Timestamp.UTC().Format("2006-01-02T15:04Z"), payload), nil
}

type forecastWire struct {
	Points []struct {
		HorizonHours int     `json:"horizonHours"`
		AQI          float64 `json:"aqi"`
	} `json:"points"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

func parseForecast(raw string) (airquality.Forecast, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))

	var wire forecastWire
	if err := json.Unmarshal([]byte(sanitized), &wire); err != nil {
		return airquality.Forecast{}, err
	}
	byHorizon := make(map[int]float64, len(wire.Points))
	for _, p := range wire.Points {
		byHorizon[p.HorizonHours] = p.AQI
	}

	var forecast airquality.Forecast
	for i, horizon := range airquality.ForecastHorizons {
		hours := int(horizon.Hours())
		aqi, ok := byHorizon[hours]
		if !ok {
			return airquality.Forecast{}, fmt.Errorf("missing %dh horizon", hours)
		}
		if math.IsNaN(aqi) || math.IsInf(aqi, 0) {
			return airquality.Forecast{}, errors.New("non-finite aqi in forecast")
		}
		forecast.Points[i] = airquality.ForecastPoint{HorizonHours: hours, AQI: math.Max(0, aqi)}
	}
	forecast.Confidence = math.Min(1, math.Max(0, wire.Confidence))
	forecast.Summary = strings.TrimSpace(wire.Summary)
	return forecast, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
