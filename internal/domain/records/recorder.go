package records

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/airguard/internal/domain/airquality"
	apperrors "github.com/yanqian/airguard/pkg/errors"
	"github.com/yanqian/airguard/pkg/util"
)

const (
	compositeStationCode = "composite"
	alertTypeThreshold   = "aqi_threshold"
	summaryTypeSnapshot  = "snapshot"
)

// RecorderConfig tunes how snapshots are persisted.
type RecorderConfig struct {
	AlertTTL time.Duration
}

// Recorder persists dashboard snapshots as summary, alert and prediction rows.
type Recorder struct {
	cfg     RecorderConfig
	catalog *Catalog
	logger  *slog.Logger
	now     util.Clock
}

// NewRecorder builds a recorder over catalog.
func NewRecorder(cfg RecorderConfig, catalog *Catalog, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger.With("component", "records.recorder"),
		now:     util.NowUTC,
	}
}

// Record implements airquality.Recorder.
func (r *Recorder) Record(ctx context.Context, dash airquality.Dashboard) error {
	reading := dash.Reading
	place := ParsePlace(reading.Location)
	if place.City == "" {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "reading has no location", nil)
	}

	location, err := r.ensureLocation(ctx, place)
	if err != nil {
		return err
	}
	station, err := r.ensureStation(ctx, location)
	if err != nil {
		return err
	}
	bucket, err := r.ensureBucket(ctx, dash.Classification.Category)
	if err != nil {
		return err
	}

	summary := Summary{
		LocationID:        location.ID,
		StationID:         station.ID,
		MeasuredAt:        reading.Timestamp,
		AQI:               ptr(reading.AQI),
		AQIBucketID:       &bucket.ID,
		DominantPollutant: optional(reading.DominantPollutant),
		PM25:              ptr(reading.Pollutants.PM25),
		PM10:              ptr(reading.Pollutants.PM10),
		O3:                ptr(reading.Pollutants.O3),
		NO2:               ptr(reading.Pollutants.NO2),
		SO2:               ptr(reading.Pollutants.SO2),
		CO:                ptr(reading.Pollutants.CO),
		Temperature:       ptr(reading.Weather.Temperature),
		Humidity:          ptr(reading.Weather.Humidity),
		WindSpeed:         reading.Weather.WindSpeed,
		SummaryType:       ptr(summaryTypeSnapshot),
		DataSource:        optional(reading.Source),
	}
	if _, err := r.catalog.Summaries.Insert(ctx, summary); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "insert summary failed", err)
	}

	if dash.IsUnhealthy {
		if err := r.raiseAlert(ctx, location, dash); err != nil {
			return err
		}
	}
	if reading.Forecast != nil {
		if err := r.storePredictions(ctx, location, reading); err != nil {
			return err
		}
	}
	r.logger.Debug("dashboard snapshot recorded", "location_id", location.ID, "unhealthy", dash.IsUnhealthy)
	return nil
}

func (r *Recorder) ensureLocation(ctx context.Context, place Place) (Location, error) {
	loc, found, err := r.catalog.FindLocation(ctx, place)
	if err != nil {
		return Location{}, err
	}
	if found {
		return loc, nil
	}
	loc, err = r.catalog.Locations.Insert(ctx, Location{City: place.City, State: place.State, Country: place.Country})
	if err != nil {
		return Location{}, apperrors.Wrap(apperrors.CodeStorage, "insert location failed", err)
	}
	return loc, nil
}

func (r *Recorder) ensureStation(ctx context.Context, loc Location) (Station, error) {
	rows, err := r.catalog.Stations.List(ctx, Filter{"location_id": string(loc.ID), "station_code": compositeStationCode})
	if err != nil {
		return Station{}, apperrors.Wrap(apperrors.CodeStorage, "list stations failed", err)
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	station, err := r.catalog.Stations.Insert(ctx, Station{
		LocationID:  loc.ID,
		StationName: loc.City + " composite",
		StationCode: ptr(compositeStationCode),
		IsActive:    ptr(true),
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
	})
	if err != nil {
		return Station{}, apperrors.Wrap(apperrors.CodeStorage, "insert station failed", err)
	}
	return station, nil
}

func (r *Recorder) ensureBucket(ctx context.Context, category airquality.Category) (AQIBucket, error) {
	rows, err := r.catalog.Buckets.List(ctx, Filter{"name": string(category)})
	if err != nil {
		return AQIBucket{}, apperrors.Wrap(apperrors.CodeStorage, "list aqi buckets failed", err)
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	for _, band := range airquality.Bands() {
		if band.Category != category {
			continue
		}
		row := AQIBucket{
			Name:          string(band.Category),
			MinAQI:        lowerOf(band),
			MaxAQI:        500,
			ColorCode:     ptr(band.ColorToken),
			HealthMessage: ptr(airquality.Recommend(upperOf(band), airquality.HealthProfile{})),
		}
		if band.MaxAQI != nil {
			row.MaxAQI = *band.MaxAQI
		}
		bucket, err := r.catalog.Buckets.Insert(ctx, row)
		if err != nil {
			return AQIBucket{}, apperrors.Wrap(apperrors.CodeStorage, "insert aqi bucket failed", err)
		}
		return bucket, nil
	}
	return AQIBucket{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unknown category "+string(category), nil)
}

func (r *Recorder) raiseAlert(ctx context.Context, loc Location, dash airquality.Dashboard) error {
	alert := HealthAlert{
		LocationID:        loc.ID,
		AlertType:         alertTypeThreshold,
		Severity:          severityOf(dash.Classification.Category),
		Title:             "Health Alert",
		Message:           dash.Recommendation,
		AQIValue:          ptr(dash.Reading.AQI),
		DominantPollutant: optional(dash.Reading.DominantPollutant),
		IsRead:            ptr(false),
	}
	if r.cfg.AlertTTL > 0 {
		alert.ExpiresAt = ptr(r.now().Add(r.cfg.AlertTTL))
	}
	if _, err := r.catalog.Alerts.Insert(ctx, alert); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "insert health alert failed", err)
	}
	return nil
}

func (r *Recorder) storePredictions(ctx context.Context, loc Location, reading airquality.Reading) error {
	factors, err := json.Marshal(map[string]float64{
		"temperature": reading.Weather.Temperature,
		"humidity":    reading.Weather.Humidity,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "encode weather factors failed", err)
	}
	forecast := reading.Forecast
	for _, point := range forecast.Points {
		prediction := AIPrediction{
			LocationID:      loc.ID,
			PredictedFor:    reading.Timestamp.Add(time.Duration(point.HorizonHours) * time.Hour),
			PredictedAQI:    ptr(point.AQI),
			PredictedBucket: ptr(string(airquality.Classify(point.AQI).Category)),
			ConfidenceScore: ptr(forecast.Confidence),
			ModelVersion:    optional(forecast.ModelVersion),
			WeatherFactors:  factors,
		}
		if _, err := r.catalog.Predictions.Insert(ctx, prediction); err != nil {
			return apperrors.Wrap(apperrors.CodeStorage, "insert prediction failed", err)
		}
	}
	return nil
}

func severityOf(category airquality.Category) string {
	return strings.ReplaceAll(strings.ToLower(string(category)), " ", "_")
}

// lowerOf floors the open Good band at 0, the smallest index the bucket
// table stores.
func lowerOf(band airquality.Band) float64 {
	if band.MinAQI != nil {
		return *band.MinAQI
	}
	return 0
}

func upperOf(band airquality.Band) float64 {
	if band.MaxAQI != nil {
		return *band.MaxAQI
	}
	return lowerOf(band) + 1
}

func ptr[T any](v T) *T {
	return &v
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

var _ airquality.Recorder = (*Recorder)(nil)
