package recordstore

import (
	"encoding/json"
	"time"

	"github.com/yanqian/airguard/internal/domain/records"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// tableSpec describes how one record type maps onto its table. values
// returns the writable columns (everything except id and timestamps) with
// typed identifiers flattened to plain strings.
type tableSpec[T any] struct {
	name         string
	columns      []string
	uuidColumns  map[string]bool
	hasUpdatedAt bool
	id           func(T) string
	withID       func(T, string) T
	stamp        func(row T, createdAt, updatedAt time.Time) T
	created      func(T) time.Time
	values       func(T) map[string]any
	scan         func(rowScanner) (T, error)
}

func uuids(cols ...string) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}
	return out
}

func idValue[T ~string](p *T) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func jsonValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

var locationsTable = tableSpec[records.Location]{
	name:         "locations",
	columns:      []string{"id", "city", "state", "country", "latitude", "longitude", "created_at", "updated_at"},
	uuidColumns:  uuids("id"),
	hasUpdatedAt: true,
	id:           func(r records.Location) string { return string(r.ID) },
	withID:       func(r records.Location, id string) records.Location { r.ID = records.LocationID(id); return r },
	stamp: func(r records.Location, c, u time.Time) records.Location {
		r.CreatedAt, r.UpdatedAt = c, u
		return r
	},
	created: func(r records.Location) time.Time { return r.CreatedAt },
	values: func(r records.Location) map[string]any {
		return map[string]any{
			"city":      r.City,
			"state":     r.State,
			"country":   r.Country,
			"latitude":  r.Latitude,
			"longitude": r.Longitude,
		}
	},
	scan: func(row rowScanner) (records.Location, error) {
		var r records.Location
		err := row.Scan(&r.ID, &r.City, &r.State, &r.Country, &r.Latitude, &r.Longitude, &r.CreatedAt, &r.UpdatedAt)
		return r, err
	},
}

var stationsTable = tableSpec[records.Station]{
	name:         "stations",
	columns:      []string{"id", "location_id", "station_name", "station_code", "is_active", "latitude", "longitude", "created_at", "updated_at"},
	uuidColumns:  uuids("id", "location_id"),
	hasUpdatedAt: true,
	id:           func(r records.Station) string { return string(r.ID) },
	withID:       func(r records.Station, id string) records.Station { r.ID = records.StationID(id); return r },
	stamp: func(r records.Station, c, u time.Time) records.Station {
		r.CreatedAt, r.UpdatedAt = c, u
		return r
	},
	created: func(r records.Station) time.Time { return r.CreatedAt },
	values: func(r records.Station) map[string]any {
		return map[string]any{
			"location_id":  string(r.LocationID),
			"station_name": r.StationName,
			"station_code": r.StationCode,
			"is_active":    r.IsActive,
			"latitude":     r.Latitude,
			"longitude":    r.Longitude,
		}
	},
	scan: func(row rowScanner) (records.Station, error) {
		var r records.Station
		err := row.Scan(&r.ID, &r.LocationID, &r.StationName, &r.StationCode, &r.IsActive, &r.Latitude, &r.Longitude, &r.CreatedAt, &r.UpdatedAt)
		return r, err
	},
}

var pollutantsTable = tableSpec[records.Pollutant]{
	name:        "pollutants",
	columns:     []string{"id", "code", "name", "unit", "description", "created_at"},
	uuidColumns: uuids("id"),
	id:          func(r records.Pollutant) string { return string(r.ID) },
	withID:      func(r records.Pollutant, id string) records.Pollutant { r.ID = records.PollutantID(id); return r },
	stamp: func(r records.Pollutant, c, _ time.Time) records.Pollutant {
		r.CreatedAt = c
		return r
	},
	created: func(r records.Pollutant) time.Time { return r.CreatedAt },
	values: func(r records.Pollutant) map[string]any {
		return map[string]any{
			"code":        r.Code,
			"name":        r.Name,
			"unit":        r.Unit,
			"description": r.Description,
		}
	},
	scan: func(row rowScanner) (records.Pollutant, error) {
		var r records.Pollutant
		err := row.Scan(&r.ID, &r.Code, &r.Name, &r.Unit, &r.Description, &r.CreatedAt)
		return r, err
	},
}

var readingsTable = tableSpec[records.PollutantReading]{
	name:         "air_quality_readings",
	columns:      []string{"id", "station_id", "pollutant_id", "measured_at", "avg_value", "min_value", "max_value", "unit", "data_source", "created_at", "updated_at"},
	uuidColumns:  uuids("id", "station_id", "pollutant_id"),
	hasUpdatedAt: true,
	id:           func(r records.PollutantReading) string { return r.ID },
	withID:       func(r records.PollutantReading, id string) records.PollutantReading { r.ID = id; return r },
	stamp: func(r records.PollutantReading, c, u time.Time) records.PollutantReading {
		r.CreatedAt, r.UpdatedAt = c, u
		return r
	},
	created: func(r records.PollutantReading) time.Time { return r.CreatedAt },
	values: func(r records.PollutantReading) map[string]any {
		return map[string]any{
			"station_id":   string(r.StationID),
			"pollutant_id": string(r.PollutantID),
			"measured_at":  r.MeasuredAt,
			"avg_value":    r.AvgValue,
			"min_value":    r.MinValue,
			"max_value":    r.MaxValue,
			"unit":         r.Unit,
			"data_source":  r.DataSource,
		}
	},
	scan: func(row rowScanner) (records.PollutantReading, error) {
		var r records.PollutantReading
		err := row.Scan(&r.ID, &r.StationID, &r.PollutantID, &r.MeasuredAt, &r.AvgValue, &r.MinValue, &r.MaxValue, &r.Unit, &r.DataSource, &r.CreatedAt, &r.UpdatedAt)
		return r, err
	},
}

var summariesTable = tableSpec[records.Summary]{
	name: "air_quality_summary",
	columns: []string{
		"id", "location_id", "station_id", "measured_at", "aqi", "aqi_bucket_id", "dominant_pollutant",
		"pm25", "pm10", "o3", "no", "no2", "nox", "so2", "co", "nh3", "benzene", "toluene", "xylene",
		"temperature", "humidity", "wind_speed", "wind_direction", "summary_type", "data_source",
		"created_at", "updated_at",
	},
	uuidColumns:  uuids("id", "location_id", "station_id", "aqi_bucket_id"),
	hasUpdatedAt: true,
	id:           func(r records.Summary) string { return r.ID },
	withID:       func(r records.Summary, id string) records.Summary { r.ID = id; return r },
	stamp: func(r records.Summary, c, u time.Time) records.Summary {
		r.CreatedAt, r.UpdatedAt = c, u
		return r
	},
	created: func(r records.Summary) time.Time { return r.CreatedAt },
	values: func(r records.Summary) map[string]any {
		return map[string]any{
			"location_id":        string(r.LocationID),
			"station_id":         string(r.StationID),
			"measured_at":        r.MeasuredAt,
			"aqi":                r.AQI,
			"aqi_bucket_id":      idValue(r.AQIBucketID),
			"dominant_pollutant": r.DominantPollutant,
			"pm25":               r.PM25,
			"pm10":               r.PM10,
			"o3":                 r.O3,
			"no":                 r.NO,
			"no2":                r.NO2,
			"nox":                r.NOx,
			"so2":                r.SO2,
			"co":                 r.CO,
			"nh3":                r.NH3,
			"benzene":            r.Benzene,
			"toluene":            r.Toluene,
			"xylene":             r.Xylene,
			"temperature":        r.Temperature,
			"humidity":           r.Humidity,
			"wind_speed":         r.WindSpeed,
			"wind_direction":     r.WindDirection,
			"summary_type":       r.SummaryType,
			"data_source":        r.DataSource,
		}
	},
	scan: func(row rowScanner) (records.Summary, error) {
		var r records.Summary
		err := row.Scan(
			&r.ID, &r.LocationID, &r.StationID, &r.MeasuredAt, &r.AQI, &r.AQIBucketID, &r.DominantPollutant,
			&r.PM25, &r.PM10, &r.O3, &r.NO, &r.NO2, &r.NOx, &r.SO2, &r.CO, &r.NH3, &r.Benzene, &r.Toluene, &r.Xylene,
			&r.Temperature, &r.Humidity, &r.WindSpeed, &r.WindDirection, &r.SummaryType, &r.DataSource,
			&r.CreatedAt, &r.UpdatedAt,
		)
		return r, err
	},
}

var bucketsTable = tableSpec[records.AQIBucket]{
	name:        "aqi_buckets",
	columns:     []string{"id", "name", "min_aqi", "max_aqi", "color_code", "health_message", "created_at"},
	uuidColumns: uuids("id"),
	id:          func(r records.AQIBucket) string { return string(r.ID) },
	withID:      func(r records.AQIBucket, id string) records.AQIBucket { r.ID = records.BucketID(id); return r },
	stamp: func(r records.AQIBucket, c, _ time.Time) records.AQIBucket {
		r.CreatedAt = c
		return r
	},
	created: func(r records.AQIBucket) time.Time { return r.CreatedAt },
	values: func(r records.AQIBucket) map[string]any {
		return map[string]any{
			"name":           r.Name,
			"min_aqi":        r.MinAQI,
			"max_aqi":        r.MaxAQI,
			"color_code":     r.ColorCode,
			"health_message": r.HealthMessage,
		}
	},
	scan: func(row rowScanner) (records.AQIBucket, error) {
		var r records.AQIBucket
		err := row.Scan(&r.ID, &r.Name, &r.MinAQI, &r.MaxAQI, &r.ColorCode, &r.HealthMessage, &r.CreatedAt)
		return r, err
	},
}

var alertsTable = tableSpec[records.HealthAlert]{
	name: "health_alerts",
	columns: []string{
		"id", "location_id", "user_id", "alert_type", "severity", "title", "message",
		"aqi_value", "dominant_pollutant", "is_read", "expires_at", "created_at",
	},
	uuidColumns: uuids("id", "location_id", "user_id"),
	id:          func(r records.HealthAlert) string { return r.ID },
	withID:      func(r records.HealthAlert, id string) records.HealthAlert { r.ID = id; return r },
	stamp: func(r records.HealthAlert, c, _ time.Time) records.HealthAlert {
		r.CreatedAt = c
		return r
	},
	created: func(r records.HealthAlert) time.Time { return r.CreatedAt },
	values: func(r records.HealthAlert) map[string]any {
		return map[string]any{
			"location_id":        string(r.LocationID),
			"user_id":            r.UserID,
			"alert_type":         r.AlertType,
			"severity":           r.Severity,
			"title":              r.Title,
			"message":            r.Message,
			"aqi_value":          r.AQIValue,
			"dominant_pollutant": r.DominantPollutant,
			"is_read":            r.IsRead,
			"expires_at":         r.ExpiresAt,
		}
	},
	scan: func(row rowScanner) (records.HealthAlert, error) {
		var r records.HealthAlert
		err := row.Scan(&r.ID, &r.LocationID, &r.UserID, &r.AlertType, &r.Severity, &r.Title, &r.Message,
			&r.AQIValue, &r.DominantPollutant, &r.IsRead, &r.ExpiresAt, &r.CreatedAt)
		return r, err
	},
}

var predictionsTable = tableSpec[records.AIPrediction]{
	name: "ai_predictions",
	columns: []string{
		"id", "location_id", "predicted_for", "predicted_aqi", "predicted_bucket",
		"confidence_score", "model_version", "weather_factors", "created_at",
	},
	uuidColumns: uuids("id", "location_id"),
	id:          func(r records.AIPrediction) string { return r.ID },
	withID:      func(r records.AIPrediction, id string) records.AIPrediction { r.ID = id; return r },
	stamp: func(r records.AIPrediction, c, _ time.Time) records.AIPrediction {
		r.CreatedAt = c
		return r
	},
	created: func(r records.AIPrediction) time.Time { return r.CreatedAt },
	values: func(r records.AIPrediction) map[string]any {
		return map[string]any{
			"location_id":      string(r.LocationID),
			"predicted_for":    r.PredictedFor,
			"predicted_aqi":    r.PredictedAQI,
			"predicted_bucket": r.PredictedBucket,
			"confidence_score": r.ConfidenceScore,
			"model_version":    r.ModelVersion,
			"weather_factors":  jsonValue(r.WeatherFactors),
		}
	},
	scan: func(row rowScanner) (records.AIPrediction, error) {
		var r records.AIPrediction
		err := row.Scan(&r.ID, &r.LocationID, &r.PredictedFor, &r.PredictedAQI, &r.PredictedBucket,
			&r.ConfidenceScore, &r.ModelVersion, &r.WeatherFactors, &r.CreatedAt)
		return r, err
	},
}

var profilesTable = tableSpec[records.UserProfile]{
	name: "user_profiles",
	columns: []string{
		"id", "user_id", "full_name", "age", "health_conditions", "sensitivity_level",
		"preferred_location_id", "notification_preferences", "created_at", "updated_at",
	},
	uuidColumns:  uuids("id", "user_id", "preferred_location_id"),
	hasUpdatedAt: true,
	id:           func(r records.UserProfile) string { return r.ID },
	withID:       func(r records.UserProfile, id string) records.UserProfile { r.ID = id; return r },
	stamp: func(r records.UserProfile, c, u time.Time) records.UserProfile {
		r.CreatedAt, r.UpdatedAt = c, u
		return r
	},
	created: func(r records.UserProfile) time.Time { return r.CreatedAt },
	values: func(r records.UserProfile) map[string]any {
		return map[string]any{
			"user_id":                  r.UserID,
			"full_name":                r.FullName,
			"age":                      r.Age,
			"health_conditions":        r.HealthConditions,
			"sensitivity_level":        r.SensitivityLevel,
			"preferred_location_id":    idValue(r.PreferredLocationID),
			"notification_preferences": jsonValue(r.NotificationPreferences),
		}
	},
	scan: func(row rowScanner) (records.UserProfile, error) {
		var r records.UserProfile
		err := row.Scan(&r.ID, &r.UserID, &r.FullName, &r.Age, &r.HealthConditions, &r.SensitivityLevel,
			&r.PreferredLocationID, &r.NotificationPreferences, &r.CreatedAt, &r.UpdatedAt)
		return r, err
	},
}
