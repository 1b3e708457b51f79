package records

import (
	"encoding/json"
	"time"
)

// Typed identifiers for foreign keys. Values are generated UUID strings.
type (
	LocationID  string
	StationID   string
	PollutantID string
	BucketID    string
)

// Location is a row of the locations table.
type Location struct {
	ID        LocationID `json:"id"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	Country   string     `json:"country"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Station is a row of the stations table.
type Station struct {
	ID          StationID  `json:"id"`
	LocationID  LocationID `json:"locationId"`
	StationName string     `json:"stationName"`
	StationCode *string    `json:"stationCode,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Pollutant is a row of the pollutants table.
type Pollutant struct {
	ID          PollutantID `json:"id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Unit        *string     `json:"unit,omitempty"`
	Description *string     `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// PollutantReading is a row of air_quality_readings: one pollutant measured
// at one station.
type PollutantReading struct {
	ID          string      `json:"id"`
	StationID   StationID   `json:"stationId"`
	PollutantID PollutantID `json:"pollutantId"`
	MeasuredAt  time.Time   `json:"measuredAt"`
	AvgValue    *float64    `json:"avgValue,omitempty"`
	MinValue    *float64    `json:"minValue,omitempty"`
	MaxValue    *float64    `json:"maxValue,omitempty"`
	Unit        *string     `json:"unit,omitempty"`
	DataSource  *string     `json:"dataSource,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Summary is a row of air_quality_summary: the full snapshot for a location.
type Summary struct {
	ID                string     `json:"id"`
	LocationID        LocationID `json:"locationId"`
	StationID         StationID  `json:"stationId"`
	MeasuredAt        time.Time  `json:"measuredAt"`
	AQI               *float64   `json:"aqi,omitempty"`
	AQIBucketID       *BucketID  `json:"aqiBucketId,omitempty"`
	DominantPollutant *string    `json:"dominantPollutant,omitempty"`
	PM25              *float64   `json:"pm25,omitempty"`
	PM10              *float64   `json:"pm10,omitempty"`
	O3                *float64   `json:"o3,omitempty"`
	NO                *float64   `json:"no,omitempty"`
	NO2               *float64   `json:"no2,omitempty"`
	NOx               *float64   `json:"nox,omitempty"`
	SO2               *float64   `json:"so2,omitempty"`
	CO                *float64   `json:"co,omitempty"`
	NH3               *float64   `json:"nh3,omitempty"`
	Benzene           *float64   `json:"benzene,omitempty"`
	Toluene           *float64   `json:"toluene,omitempty"`
	Xylene            *float64   `json:"xylene,omitempty"`
	Temperature       *float64   `json:"temperature,omitempty"`
	Humidity          *float64   `json:"humidity,omitempty"`
	WindSpeed         *float64   `json:"windSpeed,omitempty"`
	WindDirection     *string    `json:"windDirection,omitempty"`
	SummaryType       *string    `json:"summaryType,omitempty"`
	DataSource        *string    `json:"dataSource,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// AQIBucket is a row of aqi_buckets.
type AQIBucket struct {
	ID            BucketID  `json:"id"`
	Name          string    `json:"name"`
	MinAQI        float64   `json:"minAqi"`
	MaxAQI        float64   `json:"maxAqi"`
	ColorCode     *string   `json:"colorCode,omitempty"`
	HealthMessage *string   `json:"healthMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HealthAlert is a row of health_alerts.
type HealthAlert struct {
	ID                string     `json:"id"`
	LocationID        LocationID `json:"locationId"`
	UserID            *string    `json:"userId,omitempty"`
	AlertType         string     `json:"alertType"`
	Severity          string     `json:"severity"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	AQIValue          *float64   `json:"aqiValue,omitempty"`
	DominantPollutant *string    `json:"dominantPollutant,omitempty"`
	IsRead            *bool      `json:"isRead,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// AIPrediction is a row of ai_predictions.
type AIPrediction struct {
	ID              string          `json:"id"`
	LocationID      LocationID      `json:"locationId"`
	PredictedFor    time.Time       `json:"predictedFor"`
	PredictedAQI    *float64        `json:"predictedAqi,omitempty"`
	PredictedBucket *string         `json:"predictedBucket,omitempty"`
	ConfidenceScore *float64        `json:"confidenceScore,omitempty"`
	ModelVersion    *string         `json:"modelVersion,omitempty"`
	WeatherFactors  json.RawMessage `json:"weatherFactors,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// UserProfile is a row of user_profiles.
type UserProfile struct {
	ID                      string          `json:"id"`
	UserID                  string          `json:"userId"`
	FullName                *string         `json:"fullName,omitempty"`
	Age                     *int            `json:"age,omitempty"`
	HealthConditions        []string        `json:"healthConditions,omitempty"`
	SensitivityLevel        *string         `json:"sensitivityLevel,omitempty"`
	PreferredLocationID     *LocationID     `json:"preferredLocationId,omitempty"`
	NotificationPreferences json.RawMessage `json:"notificationPreferences,omitempty"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}
