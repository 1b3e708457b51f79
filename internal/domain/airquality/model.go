package airquality

import (
	"strings"
	"time"
)

// Pollutants carries display-only concentrations. They are not validated
// against the AQI.
type Pollutants struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	O3   float64 `json:"o3"`
	NO2  float64 `json:"no2"`
	SO2  float64 `json:"so2"`
	CO   float64 `json:"co"`
}

// Weather groups the meteorological readings shipped with a snapshot.
type Weather struct {
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Pressure    *float64 `json:"pressure,omitempty"`
	WindSpeed   *float64 `json:"windSpeed,omitempty"`
	Visibility  *float64 `json:"visibility,omitempty"`
}

// ForecastHorizons are the fixed offsets every forecast covers.
var ForecastHorizons = [3]time.Duration{24 * time.Hour, 48 * time.Hour, 72 * time.Hour}

// ForecastPoint is the predicted AQI at one horizon.
type ForecastPoint struct {
	HorizonHours int     `json:"horizonHours"`
	AQI          float64 `json:"aqi"`
}

// Forecast holds one point per entry of ForecastHorizons.
type Forecast struct {
	Points       [3]ForecastPoint `json:"points"`
	Confidence   float64          `json:"confidence"`
	ModelVersion string           `json:"modelVersion"`
	Summary      string           `json:"summary,omitempty"`
}

// Reading is a point-in-time snapshot for a location. It is replaced
// wholesale on every update.
type Reading struct {
	Location          string     `json:"location"`
	AQI               float64    `json:"aqi"`
	Pollutants        Pollutants `json:"pollutants"`
	Weather           Weather    `json:"weather"`
	DominantPollutant string     `json:"dominantPollutant,omitempty"`
	Forecast          *Forecast  `json:"forecast,omitempty"`
	Source            string     `json:"source"`
	Timestamp         time.Time  `json:"timestamp"`
	// Raw is the upstream payload, kept for archiving only.
	Raw []byte `json:"-"`
}

// SensitivityLevel is reserved profile data; recommendations do not read it.
type SensitivityLevel string

const (
	SensitivityLow    SensitivityLevel = "low"
	SensitivityMedium SensitivityLevel = "medium"
	SensitivityHigh   SensitivityLevel = "high"
)

// ParseSensitivityLevel accepts the three known levels case-insensitively.
func ParseSensitivityLevel(raw string) (SensitivityLevel, bool) {
	switch SensitivityLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case SensitivityLow:
		return SensitivityLow, true
	case SensitivityMedium:
		return SensitivityMedium, true
	case SensitivityHigh:
		return SensitivityHigh, true
	default:
		return "", false
	}
}

// HealthProfile is fixed for the lifetime of a service instance.
type HealthProfile struct {
	HasAsthma         bool             `json:"hasAsthma"`
	HasHeartCondition bool             `json:"hasHeartCondition"`
	Age               int              `json:"age"`
	SensitivityLevel  SensitivityLevel `json:"sensitivityLevel"`
}

// DefaultProfile mirrors the profile the dashboard ships with.
func DefaultProfile() HealthProfile {
	return HealthProfile{
		HasAsthma:         true,
		HasHeartCondition: false,
		Age:               35,
		SensitivityLevel:  SensitivityMedium,
	}
}

// SeedReading is the reading shown before the first location update.
func SeedReading(location string, now time.Time) Reading {
	if strings.TrimSpace(location) == "" {
		location = "New York, NY"
	}
	return Reading{
		Location: location,
		AQI:      85,
		Pollutants: Pollutants{
			PM25: 35.2,
			PM10: 45.8,
			O3:   0.089,
			NO2:  0.045,
			SO2:  0.012,
			CO:   1.2,
		},
		Weather: Weather{
			Temperature: 22,
			Humidity:    65,
		},
		Source:    "seed",
		Timestamp: now,
	}
}

// Dashboard is the derived view returned to API consumers.
type Dashboard struct {
	Reading        Reading        `json:"reading"`
	Classification Classification `json:"classification"`
	Recommendation string         `json:"recommendation"`
	IsUnhealthy    bool           `json:"isUnhealthy"`
	Banner         string         `json:"banner,omitempty"`
	AsthmaNotice   string         `json:"asthmaNotice,omitempty"`
	Profile        HealthProfile  `json:"profile"`
	Updating       bool           `json:"updating"`
}

// UpdateRequest asks the service to load a new location.
type UpdateRequest struct {
	Location string `json:"location"`
}

// EvaluateRequest classifies an arbitrary AQI; Profile defaults to the
// session profile when omitted.
type EvaluateRequest struct {
	AQI     *float64       `json:"aqi"`
	Profile *HealthProfile `json:"profile,omitempty"`
}

// Evaluation is the stateless classify + recommend result.
type Evaluation struct {
	AQI            float64        `json:"aqi"`
	Classification Classification `json:"classification"`
	Recommendation string         `json:"recommendation"`
	IsUnhealthy    bool           `json:"isUnhealthy"`
}

// Config wires runtime knobs for the dashboard domain.
type Config struct {
	CacheTTL time.Duration
}
