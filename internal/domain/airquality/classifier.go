package airquality

// Category is one of the five ordinal AQI labels.
type Category string

const (
	CategoryGood                        Category = "Good"
	CategoryModerate                    Category = "Moderate"
	CategoryUnhealthyForSensitiveGroups Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy                   Category = "Unhealthy"
	CategoryVeryUnhealthy               Category = "Very Unhealthy"
)

// Classification pairs a category with its presentation tokens.
type Classification struct {
	Category        Category `json:"category"`
	ColorToken      string   `json:"colorToken"`
	BackgroundToken string   `json:"backgroundToken"`
}

// Band is one row of the classification table. MinAQI is exclusive and
// MaxAQI inclusive. A nil bound is open: Good has no lower bound since
// negative values classify as Good, and Very Unhealthy has no upper bound.
type Band struct {
	Classification
	MinAQI *float64 `json:"minAqi,omitempty"`
	MaxAQI *float64 `json:"maxAqi,omitempty"`
}

var (
	good          = Classification{Category: CategoryGood, ColorToken: "air-excellent", BackgroundToken: "air-excellent-bg"}
	moderate      = Classification{Category: CategoryModerate, ColorToken: "air-good", BackgroundToken: "air-good-bg"}
	sensitive     = Classification{Category: CategoryUnhealthyForSensitiveGroups, ColorToken: "air-moderate", BackgroundToken: "air-moderate-bg"}
	unhealthy     = Classification{Category: CategoryUnhealthy, ColorToken: "air-unhealthy", BackgroundToken: "air-unhealthy-bg"}
	veryUnhealthy = Classification{Category: CategoryVeryUnhealthy, ColorToken: "air-hazardous", BackgroundToken: "air-hazardous-bg"}
)

// Classify maps an AQI to its category. Upper bounds are inclusive and any
// value at or below 50, negatives included, is Good.
func Classify(aqi float64) Classification {
	switch {
	case aqi <= 50:
		return good
	case aqi <= 100:
		return moderate
	case aqi <= 150:
		return sensitive
	case aqi <= 200:
		return unhealthy
	default:
		return veryUnhealthy
	}
}

// Bands returns the classification table in ascending order.
func Bands() []Band {
	bound := func(v float64) *float64 { return &v }
	return []Band{
		{Classification: good, MaxAQI: bound(50)},
		{Classification: moderate, MinAQI: bound(50), MaxAQI: bound(100)},
		{Classification: sensitive, MinAQI: bound(100), MaxAQI: bound(150)},
		{Classification: unhealthy, MinAQI: bound(150), MaxAQI: bound(200)},
		{Classification: veryUnhealthy, MinAQI: bound(200)},
	}
}
