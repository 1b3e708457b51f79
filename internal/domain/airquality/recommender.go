package airquality

const (
	MessageGood             = "Air quality is excellent! Perfect for all outdoor activities."
	MessageModerateAsthma   = "Consider limiting prolonged outdoor activities. Keep rescue inhaler handy."
	MessageModerate         = "Air quality is acceptable for most people."
	MessageSensitiveAtRisk  = "⚠️ Avoid outdoor activities. Stay indoors with air purification."
	MessageSensitive        = "Sensitive individuals should limit outdoor exposure."
	MessageUniversalAlert   = "🚨 Health Alert: Everyone should avoid outdoor activities. Keep windows closed."
	BannerUnhealthy         = "Air quality may be unhealthy for sensitive individuals."
	NoticeAsthmaInhalerNear = "Asthma Alert: Keep your rescue inhaler accessible"
)

// Recommend returns the guidance for aqi. Only the asthma and heart
// condition flags are consulted, and only for Moderate and Unhealthy for
// Sensitive Groups.
func Recommend(aqi float64, profile HealthProfile) string {
	switch Classify(aqi).Category {
	case CategoryGood:
		return MessageGood
	case CategoryModerate:
		if profile.HasAsthma {
			return MessageModerateAsthma
		}
		return MessageModerate
	case CategoryUnhealthyForSensitiveGroups:
		if profile.HasAsthma || profile.HasHeartCondition {
			return MessageSensitiveAtRisk
		}
		return MessageSensitive
	default:
		return MessageUniversalAlert
	}
}

// IsUnhealthy gates the generic alert banner.
func IsUnhealthy(aqi float64) bool {
	return aqi > 100
}

// Evaluate bundles classification, recommendation and the banner flag.
func Evaluate(aqi float64, profile HealthProfile) Evaluation {
	return Evaluation{
		AQI:            aqi,
		Classification: Classify(aqi),
		Recommendation: Recommend(aqi, profile),
		IsUnhealthy:    IsUnhealthy(aqi),
	}
}

func buildDashboard(reading Reading, profile HealthProfile, updating bool) Dashboard {
	eval := Evaluate(reading.AQI, profile)
	dash := Dashboard{
		Reading:        reading,
		Classification: eval.Classification,
		Recommendation: eval.Recommendation,
		IsUnhealthy:    eval.IsUnhealthy,
		Profile:        profile,
		Updating:       updating,
	}
	if dash.IsUnhealthy {
		dash.Banner = BannerUnhealthy
	}
	if profile.HasAsthma {
		dash.AsthmaNotice = NoticeAsthmaInhalerNear
	}
	return dash
}
