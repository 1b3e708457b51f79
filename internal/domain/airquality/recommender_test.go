package airquality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecommend(t *testing.T) {
	asthma := HealthProfile{HasAsthma: true, Age: 35, SensitivityLevel: SensitivityMedium}
	heart := HealthProfile{HasHeartCondition: true, Age: 70, SensitivityLevel: SensitivityHigh}
	healthy := HealthProfile{Age: 30, SensitivityLevel: SensitivityLow}

	tests := []struct {
		name    string
		aqi     float64
		profile HealthProfile
		want    string
	}{
		{"good ignores asthma", 30, asthma, MessageGood},
		{"good ignores heart", 30, heart, MessageGood},
		{"good healthy", 30, healthy, MessageGood},
		{"moderate asthma", 85, asthma, MessageModerateAsthma},
		{"moderate healthy", 85, healthy, MessageModerate},
		{"moderate heart only", 85, heart, MessageModerate},
		{"sensitive heart", 120, heart, MessageSensitiveAtRisk},
		{"sensitive asthma", 120, asthma, MessageSensitiveAtRisk},
		{"sensitive healthy", 120, healthy, MessageSensitive},
		{"unhealthy", 180, healthy, MessageUniversalAlert},
		{"very unhealthy", 250, asthma, MessageUniversalAlert},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Recommend(tc.aqi, tc.profile))
		})
	}
}

func TestRecommendIgnoresAgeAndSensitivity(t *testing.T) {
	base := HealthProfile{HasAsthma: false, Age: 20, SensitivityLevel: SensitivityLow}
	other := HealthProfile{HasAsthma: false, Age: 90, SensitivityLevel: SensitivityHigh}
	for _, aqi := range []float64{10, 85, 120, 180, 250} {
		require.Equal(t, Recommend(aqi, base), Recommend(aqi, other))
	}
}

func TestRecommendAbove150IsProfileIndependent(t *testing.T) {
	require.Equal(t, Recommend(180, DefaultProfile()), Recommend(250, HealthProfile{}))
}

func TestIsUnhealthy(t *testing.T) {
	require.False(t, IsUnhealthy(85))
	require.False(t, IsUnhealthy(100))
	require.True(t, IsUnhealthy(100.5))
	require.True(t, IsUnhealthy(140))
}

func TestBuildDashboardNotices(t *testing.T) {
	dash := buildDashboard(Reading{AQI: 140}, DefaultProfile(), false)
	require.True(t, dash.IsUnhealthy)
	require.Equal(t, BannerUnhealthy, dash.Banner)
	require.Equal(t, NoticeAsthmaInhalerNear, dash.AsthmaNotice)

	dash = buildDashboard(Reading{AQI: 40}, HealthProfile{}, false)
	require.False(t, dash.IsUnhealthy)
	require.Empty(t, dash.Banner)
	require.Empty(t, dash.AsthmaNotice)
}

func TestParseSensitivityLevel(t *testing.T) {
	level, ok := ParseSensitivityLevel(" HIGH ")
	require.True(t, ok)
	require.Equal(t, SensitivityHigh, level)

	_, ok = ParseSensitivityLevel("extreme")
	require.False(t, ok)
}
