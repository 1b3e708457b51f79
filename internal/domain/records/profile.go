package records

import (
	"context"
	"strings"

	"github.com/yanqian/airguard/internal/domain/airquality"
	apperrors "github.com/yanqian/airguard/pkg/errors"
)

// ProfileFromRow maps a user_profiles row onto the session health profile.
func ProfileFromRow(row UserProfile) airquality.HealthProfile {
	profile := airquality.HealthProfile{SensitivityLevel: airquality.SensitivityMedium}
	for _, condition := range row.HealthConditions {
		c := strings.ToLower(strings.TrimSpace(condition))
		switch {
		case strings.Contains(c, "asthma"):
			profile.HasAsthma = true
		case strings.Contains(c, "heart"), strings.Contains(c, "cardio"):
			profile.HasHeartCondition = true
		}
	}
	if row.Age != nil {
		profile.Age = *row.Age
	}
	if row.SensitivityLevel != nil {
		if level, ok := airquality.ParseSensitivityLevel(*row.SensitivityLevel); ok {
			profile.SensitivityLevel = level
		}
	}
	return profile
}

// LoadProfile looks up the profile row owned by userID.
func (c *Catalog) LoadProfile(ctx context.Context, userID string) (UserProfile, error) {
	rows, err := c.Profiles.List(ctx, Filter{"user_id": userID})
	if err != nil {
		return UserProfile{}, apperrors.Wrap(apperrors.CodeStorage, "list user profiles failed", err)
	}
	if len(rows) == 0 {
		return UserProfile{}, apperrors.Wrap(apperrors.CodeNotFound, "no profile for user "+userID, nil)
	}
	return rows[0], nil
}
