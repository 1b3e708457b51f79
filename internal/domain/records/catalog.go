package records

import (
	"context"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/yanqian/airguard/pkg/errors"
)

// Filter selects rows whose columns equal the given values. An empty filter
// selects every row.
type Filter map[string]any

// Table is row-level access to one table. Insert fills server defaults
// (id, timestamps) and returns the stored row; Update replaces the row with
// the same id.
type Table[T any] interface {
	Insert(ctx context.Context, row T) (T, error)
	Get(ctx context.Context, id string) (T, bool, error)
	Update(ctx context.Context, row T) (T, error)
	List(ctx context.Context, filter Filter) ([]T, error)
}

// Catalog groups the tables of the external store.
type Catalog struct {
	Locations   Table[Location]
	Stations    Table[Station]
	Pollutants  Table[Pollutant]
	Readings    Table[PollutantReading]
	Summaries   Table[Summary]
	Buckets     Table[AQIBucket]
	Alerts      Table[HealthAlert]
	Predictions Table[AIPrediction]
	Profiles    Table[UserProfile]
}

// ReadingContext resolves the foreign keys of a pollutant reading.
type ReadingContext struct {
	Reading   PollutantReading `json:"reading"`
	Station   Station          `json:"station"`
	Pollutant Pollutant        `json:"pollutant"`
	Location  Location         `json:"location"`
}

// Location fetches a location or fails with not_found.
func (c *Catalog) Location(ctx context.Context, id LocationID) (Location, error) {
	return mustGet(ctx, c.Locations, string(id), "location")
}

// StationLocation follows stations.location_id.
func (c *Catalog) StationLocation(ctx context.Context, id StationID) (Location, error) {
	station, err := mustGet(ctx, c.Stations, string(id), "station")
	if err != nil {
		return Location{}, err
	}
	return c.Location(ctx, station.LocationID)
}

// ReadingContext follows the station, pollutant and location keys of a reading.
func (c *Catalog) ReadingContext(ctx context.Context, readingID string) (ReadingContext, error) {
	reading, err := mustGet(ctx, c.Readings, readingID, "reading")
	if err != nil {
		return ReadingContext{}, err
	}
	station, err := mustGet(ctx, c.Stations, string(reading.StationID), "station")
	if err != nil {
		return ReadingContext{}, err
	}
	pollutant, err := mustGet(ctx, c.Pollutants, string(reading.PollutantID), "pollutant")
	if err != nil {
		return ReadingContext{}, err
	}
	location, err := c.Location(ctx, station.LocationID)
	if err != nil {
		return ReadingContext{}, err
	}
	return ReadingContext{Reading: reading, Station: station, Pollutant: pollutant, Location: location}, nil
}

// PreferredLocation follows user_profiles.preferred_location_id when set.
func (c *Catalog) PreferredLocation(ctx context.Context, profile UserProfile) (Location, bool, error) {
	if profile.PreferredLocationID == nil || strings.TrimSpace(string(*profile.PreferredLocationID)) == "" {
		return Location{}, false, nil
	}
	loc, err := c.Location(ctx, *profile.PreferredLocationID)
	if err != nil {
		return Location{}, false, err
	}
	return loc, true, nil
}

// FindLocation matches a place by city, state and country.
func (c *Catalog) FindLocation(ctx context.Context, place Place) (Location, bool, error) {
	rows, err := c.Locations.List(ctx, Filter{"city": place.City, "state": place.State, "country": place.Country})
	if err != nil {
		return Location{}, false, apperrors.Wrap(apperrors.CodeStorage, "list locations failed", err)
	}
	if len(rows) == 0 {
		return Location{}, false, nil
	}
	return rows[0], true, nil
}

// LocationAlerts lists the health alerts raised for a location.
func (c *Catalog) LocationAlerts(ctx context.Context, id LocationID) ([]HealthAlert, error) {
	if _, err := c.Location(ctx, id); err != nil {
		return nil, err
	}
	alerts, err := c.Alerts.List(ctx, Filter{"location_id": string(id)})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "list alerts failed", err)
	}
	return alerts, nil
}

func mustGet[T any](ctx context.Context, table Table[T], id, kind string) (T, error) {
	var zero T
	if _, err := uuid.Parse(id); err != nil {
		return zero, apperrors.Wrap(apperrors.CodeNotFound, kind+" "+id+" not found", nil)
	}
	row, ok, err := table.Get(ctx, id)
	if err != nil {
		return zero, apperrors.Wrap(apperrors.CodeStorage, "load "+kind+" failed", err)
	}
	if !ok {
		return zero, apperrors.Wrap(apperrors.CodeNotFound, kind+" "+id+" not found", nil)
	}
	return row, nil
}
