package airquality

import (
	"context"
	"time"
)

// Fetcher resolves a free-text location into a fresh reading. Failures
// carry the invalid_input, not_found or transient codes.
type Fetcher interface {
	Fetch(ctx context.Context, locationQuery string) (Reading, error)
}

// Cache keeps the latest reading per normalized location.
type Cache interface {
	Get(ctx context.Context, key string) (Reading, bool, error)
	Put(ctx context.Context, key string, reading Reading, ttl time.Duration) error
}

// Forecaster predicts the AQI at ForecastHorizons.
type Forecaster interface {
	Forecast(ctx context.Context, reading Reading) (Forecast, error)
}

// Recorder persists a dashboard snapshot into the external store.
type Recorder interface {
	Record(ctx context.Context, dashboard Dashboard) error
}

// Archiver keeps raw upstream payloads.
type Archiver interface {
	Archive(ctx context.Context, reading Reading) error
}

type sourceNamer interface {
	Source() string
}

// cachePolicy lets a fetcher opt out of the reading cache when every fetch
// must produce a fresh reading.
type cachePolicy interface {
	Cacheable() bool
}
