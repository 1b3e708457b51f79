package simulated

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/airguard/internal/domain/airquality"
	apperrors "github.com/yanqian/airguard/pkg/errors"
	"github.com/yanqian/airguard/pkg/util"
)

const (
	// DefaultDelay is the pause before a simulated reading is returned.
	DefaultDelay = 1500 * time.Millisecond

	minAQI = 10
	maxAQI = 210
)

// Fetcher fabricates readings for any location after a fixed delay.
type Fetcher struct {
	delay    time.Duration
	template airquality.Reading

	mu  sync.Mutex
	rnd *rand.Rand
	now util.Clock
}

// NewFetcher builds a simulated fetcher. A negative delay disables waiting;
// zero uses DefaultDelay.
func NewFetcher(delay time.Duration, template airquality.Reading) *Fetcher {
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Fetcher{
		delay:    delay,
		template: template,
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:      util.NowUTC,
	}
}

// Source implements the optional source label used in metrics.
func (f *Fetcher) Source() string { return "simulated" }

// Cacheable reports false: every update must wait and draw a new AQI.
func (f *Fetcher) Cacheable() bool { return false }

// Fetch waits for the configured delay, then returns the template reading
// with the query as location and a random AQI in [10, 210).
func (f *Fetcher) Fetch(ctx context.Context, locationQuery string) (airquality.Reading, error) {
	location := strings.TrimSpace(locationQuery)
	if location == "" {
		return airquality.Reading{}, apperrors.Wrap(apperrors.CodeInvalidInput, "location cannot be empty", nil)
	}
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return airquality.Reading{}, apperrors.Wrap(apperrors.CodeTransient, "simulated fetch cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	reading := f.template
	reading.Location = location
	reading.AQI = float64(f.nextAQI())
	reading.Forecast = nil
	reading.Raw = nil
	reading.Source = f.Source()
	reading.Timestamp = f.now()
	return reading, nil
}

func (f *Fetcher) nextAQI() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return minAQI + f.rnd.IntN(maxAQI-minAQI)
}

var _ airquality.Fetcher = (*Fetcher)(nil)
