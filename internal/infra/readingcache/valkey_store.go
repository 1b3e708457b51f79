package readingcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/airguard/internal/domain/airquality"
)

// ValkeyStore caches readings in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a cache backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "airguard"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Get implements airquality.Cache.
func (s *ValkeyStore) Get(ctx context.Context, key string) (airquality.Reading, bool, error) {
	if key == "" {
		return airquality.Reading{}, false, nil
	}
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.readingKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return airquality.Reading{}, false, nil
		}
		return airquality.Reading{}, false, err
	}
	var reading airquality.Reading
	if err := json.Unmarshal([]byte(payload), &reading); err != nil {
		return airquality.Reading{}, false, fmt.Errorf("decode cached reading: %w", err)
	}
	return reading, true, nil
}

// Put implements airquality.Cache.
func (s *ValkeyStore) Put(ctx context.Context, key string, reading airquality.Reading, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.readingKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) readingKey(key string) string {
	return fmt.Sprintf("%s:reading:%s", s.prefix, key)
}

var _ airquality.Cache = (*ValkeyStore)(nil)
