package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/yanqian/airguard/internal/domain/airquality"
)

// ObjectStorage stores raw blobs by key.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// StoredObject is the metadata returned after a Put.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// Archiver writes upstream payloads to object storage.
type Archiver struct {
	storage ObjectStorage
	prefix  string
	logger  *slog.Logger
}

// NewArchiver builds an archiver. Keys are written under prefix.
func NewArchiver(storage ObjectStorage, prefix string, logger *slog.Logger) *Archiver {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "readings"
	}
	return &Archiver{storage: storage, prefix: prefix, logger: logger.With("component", "archive")}
}

// Archive implements airquality.Archiver.
func (a *Archiver) Archive(ctx context.Context, reading airquality.Reading) error {
	if len(reading.Raw) == 0 {
		return nil
	}
	key := ObjectKey(a.prefix, reading)
	obj, err := a.storage.Put(ctx, key, reading.Raw, "application/json")
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	a.logger.Debug("upstream payload archived", "key", obj.Key, "size", obj.Size)
	return nil
}

// ObjectKey renders prefix/<location-slug>/<source>-<timestamp>.json.
func ObjectKey(prefix string, reading airquality.Reading) string {
	source := slug(reading.Source)
	if source == "" {
		source = "upstream"
	}
	ts := reading.Timestamp.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s/%s/%s-%s.json", prefix, slug(reading.Location), source, ts)
}

func slug(raw string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var _ airquality.Archiver = (*Archiver)(nil)
