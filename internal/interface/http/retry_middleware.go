package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/airguard/internal/infra/config"
)

const retryBodyLimit = 1 << 16

var errBodyTooLarge = errors.New("request body exceeds retry limit")

// withRetry replays POST requests whose outcome was transient (503). A
// failed update leaves the previous reading in place, so replaying it is
// safe. Backoff stops as soon as the client goes away.
func withRetry(handler http.Handler, cfg config.RetryConfig, logger *slog.Logger) http.Handler {
	if !cfg.Enabled || cfg.MaxAttempts <= 1 {
		return handler
	}
	exclusions := make(map[string]struct{}, len(cfg.Exclude))
	for _, path := range cfg.Exclude {
		exclusions[path] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := exclusions[r.URL.Path]; skip || r.Method != http.MethodPost {
			handler.ServeHTTP(w, r)
			return
		}
		body, err := readRequestBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}

		ctx := r.Context()
		var last *bufferedResponse
		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			if attempt > 1 {
				timer := time.NewTimer(backoff(cfg.BaseBackoff, attempt))
				select {
				case <-ctx.Done():
					timer.Stop()
					logger.Info("client gone, abandoning retry", "path", r.URL.Path, "attempt", attempt)
					last.commit()
					return
				case <-timer.C:
				}
			}

			last = newBufferedResponse(w)
			replay := r.Clone(ctx)
			replay.Body = io.NopCloser(bytes.NewReader(body))
			replay.ContentLength = int64(len(body))

			handler.ServeHTTP(last, replay)
			if !last.transient() || attempt == cfg.MaxAttempts {
				break
			}
			logger.Warn("transient failure, retrying request", "path", r.URL.Path, "attempt", attempt)
		}
		last.commit()
	})
}

func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	return base * time.Duration(1<<(attempt-2))
}

func readRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, retryBodyLimit+1))
	if err != nil {
		return nil, err
	}
	if len(data) > retryBodyLimit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// bufferedResponse holds one attempt's response until it is known to be final.
type bufferedResponse struct {
	dst    http.ResponseWriter
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse(dst http.ResponseWriter) *bufferedResponse {
	return &bufferedResponse{dst: dst, header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) Flush() {}

func (b *bufferedResponse) transient() bool {
	return b.status == http.StatusServiceUnavailable
}

func (b *bufferedResponse) commit() {
	dst := b.dst.Header()
	for k, values := range b.header {
		dst[k] = append([]string(nil), values...)
	}
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.dst.WriteHeader(b.status)
	if b.body.Len() > 0 {
		_, _ = b.dst.Write(b.body.Bytes())
	}
}
