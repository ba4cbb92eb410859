// Package timeouts holds the deadlines used around database and Redis calls.
//
//   - Ping: health checks
//   - Short: single-document reads, draft loads and saves
//   - Medium: list queries and exports
//   - Submit: one whole enrollment submission (account provisioning plus the
//     batched write); must stay below the per-form submission lock TTL
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, used until Configure or ConfigureFromEnv changes them.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultSubmit = 45 * time.Second
)

// Config holds timeout values. Zero fields are ignored by Configure.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Submit time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Submit: DefaultSubmit}
}

func Ping() time.Duration   { return Current().Ping }
func Short() time.Duration  { return Current().Short }
func Medium() time.Duration { return Current().Medium }
func Submit() time.Duration { return Current().Submit }

// Current returns a snapshot of the configured values.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure overrides the non-zero fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&current.Ping, cfg.Ping)
	merge(&current.Short, cfg.Short)
	merge(&current.Medium, cfg.Medium)
	merge(&current.Submit, cfg.Submit)
}

// Reset restores the defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// ConfigureFromEnv applies FromEnv and returns how many values it set.
func ConfigureFromEnv() int {
	cfg, n := FromEnv()
	Configure(cfg)
	return n
}

// FromEnv reads STUDENTID_TIMEOUT_PING, _SHORT, _MEDIUM and _SUBMIT as Go
// durations ("2s", "1m30s") without applying them. Unset or invalid values
// are left zero. It returns how many values were read.
func FromEnv() (Config, int) {
	var cfg Config
	n := 0
	for name, dst := range map[string]*time.Duration{
		"STUDENTID_TIMEOUT_PING":   &cfg.Ping,
		"STUDENTID_TIMEOUT_SHORT":  &cfg.Short,
		"STUDENTID_TIMEOUT_MEDIUM": &cfg.Medium,
		"STUDENTID_TIMEOUT_SUBMIT": &cfg.Submit,
	} {
		d, err := time.ParseDuration(os.Getenv(name))
		if err != nil || d <= 0 {
			continue
		}
		*dst = d
		n++
	}
	return cfg, n
}

// Effective returns the values Configure(cfg) would leave in place.
func Effective(cfg Config) Config {
	out := Current()
	merge(&out.Ping, cfg.Ping)
	merge(&out.Short, cfg.Short)
	merge(&out.Medium, cfg.Medium)
	merge(&out.Submit, cfg.Submit)
	return out
}

func merge(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was what ended the operation.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out", zap.String("operation", operation), zap.Duration("timeout", d))
		}
		cancel()
	}
}
