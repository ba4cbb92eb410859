// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "studentid:ratelimit:"

// incr bumps the counter and starts the window on the first hit, atomically,
// so a counter can never be left without an expiry.
var incr = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Limiter is a fixed-window counter kept in Redis, shared by every instance.
type Limiter struct {
	rdb      *redis.Client
	name     string
	limit    int           // max requests per window
	duration time.Duration // window duration
}

// New creates a limiter allowing limit requests per duration. name keeps
// the keys of different limiters apart.
func New(rdb *redis.Client, name string, limit int, duration time.Duration) *Limiter {
	return &Limiter{rdb: rdb, name: name, limit: limit, duration: duration}
}

func (l *Limiter) key(k string) string {
	return keyPrefix + l.name + ":" + k
}

// Allow counts a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incr.Run(ctx, l.rdb, []string{l.key(key)}, l.duration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

// Remaining returns how many requests are left for key in the current window.
func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	n, err := l.rdb.Get(ctx, l.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return l.limit, nil
	}
	if err != nil {
		return 0, err
	}
	if n >= l.limit {
		return 0, nil
	}
	return l.limit - n, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter tracks sign-in attempts per client IP and per login ID, so
// neither one address nor one guardian account can be hammered.
type LoginLimiter struct {
	ip    *Limiter
	login *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per login ID
// per 5 minutes.
func NewLoginLimiter(rdb *redis.Client) *LoginLimiter {
	return NewLoginLimiterWithConfig(rdb, 10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWithConfig creates a login limiter with custom limits.
func NewLoginLimiterWithConfig(rdb *redis.Client, ipLimit int, ipWindow time.Duration, loginLimit int, loginWindow time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(rdb, "login-ip", ipLimit, ipWindow),
		login: New(rdb, "login-id", loginLimit, loginWindow),
	}
}

// Check counts an attempt and returns (allowed, reason), reason being a
// message for the caller when blocked.
func (ll *LoginLimiter) Check(ctx context.Context, r *http.Request, loginID string) (bool, string, error) {
	ok, err := ll.ip.Allow(ctx, ClientIP(r))
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "Too many login attempts. Please wait a minute before trying again.", nil
	}

	if key := strings.ToLower(strings.TrimSpace(loginID)); key != "" {
		ok, err := ll.login.Allow(ctx, key)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "Too many login attempts for this account. Please wait a few minutes.", nil
		}
	}
	return true, "", nil
}

// ResetLogin clears the per-account window after a successful sign-in.
func (ll *LoginLimiter) ResetLogin(ctx context.Context, loginID string) error {
	if key := strings.ToLower(strings.TrimSpace(loginID)); key != "" {
		return ll.login.Reset(ctx, key)
	}
	return nil
}
