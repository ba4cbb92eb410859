package enrollment

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLoginDomain is appended to synthesized guardian login identifiers.
const DefaultLoginDomain = "student-id.app"

// Generator produces local keys, student identifiers, and guardian login
// identifiers. The clock is injectable so tests can pin it.
type Generator struct {
	loginDomain string
	now         func() time.Time
}

// NewGenerator returns a Generator using loginDomain (DefaultLoginDomain when
// blank) and the wall clock.
func NewGenerator(loginDomain string) *Generator {
	loginDomain = strings.TrimSpace(loginDomain)
	if loginDomain == "" {
		loginDomain = DefaultLoginDomain
	}
	return &Generator{loginDomain: loginDomain, now: time.Now}
}

// WithClock returns a copy of g that reads time from now.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// Now returns the generator's current time.
func (g *Generator) Now() time.Time {
	return g.now()
}

// LoginDomain returns the domain used for guardian login identifiers.
func (g *Generator) LoginDomain() string {
	return g.loginDomain
}

// LocalID returns a form-local key: milliseconds plus a random suffix.
// It keys guardian entries in a draft and is never persisted as an identity.
func (g *Generator) LocalID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(g.now().UnixMilli(), 10) + "_" + suffix
}

// StudentID returns a human-presentable student identifier, SID<millis>.
func (g *Generator) StudentID() string {
	return "SID" + strconv.FormatInt(g.now().UnixMilli(), 10)
}

// GuardianLoginID derives the login identifier for a guardian from their
// surname and the student identifier. Same inputs, same output.
func (g *Generator) GuardianLoginID(guardianFullName, studentID string) string {
	return surnameSlug(guardianFullName) + "-" + studentID + "@" + g.loginDomain
}

// surnameSlug takes the last word of name (or the only word), lower-cases it
// and strips everything outside [a-z0-9]. Blank results become "user".
func surnameSlug(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "user"
	}
	last := strings.ToLower(parts[len(parts)-1])

	var b strings.Builder
	b.Grow(len(last))
	for _, r := range last {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
