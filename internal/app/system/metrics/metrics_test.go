package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSubmit(t *testing.T) {
	m := New()
	m.ObserveSubmit(OutcomeSucceeded, 2, 150*time.Millisecond)
	m.ObserveSubmit(OutcomeProvision, 1, time.Second)
	m.ObserveSubmit(OutcomeSucceeded, 1, time.Second)

	if got := testutil.ToFloat64(m.Enrollments.WithLabelValues(OutcomeSucceeded)); got != 2 {
		t.Errorf("succeeded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Enrollments.WithLabelValues(OutcomeProvision)); got != 1 {
		t.Errorf("provisioning = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AccountsProvisioned); got != 4 {
		t.Errorf("accounts = %v, want 4", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSubmit(OutcomeError, 0, 0)
	m.ObserveLogin("success")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveLogin("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`studentid_logins_total{result="success"} 1`,
		"studentid_enrollment_submit_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
