package observability_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"property_listings/internal/adapters/observability"
	"property_listings/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveStoreOp("publish", nil)
	observability.ObserveCalendar(3, 1)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"listings_http_requests_total",
		`listings_store_operations_total{op="publish",result="ok"}`,
		`listings_calendar_events_total{outcome="skipped"}`,
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestErrorClass(t *testing.T) {
	cases := map[string]error{
		"ok":         nil,
		"not_found":  fmt.Errorf("load: %w", domain.ErrNotFound),
		"conflict":   domain.ErrConflict,
		"validation": fmt.Errorf("%w: bad", domain.ErrValidation),
		"forbidden":  domain.ErrForbidden,
		"upstream":   fmt.Errorf("%w: 503", domain.ErrUpstream),
		"canceled":   context.Canceled,
		"internal":   errors.New("boom"),
	}
	for want, err := range cases {
		if got := observability.ErrorClass(err); got != want {
			t.Errorf("%v: got %q want %q", err, got, want)
		}
	}
}
