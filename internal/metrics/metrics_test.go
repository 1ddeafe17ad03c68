package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glizzus/radio-relay/internal/metrics"
)

func scrape(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return rec.Code, string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := metrics.New()
	m.PlayStarted()
	m.PlayStarted()
	m.PlayFailed("not_in_voice")
	m.Stopped()
	m.Throttled()

	updated := false
	router := metrics.NewRouter(m, func() {
		updated = true
		m.SetActive(3, 2)
	})

	code, body := scrape(t, router, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !updated {
		t.Errorf("expected gauges to be refreshed before the scrape")
	}

	for _, line := range []string{
		`radio_plays_total{result="ok"} 2`,
		`radio_plays_total{result="not_in_voice"} 1`,
		`radio_stops_total 1`,
		`radio_interactions_throttled_total 1`,
		`radio_active_connections 3`,
		`radio_active_players 2`,
	} {
		if !strings.Contains(body, line) {
			t.Errorf("expected exposition to contain %q", line)
		}
	}
}

func TestHealthz(t *testing.T) {
	code, body := scrape(t, metrics.NewRouter(metrics.New(), nil), "/healthz")
	if code != http.StatusOK || body != "ok" {
		t.Errorf("unexpected health response %d %q", code, body)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *metrics.Metrics
	m.PlayStarted()
	m.PlayFailed("probe")
	m.Stopped()
	m.Throttled()
	m.SetActive(1, 1)
}
