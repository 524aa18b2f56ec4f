package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// counterValue sums a gathered counter family, optionally filtered by one label.
func counterValue(t *testing.T, m *Metrics, name, label, value string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if label != "" {
				matched := false
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == label && lp.GetValue() == value {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SymbolOK(time.Millisecond)
	m.SymbolFailed("fetch")
	m.ExitAlert("critical")
	m.BatchDone(time.Second)
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.SymbolOK(2 * time.Millisecond)
	m.SymbolOK(3 * time.Millisecond)
	m.SymbolFailed("fetch")
	m.ExitAlert("critical")
	m.ExitAlert("critical")
	m.ExitAlert("warning")

	if got := counterValue(t, m, "signal_engine_symbols_processed_total", "", ""); got != 2 {
		t.Errorf("symbols processed = %v, want 2", got)
	}
	if got := counterValue(t, m, "signal_engine_symbol_failures_total", "stage", "fetch"); got != 1 {
		t.Errorf("fetch failures = %v, want 1", got)
	}
	if got := counterValue(t, m, "signal_engine_exit_alerts_total", "severity", "critical"); got != 2 {
		t.Errorf("critical alerts = %v, want 2", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.SymbolOK(time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "signal_engine_symbols_processed_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	a, b := New(), New()
	a.SymbolOK(time.Millisecond)
	if got := counterValue(t, b, "signal_engine_symbols_processed_total", "", ""); got != 0 {
		t.Errorf("second instance saw %v", got)
	}
}
