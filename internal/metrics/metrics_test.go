package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestRecordRun(t *testing.T) {
	m := getMetrics()
	runs := m.runsTotal.WithLabelValues("grades", "committed")
	rows := m.rowsTotal.WithLabelValues("grades")
	runsBefore, rowsBefore := counterValue(t, runs), counterValue(t, rows)

	RecordRun("grades", "committed", 12, 250*time.Millisecond)

	if got := counterValue(t, runs) - runsBefore; got != 1 {
		t.Errorf("Expected 1 run recorded, got %v", got)
	}
	if got := counterValue(t, rows) - rowsBefore; got != 12 {
		t.Errorf("Expected 12 rows recorded, got %v", got)
	}
}

func TestRecordRowError(t *testing.T) {
	c := getMetrics().rowErrorsTotal.WithLabelValues("users", "ERR_CSV_INVALID_EMAIL")
	before := counterValue(t, c)

	RecordRowError("users", "ERR_CSV_INVALID_EMAIL")
	RecordRowError("users", "ERR_CSV_INVALID_EMAIL")

	if got := counterValue(t, c) - before; got != 2 {
		t.Errorf("Expected 2 errors recorded, got %v", got)
	}
}

func TestInFlight(t *testing.T) {
	g := getMetrics().inFlight
	before := gaugeValue(t, g)

	ImportStarted()
	if got := gaugeValue(t, g) - before; got != 1 {
		t.Errorf("Expected 1 import in flight, got %v", got)
	}
	ImportFinished()
	if got := gaugeValue(t, g) - before; got != 0 {
		t.Errorf("Expected no import in flight, got %v", got)
	}
}
