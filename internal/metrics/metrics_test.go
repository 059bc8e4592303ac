package metrics

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kellerstore/kellerstore/internal/pager"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func TestSampleReflectsCommitsAndPages(t *testing.T) {
	dir := t.TempDir()
	p, err := pager.Open(filepath.Join(dir, "metrics.db"), pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	reg := NewRegistry(prometheus.NewRegistry())
	reg.Sample(p)
	if counterValue(t, reg.CommitsTotal) != 0 {
		t.Fatalf("expected zero commits before any transaction")
	}

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.NewPage(); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	reg.Sample(p)
	if counterValue(t, reg.CommitsTotal) != 1 {
		t.Fatalf("commits = %v, want 1", counterValue(t, reg.CommitsTotal))
	}
	if counterValue(t, reg.JournalFsyncsTotal) != 1 {
		t.Fatalf("journal fsyncs = %v, want 1", counterValue(t, reg.JournalFsyncsTotal))
	}
	if gaugeValue(t, reg.TotalPages) != float64(p.Stats().TotalPages) {
		t.Fatalf("total pages gauge out of sync with pager stats")
	}

	// A second Sample with no new activity must not double-count.
	reg.Sample(p)
	if counterValue(t, reg.CommitsTotal) != 1 {
		t.Fatalf("commits double-counted on repeat Sample: %v", counterValue(t, reg.CommitsTotal))
	}
}
