package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

func testWindow() energy.TimeRange {
	return energy.TimeRange{
		From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 7, 23, 0, 0, 0, time.UTC),
	}
}

func TestSynthetic_HourlyCoverage(t *testing.T) {
	p := NewSyntheticProvider(1)

	got, err := p.Fetch(context.Background(), energy.MetricPrice, testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// 7 days of hourly readings, bounds inclusive.
	if len(got) != 7*24 {
		t.Fatalf("len = %d, want %d", len(got), 7*24)
	}

	for i := 1; i < len(got); i++ {
		if d := got[i].SourceTimestamp.Sub(got[i-1].SourceTimestamp); d != time.Hour {
			t.Fatalf("gap at index %d: %v", i, d)
		}
	}
}

func TestSynthetic_SameSeedSameOutput(t *testing.T) {
	a, err := NewSyntheticProvider(42).Fetch(context.Background(), energy.MetricPrice, testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	b, err := NewSyntheticProvider(42).Fetch(context.Background(), energy.MetricPrice, testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Value != b[i].Value || !a[i].SourceTimestamp.Equal(b[i].SourceTimestamp) {
			t.Fatalf("readings differ at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSynthetic_DifferentSeedsDiffer(t *testing.T) {
	a, _ := NewSyntheticProvider(1).Fetch(context.Background(), energy.MetricPrice, testWindow())
	b, _ := NewSyntheticProvider(2).Fetch(context.Background(), energy.MetricPrice, testWindow())

	same := true
	for i := range a {
		if a[i].Value != b[i].Value {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical series")
	}
}

func TestSynthetic_ValueFloors(t *testing.T) {
	ctx := context.Background()
	p := NewSyntheticProvider(7)

	prices, err := p.Fetch(ctx, energy.MetricPrice, testWindow())
	if err != nil {
		t.Fatalf("Fetch price: %v", err)
	}
	for _, r := range prices {
		if r.Value < 50 {
			t.Errorf("price %v at %v below floor 50", r.Value, r.SourceTimestamp)
		}
	}

	demands, err := p.Fetch(ctx, energy.MetricDemand, testWindow())
	if err != nil {
		t.Fatalf("Fetch demand: %v", err)
	}
	for _, r := range demands {
		if r.Value < 30 {
			t.Errorf("demand %v at %v below floor 30", r.Value, r.SourceTimestamp)
		}
		if r.Source != energy.SourceSynthetic {
			t.Fatalf("Source = %q, want %q", r.Source, energy.SourceSynthetic)
		}
	}
}

func TestSynthetic_ZeroWindowDefaultsToSevenDays(t *testing.T) {
	p := NewSyntheticProvider(1)

	got, err := p.Fetch(context.Background(), energy.MetricPrice, energy.TimeRange{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// Hour truncation makes the exact count 168 or 169 depending on when
	// the test runs.
	if len(got) < 7*24 || len(got) > 7*24+1 {
		t.Errorf("len = %d, want about %d", len(got), 7*24)
	}
}

func TestSynthetic_DailyShape(t *testing.T) {
	p := NewSyntheticProvider(99)

	// 30 days gives the averages room to dominate the noise.
	window := energy.TimeRange{
		From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC),
	}
	got, err := p.Fetch(context.Background(), energy.MetricPrice, window)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	var peakSum, valleySum float64
	var peakN, valleyN int
	for _, r := range got {
		switch h := r.SourceTimestamp.Hour(); {
		case h >= 18 && h <= 22:
			peakSum += r.Value
			peakN++
		case h >= 2 && h <= 6:
			valleySum += r.Value
			valleyN++
		}
	}

	peakAvg := peakSum / float64(peakN)
	valleyAvg := valleySum / float64(valleyN)
	if peakAvg <= valleyAvg {
		t.Errorf("evening peak average %.1f not above overnight valley average %.1f", peakAvg, valleyAvg)
	}
}
