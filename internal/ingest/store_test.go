package ingest

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/internal/store"
	"github.com/sablalpz/GreenEnergy-Insights/internal/testutil"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

func testIngestStore(t *testing.T) *IngestStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), "ingest", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewIngestStore(db)
}

func TestUpsertBatch_InsertAndCount(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	batch := testutil.HourlySeries(energy.MetricPrice,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 5,
		func(i int) float64 { return 100 + float64(i) })

	n, err := s.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if n != 5 {
		t.Errorf("inserted = %d, want 5", n)
	}
}

func TestUpsertBatch_RerunIsIdempotent(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	batch := testutil.HourlySeries(energy.MetricPrice,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 5,
		func(i int) float64 { return 100 })

	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("first UpsertBatch: %v", err)
	}

	n, err := s.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second UpsertBatch: %v", err)
	}
	if n != 0 {
		t.Errorf("rerun inserted = %d, want 0", n)
	}

	stats, err := s.Stats(ctx, energy.MetricPrice)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 5 {
		t.Errorf("TotalRecords = %d, want 5", stats.TotalRecords)
	}
}

func TestUpsertBatch_PartialOverlapCountsOnlyNewRows(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	first := testutil.HourlySeries(energy.MetricPrice, start, 5, func(i int) float64 { return 100 })
	if _, err := s.UpsertBatch(ctx, first); err != nil {
		t.Fatalf("first UpsertBatch: %v", err)
	}

	// Second batch overlaps hours 3-4 and adds hours 5-7.
	second := testutil.HourlySeries(energy.MetricPrice, start.Add(3*time.Hour), 5, func(i int) float64 { return 110 })
	n, err := s.UpsertBatch(ctx, second)
	if err != nil {
		t.Fatalf("second UpsertBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3", n)
	}
}

func TestUpsertBatch_KeyIncludesMetricAndSource(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	batch := []energy.RawReading{
		testutil.NewReading(testutil.WithMetric(energy.MetricPrice), testutil.WithTimestamp(ts)),
		testutil.NewReading(testutil.WithMetric(energy.MetricDemand), testutil.WithTimestamp(ts)),
		testutil.NewReading(testutil.WithMetric(energy.MetricPrice), testutil.WithTimestamp(ts), testutil.WithSource(energy.SourceREE)),
	}

	n, err := s.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3 (distinct metric/source keys)", n)
	}
}

func TestUpsertBatch_EmptyBatch(t *testing.T) {
	s := testIngestStore(t)

	n, err := s.UpsertBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
}

func TestUpsertBatch_ConcurrentOverlappingBatches(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// 4 workers write overlapping 12-hour slices of the same 24-hour day.
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		batch := testutil.HourlySeries(energy.MetricPrice,
			start.Add(time.Duration(w*4)*time.Hour), 12,
			func(i int) float64 { return 100 })
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpsertBatch(ctx, batch); err != nil {
				t.Errorf("UpsertBatch: %v", err)
			}
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx, energy.MetricPrice)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	// Union of the slices: hours 0..23.
	if stats.TotalRecords != 24 {
		t.Errorf("TotalRecords = %d, want 24", stats.TotalRecords)
	}
}

func TestLastTimestamp(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastTimestamp(ctx, energy.MetricPrice, energy.SourceSynthetic)
	if err != nil {
		t.Fatalf("LastTimestamp on empty store: %v", err)
	}
	if ok {
		t.Error("expected ok=false on empty store")
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := testutil.HourlySeries(energy.MetricPrice, start, 3, func(i int) float64 { return 100 })
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	last, ok, err := s.LastTimestamp(ctx, energy.MetricPrice, energy.SourceSynthetic)
	if err != nil {
		t.Fatalf("LastTimestamp: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	want := start.Add(2 * time.Hour)
	if !last.Equal(want) {
		t.Errorf("last = %v, want %v", last, want)
	}

	// Different source sees nothing.
	_, ok, err = s.LastTimestamp(ctx, energy.MetricPrice, energy.SourceREE)
	if err != nil {
		t.Fatalf("LastTimestamp: %v", err)
	}
	if ok {
		t.Error("expected ok=false for unseen source")
	}
}

func TestListRecent_ChronologicalAndLimited(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := testutil.HourlySeries(energy.MetricPrice, start, 10, func(i int) float64 { return float64(i) })
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	got, err := s.ListRecent(ctx, energy.MetricPrice, start, 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	// Limit keeps the newest rows; order is chronological.
	if got[0].Value != 5 || got[4].Value != 9 {
		t.Errorf("values = %v..%v, want 5..9", got[0].Value, got[4].Value)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].SourceTimestamp.After(got[i-1].SourceTimestamp) {
			t.Errorf("readings not chronological at index %d", i)
		}
	}
}

func TestListRecent_SinceFilters(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := testutil.HourlySeries(energy.MetricPrice, start, 10, func(i int) float64 { return float64(i) })
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	got, err := s.ListRecent(ctx, energy.MetricPrice, start.Add(7*time.Hour), 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestWindow(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := testutil.HourlySeries(energy.MetricPrice, start, 10, func(i int) float64 { return float64(i) })
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	got, err := s.Window(ctx, energy.MetricPrice, start.Add(2*time.Hour), start.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	// Bounds are inclusive.
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].Value != 2 || got[3].Value != 5 {
		t.Errorf("values = %v..%v, want 2..5", got[0].Value, got[3].Value)
	}
}

func TestStats(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx, energy.MetricPrice)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if stats.TotalRecords != 0 || stats.DaysCovered != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := testutil.HourlySeries(energy.MetricPrice, start, 49, func(i int) float64 { return 100 })
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	stats, err = s.Stats(ctx, energy.MetricPrice)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 49 {
		t.Errorf("TotalRecords = %d, want 49", stats.TotalRecords)
	}
	if !stats.FirstRecord.Equal(start) {
		t.Errorf("FirstRecord = %v, want %v", stats.FirstRecord, start)
	}
	if !stats.LastRecord.Equal(start.Add(48 * time.Hour)) {
		t.Errorf("LastRecord = %v, want %v", stats.LastRecord, start.Add(48*time.Hour))
	}
	if stats.DaysCovered != 3 {
		t.Errorf("DaysCovered = %d, want 3", stats.DaysCovered)
	}
}

func TestUpsertBatch_MidBatchFailureLeavesNothing(t *testing.T) {
	s := testIngestStore(t)
	ctx := context.Background()

	batch := testutil.HourlySeries(energy.MetricPrice,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 5,
		func(i int) float64 { return 100 + float64(i) })
	// SQLite stores NaN as NULL, so this row trips the NOT NULL value
	// column partway through the batch.
	batch[3].Value = math.NaN()

	if _, err := s.UpsertBatch(ctx, batch); err == nil {
		t.Fatal("expected the poisoned batch to fail")
	}

	stats, err := s.Stats(ctx, energy.MetricPrice)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 0 {
		t.Errorf("TotalRecords = %d, want 0 after rollback", stats.TotalRecords)
	}
}
