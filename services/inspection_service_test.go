package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"inspection-tracking-api/aggregate"
	"inspection-tracking-api/models"
	"inspection-tracking-api/store"
)

func seededService(t *testing.T) (*InspectionService, *store.Memory) {
	t.Helper()
	ctx := context.Background()

	records := []models.Inspection{
		{Query: "SUBWAY 123 MAIN ST", FacilityName: "SUBWAY", ZipCode: "90001", Address: "123 MAIN ST, LOS ANGELES, CA 90001, USA", Date: "03/01/2023", Score: 90, Rating: models.PresentRating(4)},
		{Query: "SUBWAY 123 MAIN ST", FacilityName: "SUBWAY", ZipCode: "90001", Address: "123 MAIN ST, LOS ANGELES, CA 90001, USA", Date: "03/01/2023", Score: 80, Rating: models.PresentRating(4)},
		{Query: "SUBWAY 123 MAIN ST", FacilityName: "SUBWAY", ZipCode: "90001", Address: "123 MAIN ST, LOS ANGELES, CA 90001, USA", Date: "04/01/2024", Score: 95, Rating: models.PresentRating(4)},
		{Query: "TACO BELL 9 SPRING ST", FacilityName: "TACO BELL", ZipCode: "90012", Address: "9 SPRING ST, LOS ANGELES, CA 90012, USA", Date: "05/05/2024", Score: 88, Rating: models.PresentRating(3),
			ViolationStatuses: []string{"OUT OF COMPLIANCE"}, Violations: []string{"# 44. Floors"}, Points: []float64{1}},
	}

	mem := store.NewMemory()
	views := aggregate.Build(records)
	writes := []struct {
		collection string
		docs       []any
	}{
		{"inspection", store.Docs(records)},
		{"query", []any{views.Queries}},
		{"ratings", store.Docs(views.Ratings)},
		{"scores", store.Docs(views.Scores)},
		{models.HeatmapTimeCollection, store.Docs(views.HeatmapTime)},
		{models.HeatmapZipCollection, store.Docs(views.HeatmapZip)},
	}
	for _, w := range writes {
		if err := mem.ReplaceAll(ctx, w.collection, w.docs); err != nil {
			t.Fatalf("seed %s: %v", w.collection, err)
		}
	}
	return NewInspectionService(mem), mem
}

func TestListLocations(t *testing.T) {
	svc, _ := seededService(t)
	idx, err := svc.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("ListLocations() error: %v", err)
	}
	if len(idx.Query) != 2 {
		t.Errorf("ListLocations() = %v, want 2 queries", idx.Query)
	}
}

func TestListLocationsBeforeImport(t *testing.T) {
	svc := NewInspectionService(store.NewMemory())
	idx, err := svc.ListLocations(context.Background())
	if err != nil {
		t.Fatalf("ListLocations() error: %v", err)
	}
	if idx.Query == nil || len(idx.Query) != 0 {
		t.Errorf("ListLocations() = %#v, want empty non-nil list", idx.Query)
	}
}

func TestInspections(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	recs, err := svc.Inspections(ctx, "  SUBWAY 123 MAIN ST ")
	if err != nil {
		t.Fatalf("Inspections() error: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("Inspections() returned %d records, want 3", len(recs))
	}

	none, err := svc.Inspections(ctx, "NOWHERE")
	if err != nil {
		t.Fatalf("Inspections(unknown) error: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("Inspections(unknown) = %#v, want empty slice", none)
	}
}

func TestAutocomplete(t *testing.T) {
	svc, _ := seededService(t)
	got, err := svc.Autocomplete(context.Background(), "taco")
	if err != nil {
		t.Fatalf("Autocomplete() error: %v", err)
	}
	if len(got) == 0 || got[0] != "TACO BELL 9 SPRING ST" {
		t.Errorf("Autocomplete() = %v, want TACO BELL first", got)
	}
	if len(got) > AutocompleteLimit {
		t.Errorf("Autocomplete() returned %d results", len(got))
	}
}

func TestHeatmaps(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	months, err := svc.HeatmapByTime(ctx)
	if err != nil {
		t.Fatalf("HeatmapByTime() error: %v", err)
	}
	if len(months) != 3 || months[0].Month != "2023-03" {
		t.Errorf("HeatmapByTime() = %+v", months)
	}

	zips, err := svc.HeatmapByZip(ctx)
	if err != nil {
		t.Fatalf("HeatmapByZip() error: %v", err)
	}
	if len(zips) != 2 || zips[1].ZipCode != "90012" || zips[1].Violation != 1 {
		t.Errorf("HeatmapByZip() = %+v", zips)
	}
}

func TestRatings(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	all, err := svc.Ratings(ctx)
	if err != nil {
		t.Fatalf("Ratings() error: %v", err)
	}
	if len(all) != 3 || all[0].Area != models.CountyArea || all[0].Rating != 3.5 {
		t.Errorf("Ratings() = %+v", all)
	}

	zips, err := svc.RatingsMap(ctx)
	if err != nil {
		t.Fatalf("RatingsMap() error: %v", err)
	}
	for _, r := range zips {
		if r.Area == models.CountyArea {
			t.Errorf("RatingsMap() includes county bucket")
		}
	}
	if len(zips) != 2 {
		t.Errorf("RatingsMap() = %+v, want 2 zips", zips)
	}

	one, err := svc.RatingForArea(ctx, "90012")
	if err != nil {
		t.Fatalf("RatingForArea() error: %v", err)
	}
	if one.Rating != 3 || one.Count != 1 {
		t.Errorf("RatingForArea(90012) = %+v", one)
	}

	if _, err := svc.RatingForArea(ctx, "99999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RatingForArea(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestScores(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	series, err := svc.Scores(ctx, "90001")
	if err != nil {
		t.Fatalf("Scores() error: %v", err)
	}
	if got := series.Scores(); len(got) != 2 || got[0] != 85 || got[1] != 95 {
		t.Errorf("Scores(90001) = %v, want [85 95]", got)
	}
	if _, err := svc.Scores(ctx, "00000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Scores(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestIntervalsAndFrequency(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	iv, err := svc.Intervals(ctx, "SUBWAY 123 MAIN ST")
	if err != nil {
		t.Fatalf("Intervals() error: %v", err)
	}
	if len(iv.Days) != 2 || iv.Days[0] != 0 || iv.Days[1] != 397 {
		t.Errorf("Intervals().Days = %v, want [0 397]", iv.Days)
	}
	if iv.Dates[1] != [2]string{"03/01/2023", "04/01/2024"} {
		t.Errorf("Intervals().Dates[1] = %v", iv.Dates[1])
	}

	freq, err := svc.Frequency(ctx, "SUBWAY 123 MAIN ST")
	if err != nil {
		t.Fatalf("Frequency() error: %v", err)
	}
	want := []models.YearCount{{Year: 2023, Count: 1}, {Year: 2024, Count: 1}}
	if len(freq.Frequency) != 2 || freq.Frequency[0] != want[0] || freq.Frequency[1] != want[1] || freq.Total != 2 {
		t.Errorf("Frequency() = %+v, want %+v total 2", freq, want)
	}
}

func TestComputeIntervalsShortInput(t *testing.T) {
	for _, dates := range [][]time.Time{nil, {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}} {
		got := ComputeIntervals(dates)
		if got.Intervals == nil || len(got.Intervals) != 0 {
			t.Errorf("ComputeIntervals(%v) = %+v, want empty intervals", dates, got)
		}
	}
}

func TestComputeIntervalsSortsInput(t *testing.T) {
	d := func(m time.Month, day int) time.Time { return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC) }
	got := ComputeIntervals([]time.Time{d(3, 1), d(1, 1), d(1, 11)})
	if len(got.Days) != 2 || got.Days[0] != 10 || got.Days[1] != 50 {
		t.Errorf("ComputeIntervals().Days = %v, want [10 50]", got.Days)
	}
}

func TestStoreUnavailable(t *testing.T) {
	svc, mem := seededService(t)
	mem.Close()

	if _, err := svc.HeatmapByTime(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("HeatmapByTime() after close error = %v, want ErrUnavailable", err)
	}
	if _, err := svc.ListLocations(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("ListLocations() after close error = %v, want ErrUnavailable", err)
	}
}
