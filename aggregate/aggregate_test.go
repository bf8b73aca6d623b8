package aggregate

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"inspection-tracking-api/models"
)

func inspection(query, zip, date string, score float64, rating models.Rating, violations int) models.Inspection {
	rec := models.Inspection{
		Query:   query,
		ZipCode: zip,
		Address: "123 MAIN ST, LOS ANGELES, CA " + zip + ", USA",
		Date:    date,
		Score:   score,
		Rating:  rating,
	}
	for i := 0; i < violations; i++ {
		rec.ViolationStatuses = append(rec.ViolationStatuses, "OUT OF COMPLIANCE")
		rec.Violations = append(rec.Violations, "# 44. Floors, walls and ceilings")
		rec.Points = append(rec.Points, 1)
	}
	return rec
}

func TestQueryIndex(t *testing.T) {
	records := []models.Inspection{
		inspection("B", "90001", "01/01/2024", 90, models.Rating{}, 0),
		inspection(" A ", "90001", "01/01/2024", 90, models.Rating{}, 0),
		inspection("B", "90002", "01/02/2024", 90, models.Rating{}, 0),
		inspection("a", "90002", "01/02/2024", 90, models.Rating{}, 0),
	}
	got := QueryIndex(records).Query
	want := []string{"B", "A", "a"}
	if len(got) != len(want) {
		t.Fatalf("QueryIndex() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("QueryIndex()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRatingsDedupAndDropAbsent(t *testing.T) {
	records := []models.Inspection{
		inspection("A", "90001", "01/01/2024", 90, models.PresentRating(4), 0),
		inspection("A", "90001", "02/01/2024", 80, models.PresentRating(2), 0),
		inspection("B", "90001", "01/01/2024", 70, models.Rating{State: models.RatingAbsent}, 0),
	}
	got := Ratings(records)
	if len(got) != 2 {
		t.Fatalf("Ratings() returned %d buckets, want 2: %+v", len(got), got)
	}
	if got[0].Area != models.CountyArea || got[0].Rating != 4.0 || got[0].Count != 1 {
		t.Errorf("county bucket = %+v, want rating 4.0 from 1 location", got[0])
	}
	if got[1].Area != "90001" || got[1].Rating != 4.0 {
		t.Errorf("90001 bucket = %+v, want rating 4.0", got[1])
	}
}

func TestRatingsRoundingAndEmptyZip(t *testing.T) {
	records := []models.Inspection{
		inspection("A", "90001", "01/01/2024", 90, models.PresentRating(4.2), 0),
		inspection("B", "90001", "01/01/2024", 90, models.PresentRating(4.6), 0),
		inspection("C", "90002", "01/01/2024", 90, models.Rating{State: models.RatingFailed}, 0),
		inspection("D", "90003", "01/01/2024", 90, models.PresentRating(3.0), 0),
	}
	got := Ratings(records)

	byArea := make(map[string]models.AreaRating)
	for _, r := range got {
		byArea[r.Area] = r
	}
	if _, ok := byArea["90002"]; ok {
		t.Errorf("zip with only failed ratings should produce no bucket")
	}
	if r := byArea["90001"]; r.Rating != 4.4 {
		t.Errorf("90001 rating = %v, want 4.4", r.Rating)
	}
	if r := byArea[models.CountyArea]; r.Count != 3 || math.Abs(r.Rating-3.9) > 1e-9 {
		t.Errorf("county = %+v, want 3.9 over 3 locations", r)
	}
}

func TestRatingsNoneRated(t *testing.T) {
	records := []models.Inspection{inspection("A", "90001", "01/01/2024", 90, models.Rating{}, 0)}
	if got := Ratings(records); len(got) != 0 {
		t.Errorf("Ratings() = %+v, want no buckets", got)
	}
}

func TestScoresDailyMeans(t *testing.T) {
	records := []models.Inspection{
		inspection("A", "90001", "01/02/2024", 70, models.Rating{}, 0),
		inspection("A", "90001", "01/01/2024", 80, models.Rating{}, 0),
		inspection("B", "90001", "01/01/2024", 90, models.Rating{}, 0),
		inspection("C", "90002", "12/31/2023", 60, models.Rating{}, 0),
	}
	got := Scores(records)
	if len(got) != 3 {
		t.Fatalf("Scores() returned %d series, want county + 2 zips", len(got))
	}

	zip := got[1]
	if zip.Area != "90001" {
		t.Fatalf("second series area = %q, want 90001", zip.Area)
	}
	want := []models.ScorePoint{{Date: "01/01/2024", Score: 85}, {Date: "01/02/2024", Score: 70}}
	if len(zip.Points) != len(want) {
		t.Fatalf("90001 points = %+v, want %+v", zip.Points, want)
	}
	for i := range want {
		if zip.Points[i].Date != want[i].Date || math.Abs(zip.Points[i].Score-want[i].Score) > 1e-9 {
			t.Errorf("90001 point %d = %+v, want %+v", i, zip.Points[i], want[i])
		}
	}

	if single := got[2]; len(single.Points) != 1 {
		t.Errorf("90002 should be a length-1 run, got %+v", single.Points)
	}

	county := got[0]
	if county.Area != models.CountyArea || len(county.Points) != 3 {
		t.Fatalf("county series = %+v", county)
	}
	if county.Points[0].Date != "12/31/2023" {
		t.Errorf("county series should start at 12/31/2023, got %q", county.Points[0].Date)
	}
}

func TestHeatmaps(t *testing.T) {
	broken := inspection("X", "90003", "03/15/2024", 90, models.Rating{}, 4)
	broken.Address = "NO COMMAS HERE"
	records := []models.Inspection{
		inspection("A", "90001", "01/05/2024", 90, models.Rating{}, 2),
		inspection("A", "90001", "01/20/2024", 90, models.Rating{}, 3),
		inspection("B", "90002", "02/01/2024", 90, models.Rating{}, 1),
		broken,
	}

	months := HeatmapByMonth(records)
	wantMonths := []models.MonthViolations{{Month: "2024-01", Violation: 5}, {Month: "2024-02", Violation: 1}, {Month: "2024-03", Violation: 4}}
	if len(months) != len(wantMonths) {
		t.Fatalf("HeatmapByMonth() = %+v, want %+v", months, wantMonths)
	}
	for i := range wantMonths {
		if months[i] != wantMonths[i] {
			t.Errorf("month bucket %d = %+v, want %+v", i, months[i], wantMonths[i])
		}
	}

	zips := HeatmapByZip(records)
	got := make(map[string]int)
	for _, z := range zips {
		got[z.ZipCode] = z.Violation
	}
	if got["90001"] != 5 || got["90002"] != 1 || got[models.UnknownZip] != 4 {
		t.Errorf("HeatmapByZip() = %v", got)
	}
}

func TestZipFromAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"123 MAIN ST, LOS ANGELES, CA 90001, USA", "90001"},
		{"1 A ST, PASADENA, CA 91101-1234, USA", "91101-1234"},
		{"LOS ANGELES, 90012", "ANGELES"},
		{"", models.UnknownZip},
		{"NO COMMAS", models.UnknownZip},
		{"STREET, , USA", models.UnknownZip},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := ZipFromAddress(tt.address); got != tt.want {
				t.Errorf("ZipFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	records := []models.Inspection{
		inspection("A", "90001", "01/01/2024", 91, models.PresentRating(4.1), 2),
		inspection("B", "90002", "01/01/2024", 88, models.PresentRating(3.7), 1),
		inspection("A", "90001", "06/01/2024", 95, models.PresentRating(4.1), 0),
		inspection("C", "90003", "02/11/2023", 77, models.Rating{State: models.RatingNotAttempted}, 5),
	}

	first, err := json.Marshal(Build(records))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(Build(records))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("Build() is not deterministic:\n%s\n%s", first, second)
	}
}
