package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inspection-tracking-api/fuzzy"
	"inspection-tracking-api/models"
	"inspection-tracking-api/store"
)

// ErrNotFound is returned when an area or location has no stored document.
var ErrNotFound = store.ErrNotFound

// AutocompleteLimit is the number of suggestions returned per query.
const AutocompleteLimit = 5

// InspectionService answers every read query of the API from the store. It
// holds no mutable state and is safe for concurrent use.
type InspectionService struct {
	store store.Store
}

func NewInspectionService(st store.Store) *InspectionService {
	return &InspectionService{store: st}
}

// Ping reports whether the store is reachable.
func (s *InspectionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListLocations returns the query index. Before the first import it is empty.
func (s *InspectionService) ListLocations(ctx context.Context) (models.QueryIndex, error) {
	var idx models.QueryIndex
	err := s.store.FindOne(ctx, idx.CollectionName(), nil, &idx)
	if errors.Is(err, store.ErrNotFound) {
		return models.QueryIndex{Query: []string{}}, nil
	}
	if err != nil {
		return idx, fmt.Errorf("load query index: %w", err)
	}
	if idx.Query == nil {
		idx.Query = []string{}
	}
	return idx, nil
}

// Inspections returns every inspection stored for the exact location query,
// in store order. An unknown query yields an empty slice.
func (s *InspectionService) Inspections(ctx context.Context, query string) ([]models.Inspection, error) {
	cur, err := s.store.Find(ctx, models.Inspection{}.CollectionName(), store.Filter{"query": strings.TrimSpace(query)}, store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("find inspections: %w", err)
	}
	recs, err := store.All[models.Inspection](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("read inspections: %w", err)
	}
	if recs == nil {
		recs = []models.Inspection{}
	}
	return recs, nil
}

// Autocomplete ranks the query index against q and returns the best
// AutocompleteLimit location queries.
func (s *InspectionService) Autocomplete(ctx context.Context, q string) ([]string, error) {
	idx, err := s.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	matches := fuzzy.Extract(strings.ToUpper(q), idx.Query, AutocompleteLimit)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Choice
	}
	return out, nil
}

func (s *InspectionService) HeatmapByTime(ctx context.Context) ([]models.MonthViolations, error) {
	return findAll[models.MonthViolations](ctx, s.store, models.HeatmapTimeCollection, nil, "month")
}

func (s *InspectionService) HeatmapByZip(ctx context.Context) ([]models.ZipViolations, error) {
	return findAll[models.ZipViolations](ctx, s.store, models.HeatmapZipCollection, nil, "zipCode")
}

// Ratings returns every area bucket, county included.
func (s *InspectionService) Ratings(ctx context.Context) ([]models.AreaRating, error) {
	return findAll[models.AreaRating](ctx, s.store, models.AreaRating{}.CollectionName(), nil, "")
}

// RatingsMap returns the per-zip buckets only.
func (s *InspectionService) RatingsMap(ctx context.Context) ([]models.AreaRating, error) {
	all, err := s.Ratings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.AreaRating, 0, len(all))
	for _, r := range all {
		if r.Area != models.CountyArea {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InspectionService) RatingForArea(ctx context.Context, area string) (models.AreaRating, error) {
	var r models.AreaRating
	if err := s.store.FindOne(ctx, r.CollectionName(), store.Filter{"area": strings.TrimSpace(area)}, &r); err != nil {
		return r, fmt.Errorf("rating for area %q: %w", area, err)
	}
	return r, nil
}

// Scores returns the date ordered score series of an area ("county" or a
// zip code).
func (s *InspectionService) Scores(ctx context.Context, area string) (models.AreaScoreSeries, error) {
	var series models.AreaScoreSeries
	if err := s.store.FindOne(ctx, series.CollectionName(), store.Filter{"area": strings.TrimSpace(area)}, &series); err != nil {
		return series, fmt.Errorf("scores for area %q: %w", area, err)
	}
	return series, nil
}

// Intervals computes the day gaps between consecutive inspections of a
// location.
func (s *InspectionService) Intervals(ctx context.Context, query string) (models.IntervalStats, error) {
	dates, err := s.inspectionDates(ctx, query)
	if err != nil {
		return models.IntervalStats{}, err
	}
	return ComputeIntervals(dates), nil
}

// Frequency counts distinct inspection dates per year for a location.
func (s *InspectionService) Frequency(ctx context.Context, query string) (models.FrequencyStats, error) {
	dates, err := s.inspectionDates(ctx, query)
	if err != nil {
		return models.FrequencyStats{}, err
	}
	return ComputeFrequency(dates), nil
}

func (s *InspectionService) inspectionDates(ctx context.Context, query string) ([]time.Time, error) {
	recs, err := s.Inspections(ctx, query)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(recs))
	for _, rec := range recs {
		at, err := rec.ActivityDate()
		if err != nil {
			continue
		}
		dates = append(dates, at)
	}
	return dates, nil
}

// ComputeIntervals sorts dates and emits one interval per adjacent pair.
// Same-day repeats stay in and produce zero-day intervals. Fewer than two
// dates give no intervals.
func ComputeIntervals(dates []time.Time) models.IntervalStats {
	stats := models.IntervalStats{
		Intervals: []models.Interval{},
		Days:      []int{},
		Dates:     [][2]string{},
	}
	if len(dates) < 2 {
		return stats
	}

	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := 1; i < len(sorted); i++ {
		start, end := sorted[i-1], sorted[i]
		days := int(end.Sub(start).Hours() / 24)
		iv := models.Interval{Days: days, Start: start.Format(models.DateLayout), End: end.Format(models.DateLayout)}
		stats.Intervals = append(stats.Intervals, iv)
		stats.Days = append(stats.Days, days)
		stats.Dates = append(stats.Dates, [2]string{iv.Start, iv.End})
	}
	return stats
}

// ComputeFrequency counts distinct dates per calendar year, years ascending.
func ComputeFrequency(dates []time.Time) models.FrequencyStats {
	perYear := make(map[int]map[string]struct{})
	for _, d := range dates {
		y := d.Year()
		if perYear[y] == nil {
			perYear[y] = make(map[string]struct{})
		}
		perYear[y][d.Format(models.DateLayout)] = struct{}{}
	}

	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)

	stats := models.FrequencyStats{Frequency: make([]models.YearCount, 0, len(years))}
	for _, y := range years {
		n := len(perYear[y])
		stats.Frequency = append(stats.Frequency, models.YearCount{Year: y, Count: n})
		stats.Total += n
	}
	return stats
}

func findAll[T any](ctx context.Context, st store.Store, collection string, filter store.Filter, sortBy string) ([]T, error) {
	cur, err := st.Find(ctx, collection, filter, store.FindOptions{SortBy: sortBy})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	out, err := store.All[T](ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
