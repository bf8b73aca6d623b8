// Package aggregate derives the precomputed views served by the API from the
// full set of normalized inspections.
//
// Every function here is pure and deterministic: the same input slice always
// yields the same output, so re-running an import rewrites identical views.
package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"inspection-tracking-api/models"
)

type Views struct {
	Queries     models.QueryIndex
	Ratings     []models.AreaRating
	Scores      []models.AreaScoreSeries
	HeatmapTime []models.MonthViolations
	HeatmapZip  []models.ZipViolations
}

func Build(records []models.Inspection) Views {
	return Views{
		Queries:     QueryIndex(records),
		Ratings:     Ratings(records),
		Scores:      Scores(records),
		HeatmapTime: HeatmapByMonth(records),
		HeatmapZip:  HeatmapByZip(records),
	}
}

// QueryIndex lists each distinct location query once, in first-seen order.
func QueryIndex(records []models.Inspection) models.QueryIndex {
	seen := make(map[string]struct{}, len(records))
	queries := make([]string, 0)
	for _, rec := range records {
		q := strings.TrimSpace(rec.Query)
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}
	return models.QueryIndex{Query: queries}
}

// Ratings averages the external rating of each location once per location,
// per zip and for the county. Locations without a rating are left out, and
// an area with nothing left gets no bucket.
func Ratings(records []models.Inspection) []models.AreaRating {
	seen := make(map[string]struct{}, len(records))
	var all []float64
	byZip := make(map[string][]float64)
	var zipOrder []string

	for _, rec := range records {
		q := strings.TrimSpace(rec.Query)
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		if !rec.Rating.Present() {
			continue
		}

		all = append(all, rec.Rating.Value)
		if rec.ZipCode == "" {
			continue
		}
		if _, ok := byZip[rec.ZipCode]; !ok {
			zipOrder = append(zipOrder, rec.ZipCode)
		}
		byZip[rec.ZipCode] = append(byZip[rec.ZipCode], rec.Rating.Value)
	}

	if len(all) == 0 {
		return nil
	}

	out := make([]models.AreaRating, 0, len(zipOrder)+1)
	out = append(out, models.AreaRating{Area: models.CountyArea, Rating: round(stat.Mean(all, nil), 1), Count: len(all)})
	for _, zip := range zipOrder {
		values := byZip[zip]
		out = append(out, models.AreaRating{Area: zip, Rating: round(stat.Mean(values, nil), 1), Count: len(values)})
	}
	return out
}

// Scores builds the county series followed by one series per zip. Every
// inspection counts; inspections on the same date are averaged together.
func Scores(records []models.Inspection) []models.AreaScoreSeries {
	var zipOrder []string
	byZip := make(map[string][]models.Inspection)
	for _, rec := range records {
		if rec.ZipCode == "" {
			continue
		}
		if _, ok := byZip[rec.ZipCode]; !ok {
			zipOrder = append(zipOrder, rec.ZipCode)
		}
		byZip[rec.ZipCode] = append(byZip[rec.ZipCode], rec)
	}

	out := make([]models.AreaScoreSeries, 0, len(zipOrder)+1)
	out = append(out, models.AreaScoreSeries{Area: models.CountyArea, Points: dailyMeans(records)})
	for _, zip := range zipOrder {
		out = append(out, models.AreaScoreSeries{Area: zip, Points: dailyMeans(byZip[zip])})
	}
	return out
}

func dailyMeans(records []models.Inspection) []models.ScorePoint {
	type day struct {
		at     time.Time
		scores []float64
	}
	days := make(map[string]*day)
	for _, rec := range records {
		at, err := rec.ActivityDate()
		if err != nil {
			continue
		}
		key := at.Format(models.DateLayout)
		d, ok := days[key]
		if !ok {
			d = &day{at: at}
			days[key] = d
		}
		d.scores = append(d.scores, rec.Score)
	}

	ordered := make([]*day, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].at.Before(ordered[j].at) })

	points := make([]models.ScorePoint, len(ordered))
	for i, d := range ordered {
		points[i] = models.ScorePoint{Date: d.at.Format(models.DateLayout), Score: stat.Mean(d.scores, nil)}
	}
	return points
}

// HeatmapByMonth sums violation entries per calendar month ("YYYY-MM").
func HeatmapByMonth(records []models.Inspection) []models.MonthViolations {
	counts := make(map[string]int)
	for _, rec := range records {
		at, err := rec.ActivityDate()
		if err != nil {
			continue
		}
		counts[at.Format("2006-01")] += rec.ViolationCount()
	}

	out := make([]models.MonthViolations, 0, len(counts))
	for _, month := range sortedKeys(counts) {
		out = append(out, models.MonthViolations{Month: month, Violation: counts[month]})
	}
	return out
}

// HeatmapByZip sums violation entries per zip, reading the zip back out of the
// formatted address.
func HeatmapByZip(records []models.Inspection) []models.ZipViolations {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[ZipFromAddress(rec.Address)] += rec.ViolationCount()
	}

	out := make([]models.ZipViolations, 0, len(counts))
	for _, zip := range sortedKeys(counts) {
		out = append(out, models.ZipViolations{ZipCode: zip, Violation: counts[zip]})
	}
	return out
}

// ZipFromAddress takes the last token of the second-to-last comma separated
// part of "STREET, CITY, STATE ZIP, USA". Anything that does not fit that
// shape maps to models.UnknownZip.
// TODO: read ZipCode directly once every stored inspection carries it.
func ZipFromAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return models.UnknownZip
	}
	fields := strings.Fields(parts[len(parts)-2])
	if len(fields) == 0 {
		return models.UnknownZip
	}
	return fields[len(fields)-1]
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
