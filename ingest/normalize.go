// Package ingest turns raw inspection CSV rows into stored records and
// derived views.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"inspection-tracking-api/models"
)

var ErrMalformedInput = errors.New("malformed input")

const (
	colQuery       = "QUERY"
	colFacility    = "FACILITY NAME"
	colAddress     = "FACILITY ADDRESS"
	colCity        = "FACILITY CITY"
	colState       = "FACILITY STATE"
	colZip         = "FACILITY ZIP"
	colRating      = "RATING"
	colDate        = "ACTIVITY DATE"
	colOwner       = "OWNER NAME"
	colProgram     = "PROGRAM NAME"
	colCategory    = "PE DESCRIPTION"
	colStatus      = "PROGRAM STATUS"
	colService     = "SERVICE DESCRIPTION"
	colScore       = "SCORE"
	colGrade       = "GRADE"
	missingDefault = "None"
)

// Drop reasons, also used as metric labels.
const (
	ReasonMissing   = "missing_field"
	ReasonBadDate   = "bad_date"
	ReasonBadScore  = "bad_score"
	ReasonBadPoints = "bad_points"
)

var slotSuffix = regexp.MustCompile(`(\d+)$`)

// RawRow maps CSV column names to cell values. Absent keys and blank cells
// both count as missing.
type RawRow map[string]string

func (r RawRow) get(col string) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r RawRow) getOr(col, fallback string) string {
	if v, ok := r.get(col); ok {
		return v
	}
	return fallback
}

// FieldError explains why a row was rejected. It matches ErrMalformedInput.
type FieldError struct {
	Column string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Column)
	}
	return fmt.Sprintf("%s: %s=%q", e.Reason, e.Column, e.Value)
}

func (e *FieldError) Is(target error) bool { return target == ErrMalformedInput }

// DropReason returns the metric label for a normalization error.
func DropReason(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return "other"
}

// Normalize cleans one raw row into an inspection record.
func Normalize(row RawRow) (models.Inspection, error) {
	var rec models.Inspection

	query, ok := row.get(colQuery)
	if !ok {
		return rec, &FieldError{Column: colQuery, Reason: ReasonMissing}
	}
	name, ok := row.get(colFacility)
	if !ok {
		return rec, &FieldError{Column: colFacility, Reason: ReasonMissing}
	}

	rawDate, ok := row.get(colDate)
	if !ok {
		return rec, &FieldError{Column: colDate, Reason: ReasonMissing}
	}
	date, err := ParseDate(rawDate)
	if err != nil {
		return rec, &FieldError{Column: colDate, Value: rawDate, Reason: ReasonBadDate}
	}

	rawScore, ok := row.get(colScore)
	if !ok {
		return rec, &FieldError{Column: colScore, Reason: ReasonMissing}
	}
	score, err := strconv.ParseFloat(rawScore, 64)
	if err != nil || !finite(score) || score < 0 || score > 100 {
		return rec, &FieldError{Column: colScore, Value: rawScore, Reason: ReasonBadScore}
	}

	statuses, descriptions, points, err := violations(row)
	if err != nil {
		return rec, err
	}

	zip := row.getOr(colZip, "")
	rec = models.Inspection{
		Query:             query,
		FacilityName:      models.CleanName(name),
		Address:           fullAddress(row.getOr(colAddress, ""), row.getOr(colCity, ""), row.getOr(colState, ""), zip),
		ZipCode:           zip,
		Rating:            models.ParseRating(row.getOr(colRating, missingDefault)),
		Date:              date.Format(models.DateLayout),
		Owner:             row.getOr(colOwner, ""),
		Program:           row.getOr(colProgram, missingDefault),
		Category:          row.getOr(colCategory, ""),
		Status:            row.getOr(colStatus, missingDefault),
		Service:           row.getOr(colService, ""),
		Score:             score,
		Grade:             row.getOr(colGrade, missingDefault),
		ViolationStatuses: statuses,
		Violations:        descriptions,
		Points:            points,
	}
	return rec, nil
}

// finite rejects NaN and the infinities, which strconv accepts but JSON cannot
// encode.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseDate reads M/D/YYYY, with or without zero padding.
func ParseDate(raw string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want MM/DD/YYYY", raw)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", raw, err)
		}
		nums[i] = n
	}
	month, day, year := nums[0], nums[1], nums[2]
	if year < 1 || year > 9999 {
		return time.Time{}, fmt.Errorf("date %q: year out of range", raw)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("date %q: not a calendar date", raw)
	}
	return t, nil
}

func fullAddress(street, city, state, zip string) string {
	return fmt.Sprintf("%s, %s, %s, USA", street, city, strings.TrimSpace(state+" "+zip))
}

type violationSlot struct {
	status, description, points string
	hasStatus, hasDesc, hasPts  bool
}

// violations gathers the numbered violation columns slot by slot so the three
// returned lists stay index-aligned.
func violations(row RawRow) ([]string, []string, []float64, error) {
	slots := make(map[int]*violationSlot)
	for col := range row {
		name := strings.TrimSpace(col)
		m := slotSuffix.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		value, present := row.get(col)
		if !present {
			continue
		}

		slot := slots[idx]
		if slot == nil {
			slot = &violationSlot{}
		}
		switch {
		case strings.Contains(name, "STATUS"):
			slot.status, slot.hasStatus = value, true
		case strings.Contains(name, "DESCRIPTION"):
			slot.description, slot.hasDesc = value, true
		case strings.Contains(name, "POINTS"):
			slot.points, slot.hasPts = value, true
		default:
			continue
		}
		slots[idx] = slot
	}

	indexes := make([]int, 0, len(slots))
	for idx := range slots {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	statuses := make([]string, 0, len(indexes))
	descriptions := make([]string, 0, len(indexes))
	points := make([]float64, 0, len(indexes))
	for _, idx := range indexes {
		slot := slots[idx]
		status, desc := missingDefault, missingDefault
		if slot.hasStatus {
			status = slot.status
		}
		if slot.hasDesc {
			desc = slot.description
		}
		pts := 0.0
		if slot.hasPts {
			v, err := strconv.ParseFloat(slot.points, 64)
			if err != nil || !finite(v) {
				return nil, nil, nil, &FieldError{Column: fmt.Sprintf("POINTS %d", idx), Value: slot.points, Reason: ReasonBadPoints}
			}
			pts = v
		}
		statuses = append(statuses, status)
		descriptions = append(descriptions, desc)
		points = append(points, pts)
	}
	return statuses, descriptions, points, nil
}
