package models

import (
	"strings"
	"time"
)

// DateLayout is the canonical activity date format, e.g. "03/01/2023".
const DateLayout = "01/02/2006"

type Inspection struct {
	Query             string    `json:"query"`
	FacilityName      string    `json:"facilityName"`
	Address           string    `json:"address"`
	ZipCode           string    `json:"zipCode"`
	Rating            Rating    `json:"rating"`
	Date              string    `json:"date"`
	Owner             string    `json:"owner"`
	Program           string    `json:"program"`
	Category          string    `json:"category"`
	Status            string    `json:"status"`
	Service           string    `json:"service"`
	Score             float64   `json:"score"`
	Grade             string    `json:"grade"`
	ViolationStatuses []string  `json:"violationStatuses"`
	Violations        []string  `json:"violations"`
	Points            []float64 `json:"points"`
}

func (Inspection) CollectionName() string { return "inspection" }

// CleanName drops store numbers such as "SUBWAY #1234". Stored facility names
// and prediction lookups both go through it.
func CleanName(name string) string {
	if i := strings.Index(name, "#"); i != -1 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// ActivityDate parses Date. Stored records always carry the canonical layout.
func (i Inspection) ActivityDate() (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(i.Date))
}

// ViolationCount is the number of violation triples on the record.
func (i Inspection) ViolationCount() int {
	return len(i.Violations)
}

func (i Inspection) TotalPoints() float64 {
	total := 0.0
	for _, p := range i.Points {
		total += p
	}
	return total
}

// QueryIndex is the single document holding every distinct location query.
type QueryIndex struct {
	Query []string `json:"query"`
}

func (QueryIndex) CollectionName() string { return "query" }
