package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type RatingState string

const (
	RatingPresent      RatingState = "present"
	RatingAbsent       RatingState = "absent"
	RatingFailed       RatingState = "failed"
	RatingNotAttempted RatingState = "not_attempted"
)

// Rating is an external place rating. Value is only meaningful when State is
// RatingPresent.
type Rating struct {
	State RatingState
	Value float64
}

func PresentRating(v float64) Rating {
	return Rating{State: RatingPresent, Value: v}
}

// ParseRating maps a raw import cell onto a rating. The scraper feed writes
// "fail" when a lookup failed and "Unknown" when it never ran.
func ParseRating(raw string) Rating {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "none", "nan":
		return Rating{State: RatingAbsent}
	case "fail":
		return Rating{State: RatingFailed}
	case "unknown":
		return Rating{State: RatingNotAttempted}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Rating{State: RatingFailed}
	}
	return PresentRating(v)
}

func (r Rating) Present() bool { return r.State == RatingPresent }

func (r Rating) MarshalJSON() ([]byte, error) {
	if r.Present() {
		return json.Marshal(r.Value)
	}
	state := r.State
	if state == "" {
		state = RatingAbsent
	}
	return json.Marshal(string(state))
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*r = PresentRating(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("rating: %w", err)
	}
	switch RatingState(s) {
	case RatingAbsent, RatingFailed, RatingNotAttempted:
		*r = Rating{State: RatingState(s)}
	default:
		*r = ParseRating(s)
	}
	return nil
}
