package models

import "testing"

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"SUBWAY #1234":     "SUBWAY",
		" TACO BELL ":      "TACO BELL",
		"#1 DINER":         "",
		"PHO 97 # 2 # 3":   "PHO 97",
		"NO HASH PRESENT ": "NO HASH PRESENT",
	}
	for in, want := range tests {
		if got := CleanName(in); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRatingNonFinite(t *testing.T) {
	for _, raw := range []string{"Inf", "-Inf", "Infinity"} {
		if got := ParseRating(raw); got.State != RatingFailed {
			t.Errorf("ParseRating(%q) = %+v, want failed", raw, got)
		}
	}
	if got := ParseRating("NaN"); got.State != RatingAbsent {
		t.Errorf("ParseRating(NaN) = %+v, want absent", got)
	}
}
