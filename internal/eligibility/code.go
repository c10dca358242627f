package eligibility

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// AssignCode builds the volunteer code INITIALS-YEAR-SEQUENCE, e.g.
// FGG-2026-0338. The sequence is one past the greatest numeric suffix
// among existing codes minted in the same year; recomputing the max
// instead of keeping a counter means manually imported codes never
// collide with generated ones. Malformed suffixes are skipped.
//
// firstName and paternal must be non-empty; the create paths validate
// them before calling.
func AssignCode(firstName, paternal, maternal string, year int, existing []string) string {
	initials := strings.ToUpper(initial(firstName) + initial(paternal) + initialOrX(maternal))
	seq := NextSequence(year, existing)
	return fmt.Sprintf("%s-%d-%04d", initials, year, seq)
}

// NextSequence scans existing codes for the year's greatest sequence
// number and returns the next one. Codes whose last dash-delimited token
// is not numeric do not abort the scan.
func NextSequence(year int, existing []string) int {
	marker := fmt.Sprintf("-%d-", year)
	max := 0
	for _, code := range existing {
		if !strings.Contains(code, marker) {
			continue
		}
		tokens := strings.Split(code, "-")
		suffix := tokens[len(tokens)-1]
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

func initial(s string) string {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return string(r)
		}
	}
	return ""
}

// Missing maternal surnames take X as placeholder initial.
func initialOrX(s string) string {
	if v := initial(s); v != "" {
		return v
	}
	return "X"
}
