package room

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timeControlPattern = regexp.MustCompile(`^\d+\+\d+$`)

// NormalizeTimeControl validates a client-supplied time control string,
// normalising the matchmaker-only wildcard "any" to defaultTC (used when a
// create_room request carries "any", per §6).
func NormalizeTimeControl(tc, defaultTC string) (string, error) {
	if tc == "" || tc == "any" {
		tc = defaultTC
	}
	if tc == "none" {
		return tc, nil
	}
	if !timeControlPattern.MatchString(tc) {
		return "", fmt.Errorf("invalid time control %q", tc)
	}
	return tc, nil
}

// ParseClocks derives the starting clock state from a validated time
// control string ("M+S" or "none").
func ParseClocks(tc string) Clocks {
	if tc == "none" {
		return Clocks{Enabled: false}
	}
	parts := strings.SplitN(tc, "+", 2)
	if len(parts) != 2 {
		return Clocks{Enabled: false}
	}
	minutes, _ := strconv.Atoi(parts[0])
	seconds, _ := strconv.Atoi(parts[1])
	ms := int64(minutes) * 60_000
	return Clocks{WMs: ms, BMs: ms, IncrementMs: int64(seconds) * 1_000, Enabled: true}
}
