package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError describes why a free-text coordinate string was rejected.
// Parsing never falls back to a default; the caller surfaces Reason to the
// user and blocks whatever depended on the coordinate.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse coordinate %q: %s", e.Input, e.Reason)
}

// ParseFreeText parses user-entered coordinates like "28.7163, 75.7882",
// "28.7163 75.7882" or "75.7882,28.7163".
//
// The two numbers are classified by range: a value with |v| <= 90 is a
// latitude candidate and its companion must satisfy |v| <= 180. When both
// orderings are range-valid the first value is taken as latitude.
func ParseFreeText(input string) (Coordinate, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Coordinate{}, &ParseError{Input: input, Reason: "empty input"}
	}

	var parts []string
	if strings.Contains(trimmed, ",") {
		parts = strings.Split(trimmed, ",")
	} else {
		parts = strings.Fields(trimmed)
	}
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	if len(fields) != 2 {
		return Coordinate{}, &ParseError{Input: input, Reason: fmt.Sprintf("expected 2 values, got %d", len(fields))}
	}

	first, err1 := strconv.ParseFloat(fields[0], 64)
	second, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return Coordinate{}, &ParseError{Input: input, Reason: "values are not numbers"}
	}

	switch {
	case math.Abs(first) <= 90 && math.Abs(second) <= 180:
		// lat,lng — also the tie-break when both orderings would fit
		return Coordinate{Lat: first, Lng: second}, nil
	case math.Abs(second) <= 90 && math.Abs(first) <= 180:
		// lng,lat
		return Coordinate{Lat: second, Lng: first}, nil
	default:
		return Coordinate{}, &ParseError{Input: input, Reason: "values out of latitude/longitude range"}
	}
}
