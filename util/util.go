// Package util contains misc internal utilities.
package util

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// IntSliceToCSV convets a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, ",")
}

// Float64SliceToCSV is IntSliceToCSV for floats, using the shortest
// representation that round trips
func Float64SliceToCSV(fs []float64) string {
	s := make([]string, len(fs))
	for i, v := range fs {
		s[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(s, ",")
}

// Clamp limits input to the closed interval [low, high]
func Clamp(input, low, high float64) float64 {
	return math.Max(low, math.Min(input, high))
}

// SecsToDuration converts a floating point number of seconds to a Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}
