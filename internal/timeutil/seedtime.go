// Package timeutil provides pure conversion helpers between the canonical
// decimal-seconds representation of a seed/declared time and its display
// form, "M:SS.cc" or "MM:SS.cc".
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidTimeFormat is returned when a display-form time string does not
// match "M:SS.cc" (one to three minute digits, exactly two seconds digits,
// exactly two centisecond digits).
var ErrInvalidTimeFormat = errors.New("invalid time format, expected M:SS.cc")

var timePattern = regexp.MustCompile(`^(\d{1,3}):([0-5]\d)\.(\d{2})$`)

// SecondsToDisplay formats decimal seconds as "M:SS.ss" with zero-padded
// seconds to 5 characters (SS.ss), e.g. 245.5 -> "4:05.50".
func SecondsToDisplay(seconds float64) string {
	totalCentis := int64(seconds*100 + 0.5)
	minutes := totalCentis / 6000
	remainder := totalCentis % 6000
	secs := remainder / 100
	centis := remainder % 100

	return fmt.Sprintf("%d:%02d.%02d", minutes, secs, centis)
}

// TimeToSeconds parses "M:SS.cc" or "MM:SS.cc" into canonical decimal
// seconds: seconds = m*60 + s.
func TimeToSeconds(display string) (float64, error) {
	match := timePattern.FindStringSubmatch(display)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, display)
	}

	minutes, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, display)
	}

	secs, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, display)
	}

	centis, err := strconv.ParseInt(match[3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, display)
	}

	total := float64(minutes*60+secs) + float64(centis)/100

	return total, nil
}
