package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedPosition is returned when a serialized bookmark position
// does not match the HH:MM:SS.fffffffff shape.
var ErrMalformedPosition = errors.New("malformed bookmark position")

// FormatPosition renders a duration in the fixed-width storage format
// HH:MM:SS.fffffffff with a nine digit fractional part.
func FormatPosition(d time.Duration) string {
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	nanos := d - seconds*time.Second

	return fmt.Sprintf("%02d:%02d:%02d.%09d", hours, minutes, seconds, nanos)
}

// ParsePosition parses the storage format back into a duration. Splitting
// on ':' and '.' must yield exactly four parts. Fractional parts shorter
// than nine digits are accepted; older writers used seven digit ticks.
func ParsePosition(s string) (time.Duration, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == '.'
	})
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPosition, s)
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: hours in %q: %v", ErrMalformedPosition, s, err)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: minutes in %q: %v", ErrMalformedPosition, s, err)
	}
	seconds, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q: %v", ErrMalformedPosition, s, err)
	}

	frac := parts[3]
	if len(frac) > 9 {
		frac = frac[:9]
	}
	nanos, err := strconv.ParseInt(frac+strings.Repeat("0", 9-len(frac)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: fraction in %q: %v", ErrMalformedPosition, s, err)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(nanos), nil
}
