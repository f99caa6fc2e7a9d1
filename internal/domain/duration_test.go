package domain

import (
	"errors"
	"testing"
	"time"
)

func TestFormatPosition(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00.000000000"},
		{time.Second, "00:00:01.000000000"},
		{90 * time.Minute, "01:30:00.000000000"},
		{time.Hour + 2*time.Minute + 3*time.Second + 456789 * time.Microsecond, "01:02:03.456789000"},
		{25 * time.Hour, "25:00:00.000000000"},
	}

	for _, tt := range tests {
		if got := FormatPosition(tt.d); got != tt.want {
			t.Errorf("FormatPosition(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00.000000000", 0},
		{"00:00:01.000000000", time.Second},
		{"01:30:00.000000000", 90 * time.Minute},
		// Seven digit fractions come from older writers.
		{"00:00:01.5000000", time.Second + 500*time.Millisecond},
		{"25:00:00.000000000", 25 * time.Hour},
	}

	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if err != nil {
			t.Errorf("ParsePosition(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePosition_Malformed(t *testing.T) {
	malformed := []string{
		"",
		"1:2",
		"01:02:03",
		"01:02:03.04.05",
		"aa:bb:cc.dd",
		"01-02-03.000",
	}

	for _, in := range malformed {
		if _, err := ParsePosition(in); !errors.Is(err, ErrMalformedPosition) {
			t.Errorf("ParsePosition(%q) error = %v, want ErrMalformedPosition", in, err)
		}
	}
}

func TestPositionRoundTrip(t *testing.T) {
	durations := []time.Duration{
		0,
		time.Millisecond,
		time.Second,
		time.Hour + 23*time.Minute + 45*time.Second + 678*time.Millisecond,
		99 * time.Hour,
	}

	for _, d := range durations {
		got, err := ParsePosition(FormatPosition(d))
		if err != nil {
			t.Fatalf("round trip of %v: %v", d, err)
		}
		if got != d {
			t.Errorf("round trip of %v = %v", d, got)
		}
	}
}
