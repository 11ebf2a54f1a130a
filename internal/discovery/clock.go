package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadClock = errors.New("unrecognised time of day")

// ParseClock parses "hh:mm AM", "h:mmpm" or 24-hour "HH:MM".
// 12 AM is hour 0 and 12 PM is hour 12.
func ParseClock(s string) (hour, minute int, err error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, 0, ErrBadClock
	}

	meridiem := ""
	switch {
	case strings.HasSuffix(v, "AM"):
		meridiem = "AM"
	case strings.HasSuffix(v, "PM"):
		meridiem = "PM"
	}
	if meridiem != "" {
		v = strings.TrimSpace(strings.TrimSuffix(v, meridiem))
	}

	hh, mm, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
		}
	default:
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "PM" {
			hour += 12
		}
	}
	return hour, minute, nil
}

// minutesOfDay returns -1 for unparseable input.
func minutesOfDay(s string) int {
	h, m, err := ParseClock(s)
	if err != nil {
		return -1
	}
	return h*60 + m
}

// TimeBucket is a departure time-of-day window.
type TimeBucket string

const (
	BeforeSix TimeBucket = "before-6am" // [00:00, 06:00)
	Morning   TimeBucket = "morning"    // [06:00, 12:00)
	Afternoon TimeBucket = "afternoon"  // [12:00, 18:00)
	Evening   TimeBucket = "evening"    // [18:00, 24:00)
)

func (b TimeBucket) Valid() bool {
	switch b {
	case BeforeSix, Morning, Afternoon, Evening:
		return true
	}
	return false
}

// Contains reports whether an hour in 0..23 falls in the bucket.
func (b TimeBucket) Contains(hour int) bool {
	switch b {
	case BeforeSix:
		return hour >= 0 && hour < 6
	case Morning:
		return hour >= 6 && hour < 12
	case Afternoon:
		return hour >= 12 && hour < 18
	case Evening:
		return hour >= 18 && hour < 24
	}
	return false
}

// BucketOf returns the bucket a departure time falls in.
func BucketOf(departure string) (TimeBucket, error) {
	h, _, err := ParseClock(departure)
	if err != nil {
		return "", err
	}
	for _, b := range []TimeBucket{BeforeSix, Morning, Afternoon, Evening} {
		if b.Contains(h) {
			return b, nil
		}
	}
	return "", ErrBadClock
}
