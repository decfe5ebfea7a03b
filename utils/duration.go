package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Duration is a time.Duration that unmarshals from JSON numbers
// (nanoseconds) and duration strings, including strings with a day
// segment like "3d" or "3d12h30m".
type Duration time.Duration

var dayFormat = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// ParseDuration parses a duration string. It accepts everything
// time.ParseDuration does, plus a day-based form with "d", "h", "m" and
// "s" segments in that order ("3d", "3d12h", "1d30m").
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := dayFormat.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total time.Duration

	found := false
	for _, segment := range matches[1:] {
		if segment == "" {
			continue
		}
		found = true

		n, err := strconv.Atoi(segment[:len(segment)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration segment %q", segment)
		}

		switch segment[len(segment)-1] {
		case 'd':
			total += time.Duration(n) * 24 * time.Hour
		case 'h':
			total += time.Duration(n) * time.Hour
		case 'm':
			total += time.Duration(n) * time.Minute
		case 's':
			total += time.Duration(n) * time.Second
		}
	}

	if !found {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}
