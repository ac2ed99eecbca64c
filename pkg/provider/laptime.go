package provider

import (
	"strconv"
	"strings"
	"time"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
)

// ParseLapTime reads lap times as published by the timing API: "1:31.447",
// "58.123" or "1:02:03.456".
func ParseLapTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty lap time")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errors.Errorf("malformed lap time %q", s)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 {
		return 0, errors.Errorf("malformed seconds in lap time %q", s)
	}
	if len(parts) > 1 && seconds >= 60 {
		return 0, errors.Errorf("seconds out of range in lap time %q", s)
	}

	total := seconds
	multiplier := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, errors.Errorf("malformed lap time %q", s)
		}
		total += float64(n) * multiplier
		multiplier *= 60
	}
	if total == 0 {
		return 0, errors.Errorf("zero lap time %q", s)
	}
	return time.Duration(total * float64(time.Second)).Round(time.Millisecond), nil
}

func toNullDuration(s string) model.NullDuration {
	d, err := ParseLapTime(s)
	if err != nil {
		return model.NullDuration{}
	}
	return model.NewNullDuration(d)
}
