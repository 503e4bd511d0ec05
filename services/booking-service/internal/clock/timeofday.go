package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is minutes after midnight, 0 through 1439, or Midnight as a
// closing time.
type TimeOfDay int

const MinutesPerDay = 24 * 60

// Midnight is "24:00", the end of the day. It is only valid as a close time.
const Midnight = TimeOfDay(MinutesPerDay)

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS", plus "24:00". Seconds must
// be zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("invalid time %q: seconds not supported", s)
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("invalid time %q: past midnight", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Valid reports a time within the day, 00:00 through 23:59.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < MinutesPerDay }

// ValidClose is Valid extended to Midnight.
func (t TimeOfDay) ValidClose() bool { return t >= 0 && t <= Midnight }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
