package sim

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// VTime is a point or a span on the virtual timeline, counted in nanoseconds.
//
// VTime values are totally ordered with the normal integer comparison
// operators. Forever is the largest value and absorbs addition and
// multiplication.
type VTime int64

// Units of virtual time.
const (
	Nanosecond  VTime = 1
	Microsecond VTime = 1000 * Nanosecond
	Millisecond VTime = 1000 * Microsecond
	Second      VTime = 1000 * Millisecond
	Minute      VTime = 60 * Second
	Hour        VTime = 60 * Minute
)

const (
	// Zero is the beginning of every simulation.
	Zero VTime = 0

	// Forever is the unbounded future.
	Forever VTime = math.MaxInt64
)

// IsForever tells if the time is the unbounded future.
func (t VTime) IsForever() bool {
	return t == Forever
}

// IsNegative tells if the time is before Zero.
func (t VTime) IsNegative() bool {
	return t < 0
}

// Add returns t + d, saturating at Forever.
func (t VTime) Add(d VTime) VTime {
	if t == Forever || d == Forever {
		return Forever
	}

	sum := t + d
	if d > 0 && sum < t {
		return Forever
	}

	return sum
}

// Sub returns t - d. Forever minus any finite time stays Forever.
func (t VTime) Sub(d VTime) VTime {
	if t == Forever && d != Forever {
		return Forever
	}

	return t - d
}

// Mul returns t * n, saturating at Forever.
func (t VTime) Mul(n int64) VTime {
	if t == 0 || n == 0 {
		return 0
	}

	if t == Forever {
		return Forever
	}

	if t > 0 && n > 0 && int64(t) > math.MaxInt64/n {
		return Forever
	}

	return VTime(int64(t) * n)
}

// Min returns the earlier of the two times.
func Min(a, b VTime) VTime {
	if a < b {
		return a
	}

	return b
}

// Seconds returns the time as a floating point number of seconds.
func (t VTime) Seconds() float64 {
	if t == Forever {
		return math.Inf(1)
	}

	return float64(t) / float64(Second)
}

// Milliseconds returns the time as a floating point number of milliseconds.
func (t VTime) Milliseconds() float64 {
	if t == Forever {
		return math.Inf(1)
	}

	return float64(t) / float64(Millisecond)
}

// Truncate returns the number of whole units in t.
func (t VTime) Truncate(unit VTime) int64 {
	return int64(t / unit)
}

// FromSeconds converts a floating point number of seconds to VTime, rounding to
// the nearest nanosecond.
func FromSeconds(s float64) VTime {
	if math.IsInf(s, 1) || s*float64(Second) >= math.MaxInt64 {
		return Forever
	}

	return VTime(math.Round(s * float64(Second)))
}

// String formats the time in seconds, the way the logs print it.
func (t VTime) String() string {
	if t == Forever {
		return "FOREVER"
	}

	return strconv.FormatFloat(t.Seconds(), 'f', -1, 64) + "s"
}

var unitByName = map[string]VTime{
	"ns": Nanosecond,
	"us": Microsecond,
	"ms": Millisecond,
	"s":  Second,
	"m":  Minute,
	"h":  Hour,
}

var vtimePattern = regexp.MustCompile(`^\+?(\d+(?:\.\d*)?)\s*([a-zA-Z]+)$`)

// ParseVTime parses strings such as "10ms", "1.5 s", "ZERO" and "FOREVER".
func ParseVTime(s string) (VTime, error) {
	trimmed := strings.TrimSpace(s)

	switch strings.ToUpper(trimmed) {
	case "FOREVER", "INFINITE":
		return Forever, nil
	case "ZERO":
		return Zero, nil
	}

	m := vtimePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, fmt.Errorf("%w: cannot parse %q as a time",
			ErrInvalidArgument, s)
	}

	unit, ok := unitByName[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("%w: unit %q not recognized in %q",
			ErrInvalidArgument, m[2], s)
	}

	if !strings.Contains(m[1], ".") {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}

		return VTime(v).Mul(int64(unit)), nil
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	ns := v * float64(unit)
	if ns >= math.MaxInt64 {
		return Forever, nil
	}

	return VTime(math.Round(ns)), nil
}
