package atcmd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// MaxHexChars bounds hex payload tokens (128 bytes).
const MaxHexChars = 256

// IsQuery reports the "?" form of a command.
func IsQuery(args []string) bool {
	return len(args) == 1 && args[0] == "?"
}

func isDigits(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}

	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// ParseUint accepts an all-digit token not larger than limit.
func ParseUint(token string, limit uint64) (uint64, error) {
	if !isDigits(token) {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ParamError, token)
	}
	v, err := strconv.ParseUint(token, 10, 64)
	if err != nil || v > limit {
		return 0, fmt.Errorf("%w: %s out of range 0..%d", ParamError, token, limit)
	}

	return v, nil
}

// ParseInt accepts an optionally signed decimal token within [lo, hi].
func ParseInt(token string, lo, hi int64) (int64, error) {
	digits := token
	if len(digits) > 0 && (digits[0] == '-' || digits[0] == '+') {
		digits = digits[1:]
	}
	if !isDigits(digits) {
		return 0, fmt.Errorf("%w: %q is not a decimal number", ParamError, token)
	}
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s out of range %d..%d", ParamError, token, lo, hi)
	}

	return v, nil
}

// ParseFlag accepts exactly "0" or "1".
func ParseFlag(token string) (bool, error) {
	switch token {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q is not 0 or 1", ParamError, token)
	}
}

// ParseHexBytes decodes a non-empty, even-length hex token of at most maxChars characters.
func ParseHexBytes(token string, maxChars int) ([]byte, error) {
	switch {
	case token == "":
		return nil, fmt.Errorf("%w: empty hex payload", ParamError)
	case len(token) > maxChars:
		return nil, fmt.Errorf("%w: hex payload longer than %d characters", ParamError, maxChars)
	case len(token)%2 != 0:
		return nil, fmt.Errorf("%w: odd hex payload length %d", ParamError, len(token))
	}
	for i := 0; i < len(token); i++ {
		if !isHexDigit(token[i]) {
			return nil, fmt.Errorf("%w: %q is not hex", ParamError, token)
		}
	}
	out, err := hex.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ParamError, err)
	}

	return out, nil
}

// ParseHexUint32 accepts 1 to 8 hex digits.
func ParseHexUint32(token string) (uint32, error) {
	if token == "" || len(token) > 8 {
		return 0, fmt.Errorf("%w: %q is not a 32-bit hex id", ParamError, token)
	}
	for i := 0; i < len(token); i++ {
		if !isHexDigit(token[i]) {
			return 0, fmt.Errorf("%w: %q is not hex", ParamError, token)
		}
	}
	v, err := strconv.ParseUint(token, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ParamError, err)
	}

	return uint32(v), nil
}

// DateTime is the RTC write form yyyy:mm:dd:hh:MM.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// Time converts to a local time. Hour 24 rolls over to the next day.
func (d DateTime) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, 0, 0, loc)
}

var dateTimeBounds = [5]struct {
	name   string
	lo, hi uint64
}{
	{"year", 2022, 3000},
	{"month", 1, 12},
	{"day", 1, 31},
	{"hour", 0, 24},
	{"minute", 0, 59},
}

// ParseDateTime validates the five RTC fields. Every token must be all digits before any bound is checked.
func ParseDateTime(args []string) (DateTime, error) {
	if len(args) != len(dateTimeBounds) {
		return DateTime{}, fmt.Errorf("%w: expected %d fields, got %d", ParamError, len(dateTimeBounds), len(args))
	}
	for _, token := range args {
		if !isDigits(token) {
			return DateTime{}, fmt.Errorf("%w: %q is not a decimal number", ParamError, token)
		}
	}

	var values [5]int
	for idx, bound := range dateTimeBounds {
		v, err := strconv.ParseUint(args[idx], 10, 32)
		if err != nil || v < bound.lo || v > bound.hi {
			return DateTime{}, fmt.Errorf("%w: %s %s out of range %d..%d", ParamError, bound.name, args[idx], bound.lo, bound.hi)
		}
		values[idx] = int(v)
	}

	return DateTime{
		Year:   values[0],
		Month:  values[1],
		Day:    values[2],
		Hour:   values[3],
		Minute: values[4],
	}, nil
}
