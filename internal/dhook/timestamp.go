package dhook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// TimestampNow can be used as embed timestamp to refer to the time a message is built.
const TimestampNow = "now"

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Clock is the source for the current time.
type Clock interface {
	Now() time.Time
}

type realtime struct{}

func (rt realtime) Now() time.Time {
	return time.Now()
}

// TimestampOf returns an embed timestamp for t.
func TimestampOf(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp parses an embed timestamp.
// It reports whether the timestamp refers to the current time,
// or else returns the time it represents.
func parseTimestamp(s string) (bool, time.Time, error) {
	if s == "" {
		return false, time.Time{}, nil
	}
	if strings.EqualFold(s, TimestampNow) {
		return true, time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidTimestamp)
	}
	return false, t, nil
}

// resolveTimestamp returns the wire format of an embed timestamp.
// The clock is only consulted for "now".
func resolveTimestamp(s string, clock Clock) (string, error) {
	if s == "" {
		return "", nil
	}
	isNow, t, err := parseTimestamp(s)
	if err != nil {
		return "", err
	}
	if isNow {
		return TimestampOf(clock.Now()), nil
	}
	return TimestampOf(t), nil
}
