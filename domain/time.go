package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// LocalTimeLayout is the wire format for timestamps: local wall time without an offset.
const LocalTimeLayout = "2006-01-02T15:04:05"

// dueDateLayout truncates seconds so that a due date never shifts when the
// service stores it with minute precision.
const dueDateLayout = "2006-01-02T15:04:00"

var localTimeInputs = []string{
	LocalTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LocalTime is a timestamp exchanged with the service as local time without a
// zone offset.
type LocalTime struct {
	time.Time
}

// NewLocalTime wraps t.
func NewLocalTime(t time.Time) *LocalTime {
	return &LocalTime{Time: t}
}

// ParseLocalTime parses a local timestamp. Accepted inputs are the wire layout
// (with optional fractional seconds), minute precision, a bare date, and RFC 3339.
func ParseLocalTime(raw string) (LocalTime, error) {
	for _, layout := range localTimeInputs {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return LocalTime{Time: t}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return LocalTime{Time: t.In(time.Local)}, nil
	}
	return LocalTime{}, fmt.Errorf("invalid local time %q", raw)
}

// FormatDueDate renders t the way due dates are sent to the service.
func FormatDueDate(t time.Time) string {
	return t.In(time.Local).Format(dueDateLayout)
}

// String renders the timestamp with seconds.
func (t LocalTime) String() string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(LocalTimeLayout)
}

// MarshalJSON emits the wire layout with seconds. Due dates on task writes go
// through TaskBody, which truncates them.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.String())), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid local time %s", data)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseLocalTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
