package util

import "time"

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// TimeToISO8601Str formats t in UTC with millisecond precision. The zero time
// formats as "".
func TimeToISO8601Str(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func ParseISO8601(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ParseEventStart combines an event's date and optional wall-clock time.
func ParseEventStart(date, clock string, loc *time.Location) (time.Time, error) {
	if clock == "" {
		return time.ParseInLocation(DateFormat, date, loc)
	}
	return time.ParseInLocation(DateFormat+" "+TimeFormat, date+" "+clock, loc)
}
