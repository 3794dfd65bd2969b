package clock

import (
	"fmt"
	"time"
)

// Snapshot is the wall-clock reading used for one frame.
type Snapshot struct {
	Hour   int
	Minute int
	Date   time.Time
}

// Formats holds the immutable formatting values built once at startup.
type Formats struct {
	DateLayout string
	AM         string
	PM         string
}

func DefaultFormats() Formats {
	return Formats{
		DateLayout: "Mon, Jan 02 2006",
		AM:         "AM",
		PM:         "PM",
	}
}

// Take reads now in loc. A nil loc means time.Local.
func Take(now time.Time, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return Snapshot{Hour: local.Hour(), Minute: local.Minute(), Date: local}
}

// FormatTwoDigit zero-pads n to two digits.
func FormatTwoDigit(n int) string {
	return fmt.Sprintf("%02d", n)
}

func (s Snapshot) HourString() string   { return FormatTwoDigit(s.Hour) }
func (s Snapshot) MinuteString() string { return FormatTwoDigit(s.Minute) }

func (f Formats) DateString(s Snapshot) string {
	return s.Date.Format(f.DateLayout)
}

// AmPm returns the AM or PM marker for hour (0-23).
func (f Formats) AmPm(hour int) string {
	if hour < 12 {
		return f.AM
	}
	return f.PM
}
