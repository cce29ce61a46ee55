package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a plain calendar date (year, month, day) with no time-of-day or
// zone component. Calendar resolution compares these directly, so a date can
// never shift across midnight when the server zone changes.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// At combines the date with a time of day in the given location.
func (d Date) At(t TimeOfDay, loc *time.Location) (time.Time, error) {
	h, m, s, err := t.Clock()
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year, d.Month, d.Day, h, m, s, 0, loc), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// TimeOfDay is a wall-clock time encoded as "HH:MM:SS" ("HH:MM" accepted).
type TimeOfDay string

const Midnight TimeOfDay = "00:00:00"

func (t TimeOfDay) Clock() (hour, min, sec int, err error) {
	s := string(t)
	if s == "" {
		return 0, 0, 0, nil
	}
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &hour, &min, &sec); err != nil {
		sec = 0
		if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	return hour, min, sec, nil
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() (int, error) {
	h, m, _, err := t.Clock()
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func (t TimeOfDay) Validate() error {
	_, _, _, err := t.Clock()
	return err
}

// IsMidnight reports whether the value is exactly 00:00:00; a midnight-to-
// midnight window on a schedule override encodes a day off.
func (t TimeOfDay) IsMidnight() bool {
	h, m, s, err := t.Clock()
	return err == nil && h == 0 && m == 0 && s == 0
}
