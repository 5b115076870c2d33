// Package attendance holds the domain types shared by the scraper, the record
// store and the reporting API.
package attendance

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DefaultGoal is the attendance goal a profile starts with.
const DefaultGoal = 75.0

// unknownLiteral is how an unknown percentage is rendered.
const unknownLiteral = "unknown"

// Percentage is an attendance percentage in [0, 100] or the unknown sentinel,
// which is used when no classes were counted. The zero value is unknown.
type Percentage struct {
	value float64
	known bool
}

// Unknown is the sentinel for "no classes counted".
var Unknown = Percentage{}

// KnownPercentage wraps a computed value.
func KnownPercentage(v float64) Percentage { return Percentage{value: v, known: true} }

// ComputePercentage returns attended/total*100 rounded to two decimals, or
// Unknown when total is not positive.
func ComputePercentage(attended, total int) Percentage {
	if total <= 0 {
		return Unknown
	}
	return KnownPercentage(math.Round(float64(attended)/float64(total)*100*100) / 100)
}

// Value returns the percentage and whether it is known.
func (p Percentage) Value() (float64, bool) { return p.value, p.known }

func (p Percentage) IsKnown() bool { return p.known }

func (p Percentage) String() string {
	if !p.known {
		return unknownLiteral
	}
	return strconv.FormatFloat(p.value, 'f', 2, 64)
}

// Ptr returns nil for Unknown, which is how the stores write NULL.
func (p Percentage) Ptr() *float64 {
	if !p.known {
		return nil
	}
	v := p.value
	return &v
}

// PercentageFromPtr is the inverse of Ptr.
func PercentageFromPtr(v *float64) Percentage {
	if v == nil {
		return Unknown
	}
	return KnownPercentage(*v)
}

// MarshalJSON renders a number, or the string "unknown".
func (p Percentage) MarshalJSON() ([]byte, error) {
	if !p.known {
		return []byte(`"` + unknownLiteral + `"`), nil
	}
	return []byte(strconv.FormatFloat(p.value, 'f', 2, 64)), nil
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"`+unknownLiteral+`"`)) {
		*p = Unknown
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid percentage %s: %w", data, err)
	}
	*p = KnownPercentage(v)
	return nil
}

// Record is one persisted attendance snapshot. There is at most one per
// (Owner, CalendarDate); a later same-day save replaces it.
type Record struct {
	Owner           string     `json:"owner"`
	CalendarDate    time.Time  `json:"-"`
	TotalClasses    int        `json:"total_classes_conducted"`
	ClassesAttended int        `json:"classes_attended"`
	Percentage      Percentage `json:"attendance_percentage"`
	RecordedAt      time.Time  `json:"recorded_at"`
}

// Date is CalendarDate formatted as YYYY-MM-DD.
func (r Record) Date() string { return r.CalendarDate.Format(time.DateOnly) }

// Validate checks the record's counting invariants.
func (r Record) Validate() error {
	if r.Owner == "" {
		return fmt.Errorf("record owner must not be empty")
	}
	if r.TotalClasses < 0 || r.ClassesAttended < 0 {
		return fmt.Errorf("class counts must not be negative (attended=%d, total=%d)", r.ClassesAttended, r.TotalClasses)
	}
	if r.ClassesAttended > r.TotalClasses {
		return fmt.Errorf("classes attended (%d) exceeds classes conducted (%d)", r.ClassesAttended, r.TotalClasses)
	}
	if v, ok := r.Percentage.Value(); ok && (v < 0 || v > 100) {
		return fmt.Errorf("attendance percentage %.2f outside [0, 100]", v)
	}
	return nil
}

// DateOf returns the calendar date of t in loc, as midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Profile is the owner's attendance goal.
type Profile struct {
	Owner string  `json:"owner"`
	Goal  float64 `json:"attendance_goal"`
}

// Status classifies a percentage against a goal.
type Status string

const (
	StatusOnTrack   Status = "on_track"
	StatusBelowGoal Status = "below_goal"
	StatusUnknown   Status = "unknown"
)

// Classify reports whether p meets goal.
func Classify(p Percentage, goal float64) Status {
	v, ok := p.Value()
	switch {
	case !ok:
		return StatusUnknown
	case v >= goal:
		return StatusOnTrack
	default:
		return StatusBelowGoal
	}
}
