// File: internal/api/types.go
package api

import (
	"context"
	"time"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
)

// timestampLayout matches the dashboard's original display format.
const timestampLayout = "2006-01-02 15:04:05"

// Store is the part of the record store the API reads and writes.
type Store interface {
	Latest(ctx context.Context, owner string) (attendance.Record, error)
	Profile(ctx context.Context, owner string) (attendance.Profile, error)
	SetGoal(ctx context.Context, owner string, goal float64) (attendance.Profile, error)
}

// Scraper runs one scrape with the given credentials. scraper.Runner implements it.
type Scraper interface {
	Run(ctx context.Context, creds config.Credentials) (attendance.Record, error)
}

// AttendanceResponse is the latest record together with the owner's goal.
type AttendanceResponse struct {
	TotalClasses    int                   `json:"total_classes_conducted"`
	ClassesAttended int                   `json:"classes_attended"`
	Percentage      attendance.Percentage `json:"attendance_percentage"`
	CalendarDate    string                `json:"calendar_date"`
	Timestamp       string                `json:"timestamp"`
	Goal            float64               `json:"attendance_goal"`
	Status          attendance.Status     `json:"status"`
}

func newAttendanceResponse(rec attendance.Record, goal float64, loc *time.Location) AttendanceResponse {
	return AttendanceResponse{
		TotalClasses:    rec.TotalClasses,
		ClassesAttended: rec.ClassesAttended,
		Percentage:      rec.Percentage,
		CalendarDate:    rec.Date(),
		Timestamp:       rec.RecordedAt.In(loc).Format(timestampLayout),
		Goal:            goal,
		Status:          attendance.Classify(rec.Percentage, goal),
	}
}

// LoginRequest carries portal credentials for a single scrape.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GoalRequest updates the attendance goal.
type GoalRequest struct {
	Goal *float64 `json:"attendance_goal"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
