package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WorkingHours struct {
	Base
	DoctorID  uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	DayOfWeek time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime TimeOfDay    `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay    `db:"end_time" json:"end_time"`
	IsActive  bool         `db:"is_active" json:"is_active"`
}

type OverrideStatus string

const (
	OverrideStatusPending  OverrideStatus = "pending"
	OverrideStatusApproved OverrideStatus = "approved"
	OverrideStatusRejected OverrideStatus = "rejected"
)

// ScheduleOverride is a date-specific exception to a doctor's weekly hours.
// A 00:00:00-00:00:00 window encodes a full day off.
type ScheduleOverride struct {
	Base
	DoctorID      uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Date          Date           `db:"date" json:"date"`
	StartTime     TimeOfDay      `db:"start_time" json:"start_time"`
	EndTime       TimeOfDay      `db:"end_time" json:"end_time"`
	IsRecurring   bool           `db:"is_recurring" json:"is_recurring"`
	RepeatPattern string         `db:"repeat_pattern" json:"repeat_pattern,omitempty"`
	Status        OverrideStatus `db:"status" json:"status"`
	RequestedBy   uuid.UUID      `db:"requested_by" json:"requested_by"`
	ApprovedBy    *uuid.UUID     `db:"approved_by" json:"approved_by,omitempty"`
	Notes         ScheduleNotes  `db:"notes" json:"notes"`
}

func (o *ScheduleOverride) IsDayOff() bool {
	return o.StartTime.IsMidnight() && o.EndTime.IsMidnight()
}

// ScheduleNote is one annotation in the append-only note history.
type ScheduleNote struct {
	Author    uuid.UUID `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// ScheduleNotes is stored as a JSONB column.
type ScheduleNotes []ScheduleNote

func (n ScheduleNotes) Value() (driver.Value, error) {
	if n == nil {
		n = ScheduleNotes{}
	}
	return json.Marshal(n)
}

func (n *ScheduleNotes) Scan(src interface{}) error {
	if src == nil {
		*n = ScheduleNotes{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ScheduleNotes", src)
	}
	return json.Unmarshal(b, n)
}

type CalendarSource string

const (
	CalendarSourceSchedule     CalendarSource = "schedule"
	CalendarSourceWorkingHours CalendarSource = "working_hours"
	CalendarSourceNone         CalendarSource = "none"
)

// CalendarDay is the resolved working window for one date. It is computed on
// demand and never persisted.
type CalendarDay struct {
	Date      Date           `json:"date"`
	DayName   string         `json:"day_name"`
	IsWorking bool           `json:"is_working"`
	StartTime TimeOfDay      `json:"start_time,omitempty"`
	EndTime   TimeOfDay      `json:"end_time,omitempty"`
	Source    CalendarSource `json:"source"`
	Notes     ScheduleNotes  `json:"notes,omitempty"`
}

type CreateScheduleRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      Date      `json:"date" binding:"required"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

type UpdateScheduleRequest struct {
	Date      *Date      `json:"date"`
	StartTime *TimeOfDay `json:"start_time"`
	EndTime   *TimeOfDay `json:"end_time"`
}

type ReviewScheduleRequest struct {
	Status OverrideStatus `json:"status" binding:"required,oneof=approved rejected"`
	Note   string         `json:"note" binding:"max=1000"`
}

type WorkingHoursInput struct {
	DayOfWeek time.Weekday `json:"day_of_week" binding:"min=0,max=6"`
	StartTime TimeOfDay    `json:"start_time" binding:"required"`
	EndTime   TimeOfDay    `json:"end_time" binding:"required"`
}

type UpsertWorkingHoursRequest struct {
	DoctorID uuid.UUID           `json:"doctor_id"`
	Hours    []WorkingHoursInput `json:"hours" binding:"required,dive"`
}
