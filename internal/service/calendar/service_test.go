package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/petclinic-api/internal/model"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

type fakeOverrideRepo struct {
	items []*model.ScheduleOverride
}

func (f *fakeOverrideRepo) Create(_ context.Context, o *model.ScheduleOverride) error {
	f.items = append(f.items, o)
	return nil
}

func (f *fakeOverrideRepo) Get(_ context.Context, id uuid.UUID) (*model.ScheduleOverride, error) {
	for _, o := range f.items {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, apperrors.NotFound("schedule", nil)
}

func (f *fakeOverrideRepo) Update(_ context.Context, _ *model.ScheduleOverride) error { return nil }
func (f *fakeOverrideRepo) Delete(_ context.Context, _ uuid.UUID) error               { return nil }

func (f *fakeOverrideRepo) ListApprovedInRange(_ context.Context, doctorID uuid.UUID, start, end model.Date) ([]*model.ScheduleOverride, error) {
	var out []*model.ScheduleOverride
	for _, o := range f.items {
		if o.DoctorID != doctorID || o.Status != model.OverrideStatusApproved {
			continue
		}
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOverrideRepo) RejectAllPending(_ context.Context, _, _ uuid.UUID, _ string) error {
	return nil
}

type fakeHoursRepo struct {
	items []*model.WorkingHours
}

func (f *fakeHoursRepo) Upsert(_ context.Context, wh *model.WorkingHours) error {
	f.items = append(f.items, wh)
	return nil
}

func (f *fakeHoursRepo) ListActive(_ context.Context, doctorID uuid.UUID) ([]*model.WorkingHours, error) {
	var out []*model.WorkingHours
	for _, wh := range f.items {
		if wh.DoctorID == doctorID && wh.IsActive {
			out = append(out, wh)
		}
	}
	return out, nil
}

func (f *fakeHoursRepo) DeactivateAll(_ context.Context, doctorID uuid.UUID) error {
	for _, wh := range f.items {
		if wh.DoctorID == doctorID {
			wh.IsActive = false
		}
	}
	return nil
}

var monday = model.NewDate(2025, time.March, 10) // a Monday

func weeklyHours(doctorID uuid.UUID, day time.Weekday, start, end model.TimeOfDay) *model.WorkingHours {
	return &model.WorkingHours{
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		IsActive:  true,
	}
}

func approvedOverride(doctorID uuid.UUID, date model.Date, start, end model.TimeOfDay) *model.ScheduleOverride {
	return &model.ScheduleOverride{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    model.OverrideStatusApproved,
	}
}

func TestResolveDayWeeklyHoursApply(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
	}}
	svc := NewService(&fakeOverrideRepo{}, hours)

	day, err := svc.ResolveDay(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.True(t, day.IsWorking)
	assert.Equal(t, model.CalendarSourceWorkingHours, day.Source)
	assert.Equal(t, model.TimeOfDay("09:00:00"), day.StartTime)
	assert.Equal(t, model.TimeOfDay("17:00:00"), day.EndTime)
	assert.Equal(t, "Monday", day.DayName)
}

func TestResolveDayOverrideWinsOverWeeklyHours(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
	}}
	overrides := &fakeOverrideRepo{items: []*model.ScheduleOverride{
		approvedOverride(doctorID, monday, "10:00:00", "14:00:00"),
	}}
	svc := NewService(overrides, hours)

	day, err := svc.ResolveDay(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.True(t, day.IsWorking)
	assert.Equal(t, model.CalendarSourceSchedule, day.Source)
	assert.Equal(t, model.TimeOfDay("10:00:00"), day.StartTime)
	assert.Equal(t, model.TimeOfDay("14:00:00"), day.EndTime)
}

func TestResolveDayDayOffOverride(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
	}}
	overrides := &fakeOverrideRepo{items: []*model.ScheduleOverride{
		approvedOverride(doctorID, monday, model.Midnight, model.Midnight),
	}}
	svc := NewService(overrides, hours)

	day, err := svc.ResolveDay(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.False(t, day.IsWorking)
	assert.Equal(t, model.CalendarSourceSchedule, day.Source)
}

func TestResolveDayPendingOverrideIgnored(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
	}}
	pending := approvedOverride(doctorID, monday, "10:00:00", "14:00:00")
	pending.Status = model.OverrideStatusPending
	svc := NewService(&fakeOverrideRepo{items: []*model.ScheduleOverride{pending}}, hours)

	day, err := svc.ResolveDay(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.Equal(t, model.CalendarSourceWorkingHours, day.Source)
	assert.Equal(t, model.TimeOfDay("09:00:00"), day.StartTime)
}

func TestResolveDayNoScheduleAtAll(t *testing.T) {
	svc := NewService(&fakeOverrideRepo{}, &fakeHoursRepo{})

	day, err := svc.ResolveDay(context.Background(), uuid.New(), monday)
	require.NoError(t, err)

	assert.False(t, day.IsWorking)
	assert.Equal(t, model.CalendarSourceNone, day.Source)
}

func TestResolveDayDeactivatedHoursAbsent(t *testing.T) {
	doctorID := uuid.New()
	wh := weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00")
	wh.IsActive = false
	svc := NewService(&fakeOverrideRepo{}, &fakeHoursRepo{items: []*model.WorkingHours{wh}})

	day, err := svc.ResolveDay(context.Background(), doctorID, monday)
	require.NoError(t, err)

	assert.False(t, day.IsWorking)
	assert.Equal(t, model.CalendarSourceNone, day.Source)
}

func TestResolveRangeAscendingAndMixed(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
		weeklyHours(doctorID, time.Wednesday, "08:00:00", "12:00:00"),
	}}
	overrides := &fakeOverrideRepo{items: []*model.ScheduleOverride{
		approvedOverride(doctorID, monday.AddDays(1), "13:00:00", "18:00:00"), // Tuesday
	}}
	svc := NewService(overrides, hours)

	days, err := svc.Resolve(context.Background(), doctorID, monday, monday.AddDays(2))
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, monday, days[0].Date)
	assert.Equal(t, model.CalendarSourceWorkingHours, days[0].Source)

	assert.Equal(t, monday.AddDays(1), days[1].Date)
	assert.Equal(t, model.CalendarSourceSchedule, days[1].Source)
	assert.Equal(t, model.TimeOfDay("13:00:00"), days[1].StartTime)

	assert.Equal(t, monday.AddDays(2), days[2].Date)
	assert.Equal(t, model.TimeOfDay("08:00:00"), days[2].StartTime)
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	svc := NewService(&fakeOverrideRepo{}, &fakeHoursRepo{})

	_, err := svc.Resolve(context.Background(), uuid.New(), monday, monday.AddDays(-1))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestResolveIsIdempotent(t *testing.T) {
	doctorID := uuid.New()
	hours := &fakeHoursRepo{items: []*model.WorkingHours{
		weeklyHours(doctorID, time.Monday, "09:00:00", "17:00:00"),
	}}
	svc := NewService(&fakeOverrideRepo{}, hours)

	first, err := svc.Resolve(context.Background(), doctorID, monday, monday.AddDays(6))
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), doctorID, monday, monday.AddDays(6))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
