package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/petclinic-api/internal/model"
	"github.com/jwalitptl/petclinic-api/pkg/clock"
	apperrors "github.com/jwalitptl/petclinic-api/pkg/errors"
)

type rejectAllCall struct {
	DoctorID uuid.UUID
	AdminID  uuid.UUID
	Note     string
}

type fakeOverrideRepo struct {
	items      map[uuid.UUID]*model.ScheduleOverride
	rejectCall *rejectAllCall
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{items: make(map[uuid.UUID]*model.ScheduleOverride)}
}

func (f *fakeOverrideRepo) Create(_ context.Context, o *model.ScheduleOverride) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	f.items[o.ID] = o
	return nil
}

func (f *fakeOverrideRepo) Get(_ context.Context, id uuid.UUID) (*model.ScheduleOverride, error) {
	o, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFound("schedule", nil)
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOverrideRepo) Update(_ context.Context, o *model.ScheduleOverride) error {
	f.items[o.ID] = o
	return nil
}

func (f *fakeOverrideRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func (f *fakeOverrideRepo) ListApprovedInRange(_ context.Context, _ uuid.UUID, _, _ model.Date) ([]*model.ScheduleOverride, error) {
	return nil, nil
}

func (f *fakeOverrideRepo) RejectAllPending(_ context.Context, doctorID, adminID uuid.UUID, note string) error {
	f.rejectCall = &rejectAllCall{DoctorID: doctorID, AdminID: adminID, Note: note}
	for _, o := range f.items {
		if o.DoctorID == doctorID && o.Status == model.OverrideStatusPending {
			o.Status = model.OverrideStatusRejected
		}
	}
	return nil
}

type fakeHoursRepo struct {
	items       map[uuid.UUID][]*model.WorkingHours
	deactivated []uuid.UUID
}

func newFakeHoursRepo() *fakeHoursRepo {
	return &fakeHoursRepo{items: make(map[uuid.UUID][]*model.WorkingHours)}
}

func (f *fakeHoursRepo) Upsert(_ context.Context, wh *model.WorkingHours) error {
	existing := f.items[wh.DoctorID]
	for i, e := range existing {
		if e.DayOfWeek == wh.DayOfWeek {
			existing[i] = wh
			return nil
		}
	}
	f.items[wh.DoctorID] = append(existing, wh)
	return nil
}

func (f *fakeHoursRepo) ListActive(_ context.Context, doctorID uuid.UUID) ([]*model.WorkingHours, error) {
	var out []*model.WorkingHours
	for _, wh := range f.items[doctorID] {
		if wh.IsActive {
			out = append(out, wh)
		}
	}
	return out, nil
}

func (f *fakeHoursRepo) DeactivateAll(_ context.Context, doctorID uuid.UUID) error {
	f.deactivated = append(f.deactivated, doctorID)
	for _, wh := range f.items[doctorID] {
		wh.IsActive = false
	}
	return nil
}

var (
	testNow  = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	testDate = model.NewDate(2025, time.March, 10)
)

type fixture struct {
	svc       *Service
	overrides *fakeOverrideRepo
	hours     *fakeHoursRepo
	clk       *clock.Fixed
}

func newFixture() *fixture {
	f := &fixture{
		overrides: newFakeOverrideRepo(),
		hours:     newFakeHoursRepo(),
		clk:       &clock.Fixed{Instant: testNow},
	}
	f.svc = NewService(f.overrides, f.hours, f.clk)
	return f
}

func admin() model.Actor  { return model.Actor{ID: uuid.New(), Role: model.RoleAdmin} }
func doctor() model.Actor { return model.Actor{ID: uuid.New(), Role: model.RoleDoctor} }
func client() model.Actor { return model.Actor{ID: uuid.New(), Role: model.RoleClient} }

func TestCreateOverrideStartsPending(t *testing.T) {
	f := newFixture()
	actor := doctor()

	override, err := f.svc.CreateOverride(context.Background(), actor, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
		Notes:     "half day for training",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OverrideStatusPending, override.Status)
	assert.Equal(t, actor.ID, override.RequestedBy)
	assert.Nil(t, override.ApprovedBy)
	require.Len(t, override.Notes, 1)
	assert.Equal(t, actor.ID, override.Notes[0].Author)
	assert.Equal(t, testNow, override.Notes[0].Timestamp)
	assert.Equal(t, "half day for training", override.Notes[0].Text)
}

func TestCreateOverrideDoctorIsSelfScoped(t *testing.T) {
	f := newFixture()
	actor := doctor()

	override, err := f.svc.CreateOverride(context.Background(), actor, &model.CreateScheduleRequest{
		DoctorID:  uuid.New(), // ignored for doctors
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	assert.Equal(t, actor.ID, override.DoctorID)
}

func TestCreateOverrideClientForbidden(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOverride(context.Background(), client(), &model.CreateScheduleRequest{
		Date: testDate,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestCreateOverrideRequiresDoctorForAdmins(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOverride(context.Background(), admin(), &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateOverrideValidatesWindow(t *testing.T) {
	f := newFixture()
	actor := doctor()

	_, err := f.svc.CreateOverride(context.Background(), actor, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "14:00:00",
		EndTime:   "10:00:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateOverrideDayOffWindowAllowed(t *testing.T) {
	f := newFixture()
	actor := doctor()

	override, err := f.svc.CreateOverride(context.Background(), actor, &model.CreateScheduleRequest{
		Date: testDate,
	})
	require.NoError(t, err)

	assert.True(t, override.IsDayOff())
}

func TestReviewApprovalStampsAdminAndAppendsNote(t *testing.T) {
	f := newFixture()
	doc := doctor()
	override, err := f.svc.CreateOverride(context.Background(), doc, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
		Notes:     "dentist appointment",
	})
	require.NoError(t, err)

	reviewer := admin()
	f.clk.Advance(time.Hour)
	reviewed, err := f.svc.Review(context.Background(), reviewer, override.ID, &model.ReviewScheduleRequest{
		Status: model.OverrideStatusApproved,
		Note:   "approved, coverage arranged",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OverrideStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ApprovedBy)
	assert.Equal(t, reviewer.ID, *reviewed.ApprovedBy)

	require.Len(t, reviewed.Notes, 2)
	assert.Equal(t, doc.ID, reviewed.Notes[0].Author)
	assert.Equal(t, reviewer.ID, reviewed.Notes[1].Author)
	assert.Equal(t, testNow.Add(time.Hour), reviewed.Notes[1].Timestamp)
}

func TestReviewNonAdminForbidden(t *testing.T) {
	f := newFixture()
	doc := doctor()
	override, err := f.svc.CreateOverride(context.Background(), doc, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Review(context.Background(), doc, override.ID, &model.ReviewScheduleRequest{
		Status: model.OverrideStatusApproved,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestReviewResolvedOverrideConflicts(t *testing.T) {
	f := newFixture()
	override, err := f.svc.CreateOverride(context.Background(), doctor(), &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Review(context.Background(), admin(), override.ID, &model.ReviewScheduleRequest{
		Status: model.OverrideStatusRejected,
	})
	require.NoError(t, err)

	_, err = f.svc.Review(context.Background(), admin(), override.ID, &model.ReviewScheduleRequest{
		Status: model.OverrideStatusApproved,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestReviewRejectsInvalidStatus(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Review(context.Background(), admin(), uuid.New(), &model.ReviewScheduleRequest{
		Status: model.OverrideStatusPending,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestUpdateResolvedOverrideImmutable(t *testing.T) {
	f := newFixture()
	doc := doctor()
	override, err := f.svc.CreateOverride(context.Background(), doc, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Review(context.Background(), admin(), override.ID, &model.ReviewScheduleRequest{
		Status: model.OverrideStatusApproved,
	})
	require.NoError(t, err)

	newStart := model.TimeOfDay("11:00:00")
	_, err = f.svc.UpdateOverride(context.Background(), doc, override.ID, &model.UpdateScheduleRequest{
		StartTime: &newStart,
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestUpdateOverrideForeignDoctorForbidden(t *testing.T) {
	f := newFixture()
	override, err := f.svc.CreateOverride(context.Background(), doctor(), &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	newStart := model.TimeOfDay("11:00:00")
	_, err = f.svc.UpdateOverride(context.Background(), doctor(), override.ID, &model.UpdateScheduleRequest{
		StartTime: &newStart,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestUpsertWorkingHoursStoresActiveRows(t *testing.T) {
	f := newFixture()
	doc := doctor()

	saved, err := f.svc.UpsertWorkingHours(context.Background(), doc, &model.UpsertWorkingHoursRequest{
		Hours: []model.WorkingHoursInput{
			{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "17:00"},
			{DayOfWeek: time.Tuesday, StartTime: "09:00:00", EndTime: "13:00:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	for _, wh := range saved {
		assert.Equal(t, doc.ID, wh.DoctorID)
		assert.True(t, wh.IsActive)
	}

	active, err := f.svc.ListWorkingHours(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestUpsertWorkingHoursValidatesWindow(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpsertWorkingHours(context.Background(), doctor(), &model.UpsertWorkingHoursRequest{
		Hours: []model.WorkingHoursInput{
			{DayOfWeek: time.Monday, StartTime: "17:00:00", EndTime: "09:00:00"},
		},
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestUpsertWorkingHoursClientForbidden(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpsertWorkingHours(context.Background(), client(), &model.UpsertWorkingHoursRequest{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestDeactivateDoctorCascades(t *testing.T) {
	f := newFixture()
	doc := doctor()

	_, err := f.svc.UpsertWorkingHours(context.Background(), doc, &model.UpsertWorkingHoursRequest{
		Hours: []model.WorkingHoursInput{
			{DayOfWeek: time.Monday, StartTime: "09:00:00", EndTime: "17:00:00"},
		},
	})
	require.NoError(t, err)

	pending, err := f.svc.CreateOverride(context.Background(), doc, &model.CreateScheduleRequest{
		Date:      testDate,
		StartTime: "10:00:00",
		EndTime:   "14:00:00",
	})
	require.NoError(t, err)

	actor := admin()
	require.NoError(t, f.svc.DeactivateDoctor(context.Background(), actor, doc.ID))

	require.NotNil(t, f.overrides.rejectCall)
	assert.Equal(t, doc.ID, f.overrides.rejectCall.DoctorID)
	assert.Equal(t, actor.ID, f.overrides.rejectCall.AdminID)
	assert.Equal(t, "doctor account deactivated", f.overrides.rejectCall.Note)
	assert.Equal(t, model.OverrideStatusRejected, f.overrides.items[pending.ID].Status)

	active, err := f.svc.ListWorkingHours(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeactivateDoctorNonAdminForbidden(t *testing.T) {
	f := newFixture()

	err := f.svc.DeactivateDoctor(context.Background(), doctor(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}
