package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/petclinic-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type workingHoursRepository struct {
	db *sqlx.DB
}

type scheduleOverrideRepository struct {
	db *sqlx.DB
}

type rescheduleRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

type directoryRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewWorkingHoursRepository(db *sqlx.DB) repository.WorkingHoursRepository {
	return &workingHoursRepository{db: db}
}

func NewScheduleOverrideRepository(db *sqlx.DB) repository.ScheduleOverrideRepository {
	return &scheduleOverrideRepository{db: db}
}

func NewRescheduleRepository(db *sqlx.DB) repository.RescheduleRepository {
	return &rescheduleRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func NewDirectoryRepository(db *sqlx.DB) repository.DirectoryRepository {
	return &directoryRepository{db: db}
}
