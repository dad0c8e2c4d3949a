package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DefaultPageSize is the pagination page size when none is assigned.
const DefaultPageSize = 10

// MaxPageSize is the maximum pagination page size.
const MaxPageSize = 100

// Repository is the data access layer for the patient/person/visit store.
type Repository interface {
	GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error)
	GetPatientByID(ctx context.Context, id int64) (*Patient, error)
	CreatePatientWithPerson(ctx context.Context, mrn, firstName, lastName string, birthDate time.Time) (*Patient, error)
	UpdatePerson(ctx context.Context, patientID int64, firstName, lastName string, birthDate time.Time) (bool, error)

	GetVisitByAccountNumber(ctx context.Context, accountNumber string) (*Visit, error)
	CreateVisit(ctx context.Context, patientID int64, accountNumber string, visitDate time.Time, reason string) (*Visit, error)
	UpdateVisit(ctx context.Context, visitID int64, visitDate time.Time, reason string) (bool, error)

	ListPatients(ctx context.Context, page, pageSize int, filter PatientFilter) ([]*Patient, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a Repository backed by the given gorm connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}
