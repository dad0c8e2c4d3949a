package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
)

// Patient anchors an identity by MRN. It owns exactly one Person and
// zero-or-more Visits; neither is ever deleted by the reconciliation path.
type Patient struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	MRN        string    `gorm:"column:mrn;uniqueIndex;not null" json:"mrn"`
	CreateTime time.Time `gorm:"autoCreateTime" json:"createTime"`
	Person     *Person   `gorm:"foreignKey:PatientID" json:"person,omitempty"`
	Visits     []Visit   `gorm:"foreignKey:PatientID" json:"visits"`
}

// TableName overrides the table name of Patient.
func (Patient) TableName() string {
	return "patient"
}

// Person holds the demographic facts of a Patient. It is a weak entity keyed
// directly on the owning patient's id.
type Person struct {
	PatientID int64          `gorm:"primaryKey" json:"-"`
	FirstName string         `gorm:"not null" json:"firstName"`
	LastName  string         `gorm:"index;not null" json:"lastName"`
	BirthDate datatypes.Date `gorm:"not null" json:"birthDate"`
}

// TableName overrides the table name of Person.
func (Person) TableName() string {
	return "person"
}

// PatientFilter holds the optional case-insensitive substring filters of a
// patient listing. Empty fields are ignored; set fields are AND-combined.
type PatientFilter struct {
	MRN       string
	FirstName string
	LastName  string
}

const dateLayout = "2006-01-02"

func sameDate(d datatypes.Date, t time.Time) bool {
	return time.Time(d).Format(dateLayout) == t.Format(dateLayout)
}

func (r *repository) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).Preload("Person").Where("mrn = ?", mrn).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("patient MRN=%s: %w", mrn, errorsx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *repository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	var patient Patient
	err := r.db.WithContext(ctx).
		Preload("Person").
		Preload("Visits", func(db *gorm.DB) *gorm.DB { return db.Order("visit.id") }).
		First(&patient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("patient id=%d: %w", id, errorsx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// CreatePatientWithPerson inserts the patient and its person record in one
// transaction so a patient is never visible without demographics.
func (r *repository) CreatePatientWithPerson(ctx context.Context, mrn, firstName, lastName string, birthDate time.Time) (*Patient, error) {
	patient := Patient{MRN: mrn}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}
		person := Person{
			PatientID: patient.ID,
			FirstName: firstName,
			LastName:  lastName,
			BirthDate: datatypes.Date(birthDate),
		}
		if err := tx.Create(&person).Error; err != nil {
			return err
		}
		patient.Person = &person
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("patient MRN=%s: %w", mrn, errorsx.ErrAlreadyExists)
	}
	if err != nil {
		return nil, err
	}

	return &patient, nil
}

// UpdatePerson runs a field-wise compare-and-set over the patient's person
// record and reports whether anything actually changed. No UPDATE is issued
// when every field already matches.
func (r *repository) UpdatePerson(ctx context.Context, patientID int64, firstName, lastName string, birthDate time.Time) (bool, error) {
	var person Person
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).First(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("person patient_id=%d: %w", patientID, errorsx.ErrNotFound)
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{}
	if person.FirstName != firstName {
		updates["first_name"] = firstName
	}
	if person.LastName != lastName {
		updates["last_name"] = lastName
	}
	if !sameDate(person.BirthDate, birthDate) {
		updates["birth_date"] = datatypes.Date(birthDate)
	}
	if len(updates) == 0 {
		return false, nil
	}

	err = r.db.WithContext(ctx).Model(&Person{}).Where("patient_id = ?", patientID).Updates(updates).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListPatients(ctx context.Context, page, pageSize int, filter PatientFilter) ([]*Patient, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Patient{}).
			Joins("JOIN person ON person.patient_id = patient.id")
		if filter.MRN != "" {
			q = q.Where("LOWER(patient.mrn) LIKE ?", contains(filter.MRN))
		}
		if filter.FirstName != "" {
			q = q.Where("LOWER(person.first_name) LIKE ?", contains(filter.FirstName))
		}
		if filter.LastName != "" {
			q = q.Where("LOWER(person.last_name) LIKE ?", contains(filter.LastName))
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var patients []*Patient
	err := base().
		Preload("Person").
		Preload("Visits", func(db *gorm.DB) *gorm.DB { return db.Order("visit.id") }).
		Order("patient.id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&patients).Error
	if err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
