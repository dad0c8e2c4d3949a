package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
)

// Visit is one encounter, uniquely identified across all patients by its
// externally-assigned account number.
type Visit struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	AccountNumber string         `gorm:"uniqueIndex;not null" json:"visitAccountNumber"`
	PatientID     int64          `gorm:"index;not null" json:"-"`
	VisitDate     datatypes.Date `gorm:"not null" json:"visitDate"`
	Reason        string         `gorm:"not null" json:"reason"`
}

// TableName overrides the table name of Visit.
func (Visit) TableName() string {
	return "visit"
}

func (r *repository) GetVisitByAccountNumber(ctx context.Context, accountNumber string) (*Visit, error) {
	var visit Visit
	err := r.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("visit account=%s: %w", accountNumber, errorsx.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (r *repository) CreateVisit(ctx context.Context, patientID int64, accountNumber string, visitDate time.Time, reason string) (*Visit, error) {
	visit := Visit{
		AccountNumber: accountNumber,
		PatientID:     patientID,
		VisitDate:     datatypes.Date(visitDate),
		Reason:        reason,
	}
	err := r.db.WithContext(ctx).Create(&visit).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("visit account=%s: %w", accountNumber, errorsx.ErrAlreadyExists)
	}
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// UpdateVisit applies the same compare-and-set discipline as UpdatePerson:
// only date and reason are mutable, and no UPDATE is issued when both match.
func (r *repository) UpdateVisit(ctx context.Context, visitID int64, visitDate time.Time, reason string) (bool, error) {
	var visit Visit
	err := r.db.WithContext(ctx).First(&visit, visitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("visit id=%d: %w", visitID, errorsx.ErrNotFound)
	}
	if err != nil {
		return false, err
	}

	updates := map[string]any{}
	if !sameDate(visit.VisitDate, visitDate) {
		updates["visit_date"] = datatypes.Date(visitDate)
	}
	if visit.Reason != reason {
		updates["reason"] = reason
	}
	if len(updates) == 0 {
		return false, nil
	}

	err = r.db.WithContext(ctx).Model(&Visit{}).Where("id = ?", visitID).Updates(updates).Error
	if err != nil {
		return false, err
	}
	return true, nil
}
