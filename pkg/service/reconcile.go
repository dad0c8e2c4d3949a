package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelake/intake-backend/pkg/repository"
	"github.com/carelake/intake-backend/pkg/staging"

	errorsx "github.com/carelake/intake-backend/pkg/errors"
)

// RowOutcome classifies how one staged row was applied. A false flag means
// the corresponding entity already existed and was counted as updated, even
// when the compare-and-set found nothing to change.
type RowOutcome struct {
	PatientCreated bool
	VisitCreated   bool
}

// Reconciler applies one flat visit row to the patient/person/visit store,
// branching between create and update on the natural keys (MRN, visit
// account number).
type Reconciler struct {
	repository repository.Repository
}

// NewReconciler returns a Reconciler over the given store.
func NewReconciler(repo repository.Repository) *Reconciler {
	return &Reconciler{repository: repo}
}

// ReconcileRow upserts the row's patient, person and visit state. Any
// returned error is a row-level error: the caller records it and moves on to
// the next row. An unchanged person or visit is a successful no-op update,
// not an error.
func (r *Reconciler) ReconcileRow(ctx context.Context, rec staging.VisitRecord) (RowOutcome, error) {
	var out RowOutcome

	if err := requireFields(rec); err != nil {
		return out, err
	}

	birthDate, err := time.Parse(staging.DateLayout, rec.BirthDate)
	if err != nil {
		return out, fmt.Errorf("%w: birth_date %q is not a valid %s date", errorsx.ErrInvalidArgument, rec.BirthDate, staging.DateLayout)
	}
	visitDate, err := time.Parse(staging.DateLayout, rec.VisitDate)
	if err != nil {
		return out, fmt.Errorf("%w: visit_date %q is not a valid %s date", errorsx.ErrInvalidArgument, rec.VisitDate, staging.DateLayout)
	}

	patient, err := r.repository.GetPatientByMRN(ctx, rec.MRN)
	switch {
	case errors.Is(err, errorsx.ErrNotFound):
		patient, err = r.repository.CreatePatientWithPerson(ctx, rec.MRN, rec.FirstName, rec.LastName, birthDate)
		if err != nil {
			// A concurrent worker may have created the MRN between lookup
			// and insert; the conflict stays a row-level error.
			return out, err
		}
		out.PatientCreated = true
	case err != nil:
		return out, err
	default:
		if _, err := r.repository.UpdatePerson(ctx, patient.ID, rec.FirstName, rec.LastName, birthDate); err != nil {
			return out, err
		}
	}

	visit, err := r.repository.GetVisitByAccountNumber(ctx, rec.AccountNumber)
	switch {
	case errors.Is(err, errorsx.ErrNotFound):
		if _, err := r.repository.CreateVisit(ctx, patient.ID, rec.AccountNumber, visitDate, rec.Reason); err != nil {
			return out, err
		}
		out.VisitCreated = true
	case err != nil:
		return out, err
	default:
		if visit.PatientID != patient.ID {
			// Account numbers are globally unique; a visit is never
			// reassigned to another patient.
			return out, fmt.Errorf("%w: visit account=%s belongs to a different patient", errorsx.ErrAlreadyExists, rec.AccountNumber)
		}
		if _, err := r.repository.UpdateVisit(ctx, visit.ID, visitDate, rec.Reason); err != nil {
			return out, err
		}
	}

	return out, nil
}

func requireFields(rec staging.VisitRecord) error {
	missing := ""
	switch {
	case rec.MRN == "":
		missing = "mrn"
	case rec.FirstName == "":
		missing = "first_name"
	case rec.LastName == "":
		missing = "last_name"
	case rec.BirthDate == "":
		missing = "birth_date"
	case rec.AccountNumber == "":
		missing = "visit_account_number"
	case rec.VisitDate == "":
		missing = "visit_date"
	case rec.Reason == "":
		missing = "reason"
	}
	if missing != "" {
		return fmt.Errorf("%w: missing required field %s", errorsx.ErrInvalidArgument, missing)
	}
	return nil
}
