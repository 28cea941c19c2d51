package patient

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	// Create inserts p and assigns its ID. It returns ErrDuplicateRegNo,
	// without writing anything, when the registration number is taken.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByRegNo(ctx context.Context, regNo string) (*Patient, error)
	// FindBySearchKey matches key exactly against reg_no or screening_no,
	// preferring a reg_no match, then the earliest registered patient.
	FindBySearchKey(ctx context.Context, key string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type BaselineRepository interface {
	// Create returns ErrBaselineExists if the patient already has one.
	Create(ctx context.Context, b *BaselineTreatment) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*BaselineTreatment, error)
}

type AssessmentRepository interface {
	// Append numbers a as the patient's next assessment and inserts it in a
	// single step, so concurrent callers never share or skip a number.
	Append(ctx context.Context, a *OutcomeAssessment) error
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*OutcomeAssessment, error)
}
