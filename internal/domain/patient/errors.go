package patient

import "errors"

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrBaselineNotFound = errors.New("baseline treatment not found")
	ErrDuplicateRegNo   = errors.New("registration number already exists")
	ErrBaselineExists   = errors.New("baseline treatment already recorded")
	ErrAssessmentLimit  = errors.New("all outcome assessments already recorded")
	ErrValidation       = errors.New("validation failed")
)
