package patient

import (
	"time"

	"github.com/google/uuid"
)

// MaxAssessments is the number of outcome assessments a patient can have.
// The last one also carries the miasm and susceptibility data.
const MaxAssessments = 6

// Patient maps to the patient table. Everything except RegNo and Name is
// free text captured as typed on the registration form.
type Patient struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	RegNo               string    `db:"reg_no" json:"reg_no"`
	Name                string    `db:"name" json:"name"`
	ScreeningNo         *string   `db:"screening_no" json:"screening_no,omitempty"`
	ScreeningDate       *string   `db:"screening_date" json:"screening_date,omitempty"`
	Age                 *string   `db:"age" json:"age,omitempty"`
	Sex                 *string   `db:"sex" json:"sex,omitempty"`
	Residence           *string   `db:"residence" json:"residence,omitempty"`
	ContactNo           *string   `db:"contact_no" json:"contact_no,omitempty"`
	DurationMC          *string   `db:"duration_mc" json:"duration_mc,omitempty"`
	CoMorbidities       *string   `db:"co_morbidities" json:"co_morbidities,omitempty"`
	RiskFactors         *string   `db:"risk_factors" json:"risk_factors,omitempty"`
	TreatmentTaken      *string   `db:"treatment_taken" json:"treatment_taken,omitempty"`
	WeightKg            *string   `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm            *string   `db:"height_cm" json:"height_cm,omitempty"`
	EducationStatus     *string   `db:"education_status" json:"education_status,omitempty"`
	SocioEconomicStatus *string   `db:"socio_economic_status" json:"socio_economic_status,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// BaselineTreatment maps to the baseline_treatment table. A patient has at
// most one and it is never changed after it is written.
type BaselineTreatment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	Date               *string   `db:"date" json:"date,omitempty"`
	PresentComplaint   *string   `db:"present_complaint" json:"present_complaint,omitempty"`
	Prescription       *string   `db:"prescription" json:"prescription,omitempty"`
	MiasmData          *string   `db:"miasm_data" json:"miasm_data,omitempty"`
	SusceptibilityData *string   `db:"susceptibility_data" json:"susceptibility_data,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// OutcomeAssessment maps to the outcome_assessment table.
type OutcomeAssessment struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	AssessmentNumber   int       `db:"assessment_number" json:"assessment_number"`
	Date               string    `db:"date" json:"date"`
	BriefNotes         *string   `db:"brief_notes" json:"brief_notes,omitempty"`
	Prescription       *string   `db:"prescription" json:"prescription,omitempty"`
	OridlMainComplaint *string   `db:"oridl_main_complaint" json:"oridl_main_complaint,omitempty"`
	OridlWellbeing     *string   `db:"oridl_wellbeing" json:"oridl_wellbeing,omitempty"`
	MiasmData          *string   `db:"miasm_data" json:"miasm_data,omitempty"`
	SusceptibilityData *string   `db:"susceptibility_data" json:"susceptibility_data,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// IsFinalAssessment reports whether assessment number n is the one that
// records miasm and susceptibility data.
func IsFinalAssessment(n int) bool {
	return n == MaxAssessments
}

// clearNonFinalFields drops the final-only fields unless this is the final
// assessment, whatever the form submitted.
func (a *OutcomeAssessment) clearNonFinalFields() {
	if !IsFinalAssessment(a.AssessmentNumber) {
		a.MiasmData = nil
		a.SusceptibilityData = nil
	}
}

// PatientRecord is a patient with everything recorded against them.
// Assessments are ordered by AssessmentNumber.
type PatientRecord struct {
	Patient     *Patient             `json:"patient"`
	Baseline    *BaselineTreatment   `json:"baseline_treatment,omitempty"`
	Assessments []*OutcomeAssessment `json:"outcome_assessments"`
}

// NextAssessmentNumber is the number the next assessment would get, or 0
// when all assessments have been recorded.
func (r *PatientRecord) NextAssessmentNumber() int {
	if len(r.Assessments) >= MaxAssessments {
		return 0
	}
	return len(r.Assessments) + 1
}

// AssessmentSlot describes the assessment that would be created next for a
// patient.
type AssessmentSlot struct {
	Patient         *Patient
	Number          int
	ShowFinalFields bool
}
