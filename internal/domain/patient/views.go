package patient

// Page names understood by the renderer.
const (
	PageIndex          = "index"
	PageAddPatient     = "add_patient"
	PageAddBaseline    = "add_baseline_treatment"
	PageAddAssessment  = "add_outcome_assessment"
	PagePatientDetails = "patient_details"
	PageSuccess        = "success"
)

const (
	msgDuplicateRegNo  = "Registration number already exists. Please check the number or search for the existing patient."
	msgPatientNotFound = "Patient not found."
	msgBaselineExists  = "Baseline treatment has already been recorded for this patient."
	msgBaselineSaved   = "Baseline Treatment details entered successfully."
)

type IndexView struct {
	Error string
}

// PatientFormView re-renders the registration form. Form holds what was
// submitted so the user does not have to type it again.
type PatientFormView struct {
	Error string
	Form  *Patient
}

type BaselineFormView struct {
	Patient *Patient
	Error   string
	Form    *BaselineTreatment
}

type AssessmentFormView struct {
	Patient         *Patient
	Number          int
	ShowFinalFields bool
	Error           string
	Form            *OutcomeAssessment
}

type PatientDetailsView struct {
	Patient     *Patient
	Baseline    *BaselineTreatment
	Assessments []*OutcomeAssessment
	NextNumber  int
}

type SuccessView struct {
	Message string
}

func newAssessmentFormView(slot *AssessmentSlot) *AssessmentFormView {
	return &AssessmentFormView{
		Patient:         slot.Patient,
		Number:          slot.Number,
		ShowFinalFields: slot.ShowFinalFields,
	}
}

func newPatientDetailsView(rec *PatientRecord) *PatientDetailsView {
	return &PatientDetailsView{
		Patient:     rec.Patient,
		Baseline:    rec.Baseline,
		Assessments: rec.Assessments,
		NextNumber:  rec.NextAssessmentNumber(),
	}
}
