package patient

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casebook/casebook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pages *echo.Group, api *echo.Group) {
	// Data-entry workflow
	pages.GET("/", h.Index)
	pages.GET("/add_patient", h.NewPatientForm)
	pages.POST("/add_patient", h.AddPatient)
	pages.GET("/add_baseline_treatment/:patient_id", h.BaselineForm)
	pages.POST("/add_baseline_treatment/:patient_id", h.AddBaseline)
	pages.GET("/patient_details", h.PatientDetails)
	pages.GET("/add_outcome_assessment/:patient_id", h.AssessmentForm)
	pages.POST("/add_outcome_assessment/:patient_id", h.AddAssessment)

	// Read-only JSON
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/search", h.SearchPatient)
	api.GET("/patients/:id", h.GetPatientRecord)
}

// -- Pages --

func (h *Handler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, PageIndex, &IndexView{})
}

func (h *Handler) NewPatientForm(c echo.Context) error {
	return c.Render(http.StatusOK, PageAddPatient, &PatientFormView{Form: &Patient{}})
}

func (h *Handler) AddPatient(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	p := patientFromForm(form)
	err = h.svc.Register(c.Request().Context(), p)
	switch {
	case err == nil:
		return c.Redirect(http.StatusFound, "/add_baseline_treatment/"+p.ID.String())
	case errors.Is(err, ErrDuplicateRegNo):
		return c.Render(http.StatusConflict, PageAddPatient, &PatientFormView{Error: msgDuplicateRegNo, Form: p})
	case errors.Is(err, ErrValidation):
		return c.Render(http.StatusUnprocessableEntity, PageAddPatient, &PatientFormView{Error: validationMessage(err), Form: p})
	default:
		return internalError(err)
	}
}

func (h *Handler) BaselineForm(c echo.Context) error {
	id, ok := patientIDParam(c)
	if !ok {
		return redirectHome(c)
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		return redirectHome(c)
	}
	if err != nil {
		return internalError(err)
	}
	return c.Render(http.StatusOK, PageAddBaseline, &BaselineFormView{Patient: p, Form: &BaselineTreatment{}})
}

func (h *Handler) AddBaseline(c echo.Context) error {
	id, ok := patientIDParam(c)
	if !ok {
		return redirectHome(c)
	}
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	ctx := c.Request().Context()
	b := baselineFromForm(form)
	err = h.svc.RecordBaseline(ctx, id, b)
	switch {
	case err == nil:
		return c.Render(http.StatusOK, PageSuccess, &SuccessView{Message: msgBaselineSaved})
	case errors.Is(err, ErrPatientNotFound):
		return redirectHome(c)
	case errors.Is(err, ErrBaselineExists):
		p, getErr := h.svc.GetPatient(ctx, id)
		if getErr != nil {
			return internalError(getErr)
		}
		return c.Render(http.StatusConflict, PageAddBaseline, &BaselineFormView{Patient: p, Error: msgBaselineExists, Form: b})
	default:
		return internalError(err)
	}
}

func (h *Handler) PatientDetails(c echo.Context) error {
	rec, err := h.svc.Search(c.Request().Context(), c.QueryParam("search_query"))
	if errors.Is(err, ErrPatientNotFound) {
		return c.Render(http.StatusNotFound, PageIndex, &IndexView{Error: msgPatientNotFound})
	}
	if err != nil {
		return internalError(err)
	}
	return c.Render(http.StatusOK, PagePatientDetails, newPatientDetailsView(rec))
}

func (h *Handler) AssessmentForm(c echo.Context) error {
	id, ok := patientIDParam(c)
	if !ok {
		return redirectHome(c)
	}
	slot, err := h.svc.AssessmentForm(c.Request().Context(), id)
	if isBlocked(err) {
		return redirectHome(c)
	}
	if err != nil {
		return internalError(err)
	}
	view := newAssessmentFormView(slot)
	view.Form = &OutcomeAssessment{}
	return c.Render(http.StatusOK, PageAddAssessment, view)
}

func (h *Handler) AddAssessment(c echo.Context) error {
	id, ok := patientIDParam(c)
	if !ok {
		return redirectHome(c)
	}
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	ctx := c.Request().Context()
	a := assessmentFromForm(form)
	p, err := h.svc.RecordAssessment(ctx, id, a)
	switch {
	case err == nil:
		return c.Redirect(http.StatusFound, "/patient_details?search_query="+url.QueryEscape(p.RegNo))
	case isBlocked(err):
		return redirectHome(c)
	case errors.Is(err, ErrValidation):
		slot, slotErr := h.svc.AssessmentForm(ctx, id)
		if isBlocked(slotErr) {
			return redirectHome(c)
		}
		if slotErr != nil {
			return internalError(slotErr)
		}
		view := newAssessmentFormView(slot)
		view.Error = validationMessage(err)
		view.Form = a
		return c.Render(http.StatusUnprocessableEntity, PageAddAssessment, view)
	default:
		return internalError(err)
	}
}

// -- JSON API --

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(c.Path(), patients, total, pg))
}

func (h *Handler) GetPatientRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) SearchPatient(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	rec, err := h.svc.Search(c.Request().Context(), q)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// -- Form binding --

// optional returns nil when the field was not submitted at all. A submitted
// empty field is kept as an empty string.
func optional(form url.Values, key string) *string {
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

func patientFromForm(form url.Values) *Patient {
	return &Patient{
		RegNo:               form.Get("reg_no"),
		Name:                form.Get("name"),
		ScreeningNo:         optional(form, "screening_no"),
		ScreeningDate:       optional(form, "screening_date"),
		Age:                 optional(form, "age"),
		Sex:                 optional(form, "sex"),
		Residence:           optional(form, "residence"),
		ContactNo:           optional(form, "contact_no"),
		DurationMC:          optional(form, "duration_mc"),
		CoMorbidities:       optional(form, "co_morbidities"),
		RiskFactors:         optional(form, "risk_factors"),
		TreatmentTaken:      optional(form, "treatment_taken"),
		WeightKg:            optional(form, "weight_kg"),
		HeightCm:            optional(form, "height_cm"),
		EducationStatus:     optional(form, "education_status"),
		SocioEconomicStatus: optional(form, "socio_economic_status"),
	}
}

func baselineFromForm(form url.Values) *BaselineTreatment {
	return &BaselineTreatment{
		Date:               optional(form, "date"),
		PresentComplaint:   optional(form, "present_complaint"),
		Prescription:       optional(form, "prescription"),
		MiasmData:          optional(form, "miasm_data"),
		SusceptibilityData: optional(form, "susceptibility_data"),
	}
}

func assessmentFromForm(form url.Values) *OutcomeAssessment {
	return &OutcomeAssessment{
		Date:               form.Get("date"),
		BriefNotes:         optional(form, "brief_notes"),
		Prescription:       optional(form, "prescription"),
		OridlMainComplaint: optional(form, "oridl_main_complaint"),
		OridlWellbeing:     optional(form, "oridl_wellbeing"),
		MiasmData:          optional(form, "miasm_data"),
		SusceptibilityData: optional(form, "susceptibility_data"),
	}
}

// -- Helpers --

func patientIDParam(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("patient_id"))
	return id, err == nil
}

// redirectHome is the response for an unknown patient or a full assessment
// list. The reason is logged by the service, not shown.
func redirectHome(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/")
}

// internalError hides storage details from the page and keeps them for the
// request log.
func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

func isBlocked(err error) bool {
	return errors.Is(err, ErrPatientNotFound) || errors.Is(err, ErrAssessmentLimit)
}

// validationMessage turns "validation failed: name is required" into
// "Name is required."
func validationMessage(err error) string {
	_, detail, ok := strings.Cut(err.Error(), ": ")
	if !ok || detail == "" {
		return "Please check the form and try again."
	}
	return strings.ToUpper(detail[:1]) + detail[1:] + "."
}
