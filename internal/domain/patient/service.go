package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casebook/casebook/internal/platform/events"
)

type Service struct {
	patients    PatientRepository
	baselines   BaselineRepository
	assessments AssessmentRepository
	publisher   events.Publisher
	logger      zerolog.Logger
}

func NewService(patients PatientRepository, baselines BaselineRepository, assessments AssessmentRepository) *Service {
	return &Service{
		patients:    patients,
		baselines:   baselines,
		assessments: assessments,
		logger:      zerolog.Nop(),
	}
}

// SetPublisher attaches an optional event publisher to the service.
func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

// SetLogger replaces the service's logger, which defaults to a no-op.
func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "patient").Logger()
}

// Register creates a new patient. Registration numbers are unique; a second
// registration with the same number fails with ErrDuplicateRegNo and leaves
// the store untouched.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	p.RegNo = strings.TrimSpace(p.RegNo)
	p.Name = strings.TrimSpace(p.Name)
	if p.RegNo == "" {
		return fmt.Errorf("%w: reg_no is required", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	if err := s.patients.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateRegNo) {
			s.logDuplicate(ctx, p.RegNo)
		}
		return err
	}

	s.publish(ctx, events.New(events.TypePatientRegistered, p.ID, p.RegNo))
	return nil
}

// logDuplicate names the patient that already holds regNo so the operator
// can be pointed at the existing record.
func (s *Service) logDuplicate(ctx context.Context, regNo string) {
	evt := s.logger.Warn().Str("reg_no", regNo)
	if existing, err := s.patients.GetByRegNo(ctx, regNo); err == nil {
		evt = evt.Str("existing_patient_id", existing.ID.String())
	}
	evt.Msg("registration rejected: duplicate reg_no")
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrPatientNotFound) {
		s.logger.Warn().Str("patient_id", id.String()).Msg("unknown patient id")
	}
	return p, err
}

// RecordBaseline stores the patient's baseline treatment. It can only be
// recorded once per patient.
func (s *Service) RecordBaseline(ctx context.Context, patientID uuid.UUID, b *BaselineTreatment) error {
	p, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}

	b.PatientID = p.ID
	if err := s.baselines.Create(ctx, b); err != nil {
		if errors.Is(err, ErrBaselineExists) {
			s.logger.Warn().Str("patient_id", p.ID.String()).Str("reg_no", p.RegNo).
				Msg("baseline rejected: already recorded")
		}
		return err
	}

	s.publish(ctx, events.New(events.TypeBaselineRecorded, p.ID, p.RegNo))
	return nil
}

// AssessmentForm reports which assessment would be recorded next for the
// patient. It fails with ErrAssessmentLimit once all of them exist.
func (s *Service) AssessmentForm(ctx context.Context, patientID uuid.UUID) (*AssessmentSlot, error) {
	p, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	count, err := s.assessments.CountByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("count assessments: %w", err)
	}
	if count >= MaxAssessments {
		s.logAssessmentLimit(p)
		return nil, ErrAssessmentLimit
	}

	next := count + 1
	return &AssessmentSlot{
		Patient:         p,
		Number:          next,
		ShowFinalFields: IsFinalAssessment(next),
	}, nil
}

// RecordAssessment appends the patient's next outcome assessment. The number
// is assigned by the store; a.AssessmentNumber is ignored on input and set on
// success. Miasm and susceptibility data are kept only on the final one.
func (s *Service) RecordAssessment(ctx context.Context, patientID uuid.UUID, a *OutcomeAssessment) (*Patient, error) {
	if strings.TrimSpace(a.Date) == "" {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	p, err := s.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	a.PatientID = p.ID
	if err := s.assessments.Append(ctx, a); err != nil {
		if errors.Is(err, ErrAssessmentLimit) {
			s.logAssessmentLimit(p)
		}
		return nil, err
	}

	evt := events.New(events.TypeAssessmentRecorded, p.ID, p.RegNo)
	evt.AssessmentNumber = a.AssessmentNumber
	s.publish(ctx, evt)
	return p, nil
}

// Search finds a patient by exact registration or screening number and loads
// their full record.
func (s *Service) Search(ctx context.Context, key string) (*PatientRecord, error) {
	if key == "" {
		return nil, ErrPatientNotFound
	}
	p, err := s.patients.FindBySearchKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.loadRecord(ctx, p)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadRecord(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) loadRecord(ctx context.Context, p *Patient) (*PatientRecord, error) {
	rec := &PatientRecord{Patient: p, Assessments: []*OutcomeAssessment{}}

	b, err := s.baselines.GetByPatient(ctx, p.ID)
	switch {
	case err == nil:
		rec.Baseline = b
	case !errors.Is(err, ErrBaselineNotFound):
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	assessments, err := s.assessments.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}
	if assessments != nil {
		rec.Assessments = assessments
	}
	return rec, nil
}

func (s *Service) logAssessmentLimit(p *Patient) {
	s.logger.Warn().Str("patient_id", p.ID.String()).Str("reg_no", p.RegNo).
		Int("max", MaxAssessments).Msg("assessment rejected: limit reached")
}

// publish never fails the caller; the record is already committed. The
// request's cancellation is dropped so a client disconnect or request timeout
// right after the commit does not lose the event.
func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.Error().Err(err).Str("event_type", evt.Type).Str("patient_id", evt.PatientID).
			Msg("publish record event")
	}
}
