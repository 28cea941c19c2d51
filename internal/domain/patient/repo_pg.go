package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casebook/casebook/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func connFor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Patient --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, reg_no, name, screening_no, screening_date, age, sex, residence, contact_no,
	duration_mc, co_morbidities, risk_factors, treatment_taken, weight_kg, height_cm,
	education_status, socio_economic_status, created_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	id := uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (
			id, reg_no, name, screening_no, screening_date, age, sex, residence, contact_no,
			duration_mc, co_morbidities, risk_factors, treatment_taken, weight_kg, height_cm,
			education_status, socio_economic_status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (reg_no) DO NOTHING
		RETURNING created_at`,
		id, p.RegNo, p.Name, p.ScreeningNo, p.ScreeningDate, p.Age, p.Sex, p.Residence, p.ContactNo,
		p.DurationMC, p.CoMorbidities, p.RiskFactors, p.TreatmentTaken, p.WeightKg, p.HeightCm,
		p.EducationStatus, p.SocioEconomicStatus,
	).Scan(&p.CreatedAt)
	if db.IsNotFound(err) {
		return ErrDuplicateRegNo
	}
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	p.ID = id
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByRegNo(ctx context.Context, regNo string) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE reg_no = $1`, regNo))
}

func (r *patientRepoPG) FindBySearchKey(ctx context.Context, key string) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE reg_no = $1 OR screening_no = $1
		ORDER BY (reg_no = $1) DESC, created_at, id
		LIMIT 1`, key))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := connFor(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.RegNo, &p.Name, &p.ScreeningNo, &p.ScreeningDate, &p.Age, &p.Sex, &p.Residence, &p.ContactNo,
		&p.DurationMC, &p.CoMorbidities, &p.RiskFactors, &p.TreatmentTaken, &p.WeightKg, &p.HeightCm,
		&p.EducationStatus, &p.SocioEconomicStatus, &p.CreatedAt,
	)
	if db.IsNotFound(err) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Baseline treatment --

type baselineRepoPG struct {
	pool *pgxpool.Pool
}

func NewBaselineRepo(pool *pgxpool.Pool) BaselineRepository {
	return &baselineRepoPG{pool: pool}
}

func (r *baselineRepoPG) Create(ctx context.Context, b *BaselineTreatment) error {
	id := uuid.New()
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO baseline_treatment (
			id, patient_id, date, present_complaint, prescription, miasm_data, susceptibility_data
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		id, b.PatientID, b.Date, b.PresentComplaint, b.Prescription, b.MiasmData, b.SusceptibilityData,
	).Scan(&b.CreatedAt)
	switch {
	case db.IsUniqueViolation(err, "baseline_treatment_patient_id_key"):
		return ErrBaselineExists
	case db.IsForeignKeyViolation(err):
		return ErrPatientNotFound
	case err != nil:
		return fmt.Errorf("insert baseline treatment: %w", err)
	}
	b.ID = id
	return nil
}

func (r *baselineRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*BaselineTreatment, error) {
	var b BaselineTreatment
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT id, patient_id, date, present_complaint, prescription, miasm_data, susceptibility_data, created_at
		FROM baseline_treatment WHERE patient_id = $1`, patientID,
	).Scan(&b.ID, &b.PatientID, &b.Date, &b.PresentComplaint, &b.Prescription, &b.MiasmData, &b.SusceptibilityData, &b.CreatedAt)
	if db.IsNotFound(err) {
		return nil, ErrBaselineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// -- Outcome assessment --

type assessmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAssessmentRepo(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

// Append locks the patient row for the duration of the transaction, which
// serializes numbering per patient. The unique and check constraints on the
// table back this up.
func (r *assessmentRepoPG) Append(ctx context.Context, a *OutcomeAssessment) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := connFor(ctx, r.pool)

		var locked uuid.UUID
		err := q.QueryRow(ctx, `SELECT id FROM patient WHERE id = $1 FOR UPDATE`, a.PatientID).Scan(&locked)
		if db.IsNotFound(err) {
			return ErrPatientNotFound
		}
		if err != nil {
			return fmt.Errorf("lock patient: %w", err)
		}

		var count int
		if err := q.QueryRow(ctx,
			`SELECT COUNT(*) FROM outcome_assessment WHERE patient_id = $1`, a.PatientID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count assessments: %w", err)
		}
		if count >= MaxAssessments {
			return ErrAssessmentLimit
		}

		id := uuid.New()
		a.AssessmentNumber = count + 1
		a.clearNonFinalFields()

		err = q.QueryRow(ctx, `
			INSERT INTO outcome_assessment (
				id, patient_id, assessment_number, date, brief_notes, prescription,
				oridl_main_complaint, oridl_wellbeing, miasm_data, susceptibility_data
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING created_at`,
			id, a.PatientID, a.AssessmentNumber, a.Date, a.BriefNotes, a.Prescription,
			a.OridlMainComplaint, a.OridlWellbeing, a.MiasmData, a.SusceptibilityData,
		).Scan(&a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert outcome assessment: %w", err)
		}
		a.ID = id
		return nil
	})
}

func (r *assessmentRepoPG) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var count int
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM outcome_assessment WHERE patient_id = $1`, patientID,
	).Scan(&count)
	return count, err
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*OutcomeAssessment, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, assessment_number, date, brief_notes, prescription,
			oridl_main_complaint, oridl_wellbeing, miasm_data, susceptibility_data, created_at
		FROM outcome_assessment WHERE patient_id = $1
		ORDER BY assessment_number`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OutcomeAssessment
	for rows.Next() {
		var a OutcomeAssessment
		if err := rows.Scan(
			&a.ID, &a.PatientID, &a.AssessmentNumber, &a.Date, &a.BriefNotes, &a.Prescription,
			&a.OridlMainComplaint, &a.OridlWellbeing, &a.MiasmData, &a.SusceptibilityData, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
