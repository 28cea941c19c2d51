package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casebook/casebook/internal/domain/patient"
	"github.com/casebook/casebook/internal/platform/db"
)

func newPatientService(pool *pgxpool.Pool) *patient.Service {
	return patient.NewService(
		patient.NewPatientRepo(pool),
		patient.NewBaselineRepo(pool),
		patient.NewAssessmentRepo(pool),
	)
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestPatientRepo_DuplicateRegNo(t *testing.T) {
	pool, _ := newSchemaPool(t, "dup")
	ctx := context.Background()
	repo := patient.NewPatientRepo(pool)

	first := &patient.Patient{RegNo: "R001", Name: "Jane Doe"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected created_at from the database")
	}

	err := repo.Create(ctx, &patient.Patient{RegNo: "R001", Name: "John Roe"})
	if !errors.Is(err, patient.ErrDuplicateRegNo) {
		t.Fatalf("expected ErrDuplicateRegNo, got %v", err)
	}
	if n := countRows(t, pool, `SELECT COUNT(*) FROM patient`); n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}

	got, err := repo.GetByRegNo(ctx, "R001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Jane Doe" {
		t.Errorf("expected original patient kept, got %s", got.Name)
	}
}

func TestPatientRepo_ConcurrentDuplicateRegistration(t *testing.T) {
	pool, _ := newSchemaPool(t, "dupc")
	svc := newPatientService(pool)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Register(context.Background(), &patient.Patient{RegNo: "R001", Name: fmt.Sprintf("P%d", i)})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, patient.ErrDuplicateRegNo):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful registration, got %d", ok)
	}
	if n := countRows(t, pool, `SELECT COUNT(*) FROM patient WHERE reg_no = 'R001'`); n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestBaselineRepo_OncePerPatient(t *testing.T) {
	pool, _ := newSchemaPool(t, "base")
	ctx := context.Background()
	svc := newPatientService(pool)

	p := &patient.Patient{RegNo: "R001", Name: "Jane Doe"}
	if err := svc.Register(ctx, p); err != nil {
		t.Fatal(err)
	}

	if err := svc.RecordBaseline(ctx, p.ID, &patient.BaselineTreatment{Date: ptrStr("2024-01-01")}); err != nil {
		t.Fatalf("first baseline: %v", err)
	}
	err := svc.RecordBaseline(ctx, p.ID, &patient.BaselineTreatment{Date: ptrStr("2024-01-02")})
	if !errors.Is(err, patient.ErrBaselineExists) {
		t.Fatalf("expected ErrBaselineExists, got %v", err)
	}

	b, err := patient.NewBaselineRepo(pool).GetByPatient(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *b.Date != "2024-01-01" || b.MiasmData != nil {
		t.Errorf("unexpected baseline %+v", b)
	}
}

func TestRepos_UnknownPatient(t *testing.T) {
	pool, _ := newSchemaPool(t, "fk")
	ctx := context.Background()
	missing := uuid.New()

	err := patient.NewBaselineRepo(pool).Create(ctx, &patient.BaselineTreatment{PatientID: missing})
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("baseline: expected ErrPatientNotFound, got %v", err)
	}

	err = patient.NewAssessmentRepo(pool).Append(ctx, &patient.OutcomeAssessment{PatientID: missing, Date: "2024-01-01"})
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("assessment: expected ErrPatientNotFound, got %v", err)
	}

	if _, err := patient.NewPatientRepo(pool).GetByID(ctx, missing); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("patient: expected ErrPatientNotFound, got %v", err)
	}
}

func TestAssessmentRepo_ConcurrentAppend(t *testing.T) {
	pool, _ := newSchemaPool(t, "asmt")
	ctx := context.Background()
	svc := newPatientService(pool)

	p := &patient.Patient{RegNo: "R001", Name: "Jane Doe"}
	if err := svc.Register(ctx, p); err != nil {
		t.Fatal(err)
	}

	const n = 12
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordAssessment(ctx, p.ID, &patient.OutcomeAssessment{
				Date:      "2024-02-01",
				MiasmData: ptrStr("miasm"),
			})
		}(i)
	}
	wg.Wait()

	var limited int
	for _, err := range errs {
		if errors.Is(err, patient.ErrAssessmentLimit) {
			limited++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if limited != n-patient.MaxAssessments {
		t.Errorf("expected %d rejections, got %d", n-patient.MaxAssessments, limited)
	}

	list, err := patient.NewAssessmentRepo(pool).ListByPatient(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != patient.MaxAssessments {
		t.Fatalf("expected %d assessments, got %d", patient.MaxAssessments, len(list))
	}
	for i, a := range list {
		if a.AssessmentNumber != i+1 {
			t.Errorf("position %d has number %d", i, a.AssessmentNumber)
		}
		final := a.AssessmentNumber == patient.MaxAssessments
		if final != (a.MiasmData != nil) {
			t.Errorf("assessment %d: miasm data stored = %v", a.AssessmentNumber, a.MiasmData != nil)
		}
	}
}

func TestAssessmentTable_RejectsFinalFieldsEarly(t *testing.T) {
	pool, _ := newSchemaPool(t, "chk")
	ctx := context.Background()
	svc := newPatientService(pool)

	p := &patient.Patient{RegNo: "R001", Name: "Jane Doe"}
	if err := svc.Register(ctx, p); err != nil {
		t.Fatal(err)
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO outcome_assessment (id, patient_id, assessment_number, date, miasm_data)
		VALUES (gen_random_uuid(), $1, 2, '2024-01-01', 'x')`, p.ID)
	if err == nil {
		t.Fatal("expected check constraint to reject final-only data on assessment 2")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO outcome_assessment (id, patient_id, assessment_number, date)
		VALUES (gen_random_uuid(), $1, 7, '2024-01-01')`, p.ID)
	if err == nil {
		t.Fatal("expected check constraint to reject assessment 7")
	}
}

func TestSearch_Precedence(t *testing.T) {
	pool, _ := newSchemaPool(t, "srch")
	ctx := context.Background()
	svc := newPatientService(pool)

	byScreening := &patient.Patient{RegNo: "A1", Name: "Screened", ScreeningNo: ptrStr("X9")}
	byRegNo := &patient.Patient{RegNo: "X9", Name: "Registered"}
	for _, p := range []*patient.Patient{byScreening, byRegNo} {
		if err := svc.Register(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := svc.Search(ctx, "X9")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Patient.ID != byRegNo.ID {
		t.Errorf("expected reg_no match, got %s", rec.Patient.Name)
	}

	rec, err = svc.Search(ctx, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Patient.ID != byScreening.ID {
		t.Errorf("expected A1, got %s", rec.Patient.Name)
	}

	if _, err := svc.Search(ctx, "x9"); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("expected case-sensitive miss, got %v", err)
	}
}

func TestPatientRepo_List(t *testing.T) {
	pool, _ := newSchemaPool(t, "list")
	ctx := context.Background()
	repo := patient.NewPatientRepo(pool)

	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, &patient.Patient{RegNo: fmt.Sprintf("R%03d", i), Name: "P"}); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := repo.List(ctx, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 1 {
		t.Errorf("expected total 5 and 1 row, got %d and %d", total, len(page))
	}
}

func TestMigrator_Idempotent(t *testing.T) {
	_, schema := newSchemaPool(t, "mig")
	ctx := context.Background()

	count, err := db.EnsureSchema(ctx, globalDB.Pool, schema, globalDB.MigrationsDir)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected no pending migrations on second run, got %d", count)
	}

	statuses, err := db.NewMigrator(globalDB.Pool, globalDB.MigrationsDir).Status(ctx, schema)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not applied", s.Name)
		}
	}
}
