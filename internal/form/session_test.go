package form

import (
	"context"
	"errors"
	"testing"

	"studentdesk/internal/blob"
	"studentdesk/internal/model"
	"studentdesk/internal/records"
)

func newTestSession(t *testing.T) (*Session, *records.Store, *blob.Memory) {
	t.Helper()
	mem := blob.NewMemory()
	store := records.New(mem, nil)
	s, err := NewSession(context.Background(), store)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, store, mem
}

func fillStep(t *testing.T, s *Session, fields map[string]string) {
	t.Helper()
	for field, value := range fields {
		if err := s.SetField(context.Background(), field, value); err != nil {
			t.Fatalf("set %s: %v", field, err)
		}
	}
}

var profileFields = map[string]string{
	"name":       "Abebe Kebede",
	"rollNumber": "DBU1234567",
	"email":      "abebe@dbu.edu",
	"phone":      "+12345678901",
	"gender":     "Male",
}

var academicFields = map[string]string{
	"department":     "Computer Science",
	"gpa":            "3.5",
	"enrollmentDate": "2024-09-01",
	"status":         model.StatusActive,
	"address":        "123 Main St",
}

func TestSessionStepGating(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()

	if s.Step() != StepProfile {
		t.Fatalf("initial step = %d", s.Step())
	}

	// An empty step 1 blocks.
	err := s.Next(ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("next on empty form: %v", err)
	}
	if ve.Step != StepProfile || s.Step() != StepProfile {
		t.Errorf("blocked at step %d, session at %d", ve.Step, s.Step())
	}

	fillStep(t, s, profileFields)
	if err := s.Next(ctx); err != nil {
		t.Fatalf("next after profile: %v", err)
	}
	if s.Step() != StepAcademic {
		t.Fatalf("step = %d, want %d", s.Step(), StepAcademic)
	}

	// Step 2 blocks on a missing enrollment date.
	if err := s.Next(ctx); !errors.As(err, &ve) {
		t.Fatalf("next on empty academic step: %v", err)
	}

	fillStep(t, s, academicFields)
	if err := s.Next(ctx); err != nil {
		t.Fatalf("next after academic: %v", err)
	}
	if s.Step() != StepReview {
		t.Fatalf("step = %d, want %d", s.Step(), StepReview)
	}

	// Next past review stays put; Prev never validates.
	if err := s.Next(ctx); err != nil || s.Step() != StepReview {
		t.Errorf("next past review: err %v, step %d", err, s.Step())
	}
	s.Prev()
	s.Prev()
	if s.Step() != StepProfile {
		t.Errorf("after two prevs step = %d", s.Step())
	}
	s.Prev()
	if s.Step() != StepProfile {
		t.Errorf("prev below first step = %d", s.Step())
	}
}

func TestSessionAutosavesOnSetField(t *testing.T) {
	s, store, _ := newTestSession(t)
	ctx := context.Background()

	if err := s.SetField(ctx, "name", "Partial Entry"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	draft, err := store.Draft(ctx)
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft == nil || draft.Name != "Partial Entry" {
		t.Errorf("persisted draft = %+v", draft)
	}

	// Unknown fields are ignored but still snapshot.
	if err := s.SetField(ctx, "bogus", "x"); err != nil {
		t.Fatalf("set unknown field: %v", err)
	}
	if s.Draft().Name != "Partial Entry" {
		t.Errorf("unknown field clobbered draft: %+v", s.Draft())
	}
}

func TestSessionRestoresDraft(t *testing.T) {
	mem := blob.NewMemory()
	store := records.New(mem, nil)
	ctx := context.Background()

	if err := store.SaveDraft(ctx, model.FormDraft{Name: "Saved Earlier", RollNumber: "DBU1"}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	s, err := NewSession(ctx, store)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if !s.Restored() {
		t.Error("session not marked restored")
	}
	if d := s.Draft(); d.Name != "Saved Earlier" || d.RollNumber != "DBU1" {
		t.Errorf("restored draft = %+v", d)
	}

	// A fresh store yields an unrestored session.
	s2, err := NewSession(ctx, records.New(blob.NewMemory(), nil))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s2.Restored() {
		t.Error("empty store produced a restored session")
	}
}

func TestSessionSubmit(t *testing.T) {
	s, store, _ := newTestSession(t)
	ctx := context.Background()

	fillStep(t, s, profileFields)
	fillStep(t, s, academicFields)

	st, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.ID == "" || st.RollNumber != "DBU1234567" {
		t.Errorf("submitted record = %+v", st)
	}
	if st.GPA == nil || *st.GPA != 3.5 {
		t.Errorf("gpa = %v, want 3.5", st.GPA)
	}

	students, _ := store.ListAll(ctx)
	if len(students) != 1 {
		t.Fatalf("store holds %d records", len(students))
	}

	// Submit clears the draft and resets the wizard.
	if draft, _ := store.Draft(ctx); draft != nil {
		t.Errorf("draft survives submit: %+v", draft)
	}
	if s.Step() != StepProfile || !isEmpty(s.Draft()) {
		t.Errorf("session not reset: step %d, draft %+v", s.Step(), s.Draft())
	}
}

func TestSessionSubmitJumpsToFirstFailingStep(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()

	fillStep(t, s, profileFields)
	// Step 2 left invalid.
	fillStep(t, s, map[string]string{"gpa": "9.9", "enrollmentDate": "2024-09-01"})

	_, err := s.Submit(ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("submit: %v", err)
	}
	if ve.Step != StepAcademic || s.Step() != StepAcademic {
		t.Errorf("failure step = %d, session at %d", ve.Step, s.Step())
	}

	// Break step 1 too; the earlier step wins.
	fillStep(t, s, map[string]string{"email": "bad"})
	if _, err := s.Submit(ctx); !errors.As(err, &ve) || ve.Step != StepProfile {
		t.Errorf("submit with both steps broken: %v", err)
	}
}

func TestSessionSubmitDuplicateRoll(t *testing.T) {
	s, store, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, model.StudentInput{
		Name: "Existing", RollNumber: "DBU1234567", Email: "e@dbu.edu",
		Gender: "Male", Department: "CS", Status: model.StatusActive, EnrollmentDate: "2024-01-01",
	}); err != nil {
		t.Fatalf("seed existing: %v", err)
	}

	fillStep(t, s, profileFields)
	fillStep(t, s, academicFields)

	_, err := s.Submit(ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("submit with clashing roll: %v", err)
	}
	if ve.Step != StepProfile || len(ve.Fields) == 0 || ve.Fields[0].Field != "rollNumber" {
		t.Errorf("duplicate roll error = %+v", ve)
	}
}

func TestSessionSubmitKeepsDraftOnStoreFailure(t *testing.T) {
	s, _, mem := newTestSession(t)
	ctx := context.Background()

	fillStep(t, s, profileFields)
	fillStep(t, s, academicFields)

	mem.FailWrites = errors.New("backend down")
	_, err := s.Submit(ctx)
	if err == nil {
		t.Fatal("submit succeeded against a failing backend")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatalf("backend failure surfaced as validation error: %v", err)
	}

	// Nothing typed is lost.
	if d := s.Draft(); d.Name != profileFields["name"] || d.GPA != academicFields["gpa"] {
		t.Errorf("draft lost after failed submit: %+v", d)
	}
}

func TestSessionReset(t *testing.T) {
	s, store, _ := newTestSession(t)
	ctx := context.Background()

	fillStep(t, s, profileFields)
	if err := s.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Step() != StepProfile || !isEmpty(s.Draft()) {
		t.Errorf("reset left step %d, draft %+v", s.Step(), s.Draft())
	}
	if draft, _ := store.Draft(ctx); draft != nil {
		t.Errorf("reset left persisted draft %+v", draft)
	}
}
