// Package form manages the three-step add-student wizard: per-field and
// per-step validation, draft autosave, and the final hand-off to the
// records store.
package form

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"studentdesk/internal/model"
	"studentdesk/internal/records"
)

// Wizard steps. StepReview renders a read-only summary and has no rules of
// its own.
const (
	StepProfile  = 1
	StepAcademic = 2
	StepReview   = 3
)

// Session holds one in-progress add-student form.
type Session struct {
	store *records.Store

	mu       sync.Mutex
	step     int
	draft    model.FormDraft
	restored bool
	now      func() time.Time
}

// NewSession creates a session, pre-populating from a saved draft when one
// exists.
func NewSession(ctx context.Context, store *records.Store) (*Session, error) {
	s := &Session{store: store, step: StepProfile, now: time.Now}
	draft, err := store.Draft(ctx)
	if err != nil {
		return nil, err
	}
	if draft != nil {
		s.draft = *draft
		s.restored = true
	}
	return s, nil
}

// Restored reports whether the session was pre-populated from a draft, so
// the caller can surface a "restored" notice.
func (s *Session) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// Step returns the current wizard step.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Draft returns a copy of the current (possibly invalid) field set.
func (s *Session) Draft() model.FormDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetField updates one raw field and snapshots the draft. Unknown fields
// are ignored, matching how the original form collects whatever inputs the
// page has.
func (s *Session) SetField(ctx context.Context, field, value string) error {
	s.mu.Lock()
	switch field {
	case "name":
		s.draft.Name = value
	case "rollNumber":
		s.draft.RollNumber = value
	case "email":
		s.draft.Email = value
	case "phone":
		s.draft.Phone = value
	case "gender":
		s.draft.Gender = value
	case "department":
		s.draft.Department = value
	case "gpa":
		s.draft.GPA = value
	case "status":
		s.draft.Status = value
	case "enrollmentDate":
		s.draft.EnrollmentDate = value
	case "address":
		s.draft.Address = value
	case "profilePhoto":
		s.draft.ProfilePhoto = value
	}
	draft := s.draft
	s.mu.Unlock()

	return s.store.SaveDraft(ctx, draft)
}

// Next advances one step if every field of the current step validates.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step >= StepReview {
		return nil
	}
	if fields := s.validateStep(ctx, s.step); len(fields) > 0 {
		return &ValidationError{Step: s.step, Fields: fields}
	}
	s.step++
	return nil
}

// Prev goes back one step. Backward navigation never re-validates.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step > StepProfile {
		s.step--
	}
}

// Submit re-validates steps 1 and 2, hands the record to the store, clears
// the draft and resets. On a validation failure the session jumps to the
// first failing step. On a store failure the draft is kept so nothing the
// user typed is lost.
func (s *Session) Submit(ctx context.Context) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, step := range []int{StepProfile, StepAcademic} {
		if fields := s.validateStep(ctx, step); len(fields) > 0 {
			s.step = step
			return model.Student{}, &ValidationError{Step: step, Fields: fields}
		}
	}

	input := model.StudentInput{
		Name:           s.draft.Name,
		RollNumber:     s.draft.RollNumber,
		Email:          s.draft.Email,
		Phone:          s.draft.Phone,
		Gender:         s.draft.Gender,
		Department:     s.draft.Department,
		Status:         s.draft.Status,
		EnrollmentDate: s.draft.EnrollmentDate,
		Address:        s.draft.Address,
		ProfilePhoto:   s.draft.ProfilePhoto,
	}
	if s.draft.GPA != "" {
		if gpa, err := strconv.ParseFloat(s.draft.GPA, 64); err == nil {
			input.GPA = &gpa
		}
	}

	st, err := s.store.Add(ctx, input)
	if errors.Is(err, records.ErrDuplicateRoll) {
		// The store is the last word on uniqueness; report it like any
		// other field failure.
		s.step = StepProfile
		return model.Student{}, &ValidationError{
			Step:   StepProfile,
			Fields: []FieldError{{Field: "rollNumber", Message: "Roll number already exists"}},
		}
	}
	if err != nil {
		return model.Student{}, err
	}

	if err := s.store.ClearDraft(ctx); err != nil {
		log.Printf("form: draft clear failed: %v", err)
	}
	s.draft = model.FormDraft{}
	s.step = StepProfile
	s.restored = false
	return st, nil
}

// Reset discards the form and the saved draft.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.draft = model.FormDraft{}
	s.step = StepProfile
	s.restored = false
	s.mu.Unlock()
	return s.store.ClearDraft(ctx)
}

// StartAutosave snapshots the draft every interval until ctx is done, as a
// safety net on top of the per-change snapshots.
func (s *Session) StartAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				draft := s.draft
				empty := isEmpty(draft)
				s.mu.Unlock()
				if empty {
					continue
				}
				if err := s.store.SaveDraft(ctx, draft); err != nil {
					log.Printf("form: autosave failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// validateStep runs the rules for the fields collected on that step.
// Callers hold s.mu.
func (s *Session) validateStep(ctx context.Context, step int) []FieldError {
	var fields []FieldError
	appendErr := func(fe *FieldError) {
		if fe != nil {
			fields = append(fields, *fe)
		}
	}
	switch step {
	case StepProfile:
		appendErr(validateName(strings.TrimSpace(s.draft.Name)))
		appendErr(validateRoll(strings.TrimSpace(s.draft.RollNumber), func(roll string) bool {
			return s.rollExists(ctx, roll)
		}))
		appendErr(validateEmail(strings.TrimSpace(s.draft.Email)))
		appendErr(validatePhone(strings.TrimSpace(s.draft.Phone)))
	case StepAcademic:
		appendErr(validateGPA(strings.TrimSpace(s.draft.GPA)))
		appendErr(validateEnrollmentDate(strings.TrimSpace(s.draft.EnrollmentDate), s.now()))
	}
	return fields
}

func (s *Session) rollExists(ctx context.Context, roll string) bool {
	students, err := s.store.ListAll(ctx)
	if err != nil {
		// Can't prove a clash; the store's own check still guards Add.
		return false
	}
	for _, st := range students {
		if strings.EqualFold(st.RollNumber, roll) {
			return true
		}
	}
	return false
}

func isEmpty(d model.FormDraft) bool {
	return d.Name == "" && d.RollNumber == "" && d.Email == "" && d.Phone == "" &&
		d.Gender == "" && d.Department == "" && d.GPA == "" && d.Status == "" &&
		d.EnrollmentDate == "" && d.Address == "" && d.ProfilePhoto == ""
}
