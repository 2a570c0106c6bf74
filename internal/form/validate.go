package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"studentdesk/internal/model"
)

var (
	rollPattern  = regexp.MustCompile(`^DBU\d{7}$`)
	phonePattern = regexp.MustCompile(`^[+\d\s\-()]{10,}$`)
	validate     = validator.New()
)

// FieldError is one recoverable, field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError blocks a step transition or a submit.
type ValidationError struct {
	Step   int          `json:"step"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %d field(s) invalid", e.Step, len(e.Fields))
}

// ValidateRecord runs every field rule over a raw field set. Programmatic
// callers (the API create path) use this to get the same answers the wizard
// gives interactively.
func ValidateRecord(d model.FormDraft, now time.Time, rollExists func(string) bool) []FieldError {
	var fields []FieldError
	appendErr := func(fe *FieldError) {
		if fe != nil {
			fields = append(fields, *fe)
		}
	}
	appendErr(validateName(strings.TrimSpace(d.Name)))
	appendErr(validateRoll(strings.TrimSpace(d.RollNumber), rollExists))
	appendErr(validateEmail(strings.TrimSpace(d.Email)))
	appendErr(validatePhone(strings.TrimSpace(d.Phone)))
	appendErr(validateGPA(strings.TrimSpace(d.GPA)))
	appendErr(validateEnrollmentDate(strings.TrimSpace(d.EnrollmentDate), now))
	return fields
}

func validateName(name string) *FieldError {
	if name == "" {
		return &FieldError{Field: "name", Message: "Full name is required"}
	}
	if len(name) < 2 {
		return &FieldError{Field: "name", Message: "Name must be at least 2 characters"}
	}
	return nil
}

// validateRoll checks the fixed format and, through exists, uniqueness
// against the live record set.
func validateRoll(roll string, exists func(string) bool) *FieldError {
	if roll == "" {
		return &FieldError{Field: "rollNumber", Message: "Roll number is required"}
	}
	if !rollPattern.MatchString(roll) {
		return &FieldError{Field: "rollNumber", Message: "Format: DBU followed by 7 digits"}
	}
	if exists != nil && exists(roll) {
		return &FieldError{Field: "rollNumber", Message: "Roll number already exists"}
	}
	return nil
}

func validateEmail(email string) *FieldError {
	if email == "" {
		return &FieldError{Field: "email", Message: "Email is required"}
	}
	if err := validate.Var(email, "email"); err != nil {
		return &FieldError{Field: "email", Message: "Please enter a valid email"}
	}
	return nil
}

func validatePhone(phone string) *FieldError {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return &FieldError{Field: "phone", Message: "Please enter a valid phone number"}
	}
	return nil
}

func validateGPA(raw string) *FieldError {
	if raw == "" {
		return nil
	}
	gpa, err := strconv.ParseFloat(raw, 64)
	if err != nil || gpa < 0 || gpa > 4 {
		return &FieldError{Field: "gpa", Message: "GPA must be between 0 and 4"}
	}
	return nil
}

func validateEnrollmentDate(raw string, now time.Time) *FieldError {
	if raw == "" {
		return &FieldError{Field: "enrollmentDate", Message: "Enrollment date is required"}
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return &FieldError{Field: "enrollmentDate", Message: "Enter a valid date"}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		return &FieldError{Field: "enrollmentDate", Message: "Enrollment date cannot be in the future"}
	}
	return nil
}
