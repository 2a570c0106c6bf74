package model

import "time"

// Student statuses recognised by the dashboard.
const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusGraduated = "Graduated"
	StatusSuspended = "Suspended"
)

// Activity actions recorded in the audit trail.
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Student represents one enrolled student record.
type Student struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	RollNumber     string     `json:"rollNumber"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Gender         string     `json:"gender"`
	Department     string     `json:"department"`
	GPA            *float64   `json:"gpa,omitempty"`
	Status         string     `json:"status"`
	EnrollmentDate string     `json:"enrollmentDate"` // calendar date, YYYY-MM-DD
	Address        string     `json:"address,omitempty"`
	ProfilePhoto   string     `json:"profilePhoto,omitempty"` // URL or data URL, may be empty
	LastActive     *time.Time `json:"lastActive,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// StudentInput carries the validated fields for a new record. The store
// assigns the id and timestamps.
type StudentInput struct {
	Name           string   `json:"name"`
	RollNumber     string   `json:"rollNumber"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	Gender         string   `json:"gender"`
	Department     string   `json:"department"`
	GPA            *float64 `json:"gpa,omitempty"`
	Status         string   `json:"status"`
	EnrollmentDate string   `json:"enrollmentDate"`
	Address        string   `json:"address,omitempty"`
	ProfilePhoto   string   `json:"profilePhoto,omitempty"`
}

// StudentPatch describes a partial update; nil fields are left untouched.
type StudentPatch struct {
	Name           *string    `json:"name,omitempty"`
	RollNumber     *string    `json:"rollNumber,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Gender         *string    `json:"gender,omitempty"`
	Department     *string    `json:"department,omitempty"`
	GPA            *float64   `json:"gpa,omitempty"`
	Status         *string    `json:"status,omitempty"`
	EnrollmentDate *string    `json:"enrollmentDate,omitempty"`
	Address        *string    `json:"address,omitempty"`
	ProfilePhoto   *string    `json:"profilePhoto,omitempty"`
	LastActive     *time.Time `json:"lastActive,omitempty"`
}

// ActivityEntry is one audit record of an add/update/delete action.
// StudentName is a snapshot taken at the time of the action.
type ActivityEntry struct {
	ID          int64     `json:"id"` // monotonic, unix milliseconds
	Action      string    `json:"action"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Timestamp   time.Time `json:"timestamp"`
	Details     string    `json:"details"`
}

// FormDraft is the autosaved snapshot of in-progress form input. Values are
// kept raw (pre-validation), so every field is a string.
type FormDraft struct {
	Name           string    `json:"name"`
	RollNumber     string    `json:"rollNumber"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Gender         string    `json:"gender"`
	Department     string    `json:"department"`
	GPA            string    `json:"gpa"`
	Status         string    `json:"status"`
	EnrollmentDate string    `json:"enrollmentDate"`
	Address        string    `json:"address"`
	ProfilePhoto   string    `json:"profilePhoto"`
	SavedAt        time.Time `json:"savedAt"`
}

// MonthCount is one bucket of the enrollment trend.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Statistics aggregates the full live record set for the dashboard cards
// and charts.
type Statistics struct {
	Total             int                `json:"total"`
	ByDepartment      map[string]int     `json:"byDepartment"`
	ByGender          map[string]int     `json:"byGender"`
	ByStatus          map[string]int     `json:"byStatus"`
	AverageGPA        float64            `json:"averageGPA"` // two-decimal rounded
	ActiveToday       int                `json:"activeToday"`
	DeptAverageGPA    map[string]float64 `json:"deptAverageGPA"`
	EnrollmentByMonth []MonthCount       `json:"enrollmentByMonth"` // last 12 months, oldest first
}
