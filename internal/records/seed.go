package records

import (
	"context"
	"time"

	"studentdesk/internal/model"
)

func gpa(v float64) *float64 { return &v }

func ts(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

var sampleStudents = []model.Student{
	{
		ID: "DBU2024001", Name: "John Smith", RollNumber: "DBU2024001",
		Email: "john.smith@dbu.edu", Phone: "+12345678901", Gender: "Male",
		Department: "Computer Science", GPA: gpa(3.8), Status: model.StatusActive,
		EnrollmentDate: "2024-01-15", Address: "123 Main St, Dallas, TX",
		CreatedAt: ts("2024-01-15T09:00:00Z"), UpdatedAt: ts("2024-01-15T09:00:00Z"),
	},
	{
		ID: "DBU2024002", Name: "Emma Johnson", RollNumber: "DBU2024002",
		Email: "emma.j@dbu.edu", Phone: "+12345678902", Gender: "Female",
		Department: "Information Technology", GPA: gpa(3.9), Status: model.StatusActive,
		EnrollmentDate: "2024-01-16", Address: "456 Oak Ave, Fort Worth, TX",
		CreatedAt: ts("2024-01-16T10:30:00Z"), UpdatedAt: ts("2024-01-16T10:30:00Z"),
	},
	{
		ID: "DBU2024003", Name: "Michael Brown", RollNumber: "DBU2024003",
		Email: "m.brown@dbu.edu", Phone: "+12345678903", Gender: "Male",
		Department: "Electronics", GPA: gpa(3.5), Status: model.StatusActive,
		EnrollmentDate: "2024-01-17", Address: "789 Pine Rd, Arlington, TX",
		CreatedAt: ts("2024-01-17T14:15:00Z"), UpdatedAt: ts("2024-01-17T14:15:00Z"),
	},
	{
		ID: "DBU2024004", Name: "Sarah Williams", RollNumber: "DBU2024004",
		Email: "sarah.w@dbu.edu", Phone: "+12345678904", Gender: "Female",
		Department: "Business Administration", GPA: gpa(3.7), Status: model.StatusActive,
		EnrollmentDate: "2024-01-18", Address: "321 Elm St, Plano, TX",
		CreatedAt: ts("2024-01-18T11:45:00Z"), UpdatedAt: ts("2024-01-18T11:45:00Z"),
	},
	{
		ID: "DBU2024005", Name: "David Miller", RollNumber: "DBU2024005",
		Email: "d.miller@dbu.edu", Phone: "+12345678905", Gender: "Male",
		Department: "Mechanical Engineering", GPA: gpa(3.6), Status: model.StatusInactive,
		EnrollmentDate: "2024-01-19", Address: "654 Maple Dr, Irving, TX",
		CreatedAt: ts("2024-01-19T13:20:00Z"), UpdatedAt: ts("2024-01-19T13:20:00Z"),
	},
}

// SeedIfEmpty loads the sample records into an empty store so a fresh
// install has something to render. A store with any records is untouched.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.loadStudents(ctx)
	if err != nil {
		return err
	}
	if len(students) > 0 {
		studentsLive.Set(float64(len(students)))
		return nil
	}
	if err := s.saveStudents(ctx, sampleStudents); err != nil {
		return err
	}
	studentsLive.Set(float64(len(sampleStudents)))
	return nil
}
