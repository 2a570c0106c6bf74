package query

import (
	"context"
	"fmt"
	"testing"

	"studentdesk/internal/blob"
	"studentdesk/internal/model"
	"studentdesk/internal/records"
)

func gpa(v float64) *float64 { return &v }

func newTestSource(t *testing.T, inputs []model.StudentInput) *records.Store {
	t.Helper()
	s := records.New(blob.NewMemory(), nil)
	for _, in := range inputs {
		if _, err := s.Add(context.Background(), in); err != nil {
			t.Fatalf("add %s: %v", in.RollNumber, err)
		}
	}
	return s
}

func inputs(n int) []model.StudentInput {
	out := make([]model.StudentInput, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.StudentInput{
			Name:           fmt.Sprintf("Student %02d", i),
			RollNumber:     fmt.Sprintf("DBU%07d", i),
			Email:          fmt.Sprintf("s%02d@dbu.edu", i),
			Gender:         "Male",
			Department:     "CS",
			Status:         model.StatusActive,
			EnrollmentDate: "2024-09-01",
		})
	}
	return out
}

func rolls(students []model.Student) []string {
	out := make([]string, len(students))
	for i, st := range students {
		out[i] = st.RollNumber
	}
	return out
}

func TestSortColumns(t *testing.T) {
	base := []model.Student{
		{RollNumber: "DBU0000003", Name: "charlie", Department: "EE", Gender: "Male", GPA: gpa(2.5), Status: "Inactive"},
		{RollNumber: "DBU0000001", Name: "Alice", Department: "CS", Gender: "Female", GPA: gpa(3.9), Status: "Active"},
		{RollNumber: "DBU0000002", Name: "Bob", Department: "cs", Gender: "Male", Status: "Graduated"},
	}

	cases := []struct {
		name      string
		column    string
		direction string
		want      []string
	}{
		{"roll asc default", "", "asc", []string{"DBU0000001", "DBU0000002", "DBU0000003"}},
		{"unknown column falls back to roll", "bogus", "asc", []string{"DBU0000001", "DBU0000002", "DBU0000003"}},
		{"roll desc", SortRollNo, "desc", []string{"DBU0000003", "DBU0000002", "DBU0000001"}},
		{"name asc case-insensitive", SortName, "asc", []string{"DBU0000001", "DBU0000002", "DBU0000003"}},
		{"name desc", SortName, "desc", []string{"DBU0000003", "DBU0000002", "DBU0000001"}},
		{"gpa asc missing as zero", SortGPA, "asc", []string{"DBU0000002", "DBU0000003", "DBU0000001"}},
		{"gpa desc", SortGPA, "desc", []string{"DBU0000001", "DBU0000003", "DBU0000002"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			students := make([]model.Student, len(base))
			copy(students, base)
			Sort(students, tc.column, tc.direction)
			got := rolls(students)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("order = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestSortStability(t *testing.T) {
	// Equal department keys must keep their existing relative order, so a
	// re-sort of an already sorted slice changes nothing.
	students := []model.Student{
		{RollNumber: "DBU0000001", Department: "CS"},
		{RollNumber: "DBU0000002", Department: "CS"},
		{RollNumber: "DBU0000003", Department: "CS"},
		{RollNumber: "DBU0000004", Department: "EE"},
	}
	Sort(students, SortDepartment, "asc")
	first := rolls(students)
	Sort(students, SortDepartment, "asc")
	second := rolls(students)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-sort reordered equal keys: %v then %v", first, second)
		}
	}

	Sort(students, SortDepartment, "desc")
	got := rolls(students)
	want := []string{"DBU0000004", "DBU0000001", "DBU0000002", "DBU0000003"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("desc order = %v, want %v", got, want)
		}
	}
}

func TestViewPagination(t *testing.T) {
	e := NewEngine(newTestSource(t, inputs(7)))
	ctx := context.Background()

	first, err := e.View(ctx, Params{Page: 1, PerPage: 5})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(first.Items) != 5 || first.TotalPages != 2 || first.TotalFiltered != 7 || first.TotalAll != 7 {
		t.Fatalf("page 1 = %+v", first)
	}
	if first.Start != 1 || first.End != 5 {
		t.Errorf("page 1 bounds = %d..%d, want 1..5", first.Start, first.End)
	}

	second, err := e.View(ctx, Params{Page: 2, PerPage: 5})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("page 2 = %d items, want 2", len(second.Items))
	}
	if second.Start != 6 || second.End != 7 {
		t.Errorf("page 2 bounds = %d..%d, want 6..7", second.Start, second.End)
	}

	// Together the pages cover each record exactly once.
	seen := map[string]bool{}
	for _, st := range append(first.Items, second.Items...) {
		if seen[st.ID] {
			t.Errorf("id %s appears on both pages", st.ID)
		}
		seen[st.ID] = true
	}
	if len(seen) != 7 {
		t.Errorf("pages cover %d records, want 7", len(seen))
	}
}

func TestViewPagePastEnd(t *testing.T) {
	e := NewEngine(newTestSource(t, inputs(3)))

	v, err := e.View(context.Background(), Params{Page: 9, PerPage: 5})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(v.Items) != 0 {
		t.Errorf("past-end page has %d items", len(v.Items))
	}
	if v.Start != 0 || v.End != 0 {
		t.Errorf("past-end bounds = %d..%d, want 0..0", v.Start, v.End)
	}
	if v.TotalFiltered != 3 {
		t.Errorf("totalFiltered = %d, want 3", v.TotalFiltered)
	}
}

func TestViewDefaults(t *testing.T) {
	e := NewEngine(newTestSource(t, inputs(30)))

	v, err := e.View(context.Background(), Params{})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if v.Page != 1 || v.PerPage != defaultPerPage {
		t.Errorf("defaults = page %d per %d, want 1 / %d", v.Page, v.PerPage, defaultPerPage)
	}
	if len(v.Items) != defaultPerPage || v.TotalPages != 2 {
		t.Errorf("got %d items over %d pages", len(v.Items), v.TotalPages)
	}
}

func TestViewSearchNarrowsButKeepsTotalAll(t *testing.T) {
	e := NewEngine(newTestSource(t, inputs(7)))

	v, err := e.View(context.Background(), Params{Query: "Student 03"})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if v.TotalFiltered != 1 || v.TotalAll != 7 {
		t.Errorf("totals = %d filtered / %d all, want 1 / 7", v.TotalFiltered, v.TotalAll)
	}
	if len(v.Items) != 1 || v.Items[0].Name != "Student 03" {
		t.Errorf("items = %+v", v.Items)
	}
}
