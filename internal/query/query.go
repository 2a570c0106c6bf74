// Package query derives the filtered, sorted, paginated view the table and
// card components render. It is stateless over the records store: every
// view is recomputed from a fresh snapshot.
package query

import (
	"context"
	"sort"
	"strings"

	"studentdesk/internal/model"
	"studentdesk/internal/records"
)

// Sort columns accepted by the engine. Anything else falls back to roll
// number, which is also the default.
const (
	SortRollNo     = "rollNo"
	SortName       = "name"
	SortDepartment = "department"
	SortGender     = "gender"
	SortGPA        = "gpa"
	SortStatus     = "status"
)

const defaultPerPage = 25

// Source is the slice of the records store the engine needs.
type Source interface {
	ListAll(ctx context.Context) ([]model.Student, error)
	Search(ctx context.Context, query string, f records.Filters) ([]model.Student, error)
}

// Params selects one rendered page.
type Params struct {
	Query         string
	Filters       records.Filters
	SortColumn    string
	SortDirection string // "asc" (default) or "desc"
	Page          int    // 1-based
	PerPage       int
}

// View is one rendered page plus the numbers the table footer shows.
type View struct {
	Items         []model.Student `json:"items"`
	Page          int             `json:"page"`
	PerPage       int             `json:"perPage"`
	TotalPages    int             `json:"totalPages"`
	TotalFiltered int             `json:"totalFiltered"`
	TotalAll      int             `json:"totalAll"`
	// Start and End are the 1-based bounds for "Showing X to Y of Z";
	// both zero on an empty page.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Engine computes views from a source.
type Engine struct {
	src Source
}

// NewEngine creates an engine over the given source.
func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// View applies search, stable sort and pagination in that fixed order.
// A page past the end yields an empty view, never an error.
func (e *Engine) View(ctx context.Context, p Params) (View, error) {
	all, err := e.src.ListAll(ctx)
	if err != nil {
		return View{}, err
	}
	filtered, err := e.src.Search(ctx, p.Query, p.Filters)
	if err != nil {
		return View{}, err
	}
	Sort(filtered, p.SortColumn, p.SortDirection)

	perPage := p.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := p.Page
	if page < 1 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	v := View{
		Items:         filtered[start:end],
		Page:          page,
		PerPage:       perPage,
		TotalPages:    totalPages,
		TotalFiltered: total,
		TotalAll:      len(all),
	}
	if len(v.Items) > 0 {
		v.Start = start + 1
		v.End = end
	}
	return v, nil
}

// Sort orders students in place by the given column. String columns compare
// case-insensitively, GPA numerically with missing values as 0. The sort is
// stable so duplicate keys keep their relative order and pagination stays
// deterministic.
func Sort(students []model.Student, column, direction string) {
	desc := direction == "desc"
	sort.SliceStable(students, func(i, j int) bool {
		less := false
		switch column {
		case SortName:
			less = lowerLess(students[i].Name, students[j].Name)
		case SortDepartment:
			less = lowerLess(students[i].Department, students[j].Department)
		case SortGender:
			less = lowerLess(students[i].Gender, students[j].Gender)
		case SortStatus:
			less = lowerLess(students[i].Status, students[j].Status)
		case SortGPA:
			less = gpaOrZero(students[i]) < gpaOrZero(students[j])
		default: // SortRollNo
			less = lowerLess(students[i].RollNumber, students[j].RollNumber)
		}
		if desc {
			return !less && !equalKey(students[i], students[j], column)
		}
		return less
	})
}

func lowerLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}

func gpaOrZero(st model.Student) float64 {
	if st.GPA == nil {
		return 0
	}
	return *st.GPA
}

func equalKey(a, b model.Student, column string) bool {
	switch column {
	case SortName:
		return strings.EqualFold(a.Name, b.Name)
	case SortDepartment:
		return strings.EqualFold(a.Department, b.Department)
	case SortGender:
		return strings.EqualFold(a.Gender, b.Gender)
	case SortStatus:
		return strings.EqualFold(a.Status, b.Status)
	case SortGPA:
		return gpaOrZero(a) == gpaOrZero(b)
	default:
		return strings.EqualFold(a.RollNumber, b.RollNumber)
	}
}
