package query

import (
	"sort"

	"studentdesk/internal/model"
	"studentdesk/internal/records"
)

// CheckboxState is the tri-state of the select-all checkbox.
type CheckboxState int

const (
	Unchecked CheckboxState = iota
	Checked
	Indeterminate
)

// Selection tracks checked record ids. It survives re-sorts and re-filters
// but must be pruned whenever the underlying set changes.
type Selection struct {
	ids map[string]bool
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]bool)}
}

// Toggle marks one id selected or not.
func (s *Selection) Toggle(id string, selected bool) {
	if selected {
		s.ids[id] = true
	} else {
		delete(s.ids, id)
	}
}

// ToggleAll applies a select-all toggle to the current page's ids only,
// never the full filtered set.
func (s *Selection) ToggleAll(pageIDs []string, checked bool) {
	for _, id := range pageIDs {
		s.Toggle(id, checked)
	}
}

// Has reports whether the id is selected.
func (s *Selection) Has(id string) bool { return s.ids[id] }

// Count returns the number of selected ids.
func (s *Selection) Count() int { return len(s.ids) }

// IDs returns the selected ids in stable order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear drops every selected id.
func (s *Selection) Clear() {
	s.ids = make(map[string]bool)
}

// Prune drops ids that no longer exist in the live set.
func (s *Selection) Prune(existing []model.Student) {
	live := make(map[string]bool, len(existing))
	for _, st := range existing {
		live[st.ID] = true
	}
	for id := range s.ids {
		if !live[id] {
			delete(s.ids, id)
		}
	}
}

// PageState computes the select-all checkbox state for the given page:
// checked when every page id is selected, indeterminate when only some are.
func (s *Selection) PageState(pageIDs []string) CheckboxState {
	if len(pageIDs) == 0 {
		return Unchecked
	}
	selected := 0
	for _, id := range pageIDs {
		if s.ids[id] {
			selected++
		}
	}
	switch {
	case selected == len(pageIDs):
		return Checked
	case selected > 0:
		return Indeterminate
	default:
		return Unchecked
	}
}

// ViewState is the ephemeral per-table UI state: page, sort, filter, search,
// view mode and selection. Nothing here persists across a restart.
type ViewState struct {
	Page          int
	PerPage       int
	SortColumn    string
	SortDirection string
	Query         string
	Filters       records.Filters
	CardView      bool
	Selection     *Selection
}

// NewViewState returns the table's initial state.
func NewViewState() *ViewState {
	return &ViewState{
		Page:          1,
		PerPage:       defaultPerPage,
		SortColumn:    SortRollNo,
		SortDirection: "asc",
		Selection:     NewSelection(),
	}
}

// SetQuery changes the search text and resets to the first page.
func (v *ViewState) SetQuery(q string) {
	v.Query = q
	v.Page = 1
}

// SetFilters changes the filter set and resets to the first page.
func (v *ViewState) SetFilters(f records.Filters) {
	v.Filters = f
	v.Page = 1
}

// SetPerPage changes the page size and resets to the first page.
func (v *ViewState) SetPerPage(n int) {
	v.PerPage = n
	v.Page = 1
}

// ToggleSort flips direction on the active column or switches column
// ascending, as the table header does.
func (v *ViewState) ToggleSort(column string) {
	if v.SortColumn == column {
		if v.SortDirection == "asc" {
			v.SortDirection = "desc"
		} else {
			v.SortDirection = "asc"
		}
		return
	}
	v.SortColumn = column
	v.SortDirection = "asc"
}

// Params converts the state into engine parameters.
func (v *ViewState) Params() Params {
	return Params{
		Query:         v.Query,
		Filters:       v.Filters,
		SortColumn:    v.SortColumn,
		SortDirection: v.SortDirection,
		Page:          v.Page,
		PerPage:       v.PerPage,
	}
}
