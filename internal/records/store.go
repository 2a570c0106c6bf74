// Package records owns the student collection, the activity log and the
// autosave draft. All mutation goes through the Store; every successful
// mutation rewrites the whole persisted collection and broadcasts a change
// event.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"studentdesk/internal/blob"
	"studentdesk/internal/model"
	"studentdesk/internal/notify"
)

// Record ids are the roll prefix plus a sequence number. The base keeps the
// first assigned id at DBU2024001 even on an empty store.
const (
	idPrefix   = "DBU"
	idBase     = 2024000
	maxEntries = 50 // activity log cap, oldest evicted first
)

// ErrDuplicateRoll reports a case-insensitive roll-number clash. Uniqueness
// is enforced here so programmatic callers cannot bypass it.
var ErrDuplicateRoll = errors.New("roll number already exists")

// Filters narrows a search to exact matches on the given fields. Empty
// fields match everything.
type Filters struct {
	Department string
	Status     string
	Gender     string
}

// Store is the single source of truth for records and activity.
type Store struct {
	blob   blob.Store
	broker notify.Broker

	mu             sync.Mutex
	lastActivityID int64
	now            func() time.Time
}

// New creates a store over the given blob backend and event broker.
func New(b blob.Store, broker notify.Broker) *Store {
	return &Store{blob: b, broker: broker, now: time.Now}
}

// ListAll returns the full live set. Callers re-sort; order is whatever the
// persisted collection holds.
func (s *Store) ListAll(ctx context.Context) ([]model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStudents(ctx)
}

// GetByID returns the record, or nil when no record has that id.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	students, err := s.loadStudents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			st := students[i]
			return &st, nil
		}
	}
	return nil, nil
}

// Add validates the roll number is unused, assigns the next id, stamps
// timestamps, persists and logs the addition.
func (s *Store) Add(ctx context.Context, input model.StudentInput) (model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.loadStudents(ctx)
	if err != nil {
		return model.Student{}, err
	}
	if rollTaken(students, input.RollNumber, "") {
		return model.Student{}, ErrDuplicateRoll
	}

	now := s.now().UTC()
	st := model.Student{
		ID:             nextID(students),
		Name:           input.Name,
		RollNumber:     input.RollNumber,
		Email:          input.Email,
		Phone:          input.Phone,
		Gender:         input.Gender,
		Department:     input.Department,
		GPA:            input.GPA,
		Status:         input.Status,
		EnrollmentDate: input.EnrollmentDate,
		Address:        input.Address,
		ProfilePhoto:   input.ProfilePhoto,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	students = append(students, st)
	if err := s.saveStudents(ctx, students); err != nil {
		return model.Student{}, err
	}
	s.logActivity(ctx, model.ActionAdded, st)
	s.broadcast(ctx, model.ActionAdded, st)
	mutationsTotal.WithLabelValues(model.ActionAdded).Inc()
	studentsLive.Set(float64(len(students)))
	return st, nil
}

// Update merges non-nil patch fields into the record and restamps
// updatedAt. A missing id yields (nil, nil).
func (s *Store) Update(ctx context.Context, id string, patch model.StudentPatch) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.loadStudents(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range students {
		if students[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil
	}
	if patch.RollNumber != nil && rollTaken(students, *patch.RollNumber, id) {
		return nil, ErrDuplicateRoll
	}

	st := &students[idx]
	applyPatch(st, patch)
	st.UpdatedAt = s.now().UTC()

	if err := s.saveStudents(ctx, students); err != nil {
		return nil, err
	}
	updated := *st
	s.logActivity(ctx, model.ActionUpdated, updated)
	s.broadcast(ctx, model.ActionUpdated, updated)
	mutationsTotal.WithLabelValues(model.ActionUpdated).Inc()
	return &updated, nil
}

// Remove deletes one record and returns the updated set. Removing a missing
// id is a no-op: same set back, no activity entry.
func (s *Store) Remove(ctx context.Context, id string) ([]model.Student, error) {
	return s.RemoveMany(ctx, []string{id})
}

// RemoveMany deletes every listed id that exists, in one pass, logging one
// deletion per record actually removed.
func (s *Store) RemoveMany(ctx context.Context, ids []string) ([]model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.loadStudents(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	kept := students[:0:0]
	var removed []model.Student
	for _, st := range students {
		if wanted[st.ID] {
			removed = append(removed, st)
			continue
		}
		kept = append(kept, st)
	}
	if len(removed) == 0 {
		return students, nil
	}

	if err := s.saveStudents(ctx, kept); err != nil {
		return nil, err
	}
	for _, st := range removed {
		s.logActivity(ctx, model.ActionDeleted, st)
		s.broadcast(ctx, model.ActionDeleted, st)
		mutationsTotal.WithLabelValues(model.ActionDeleted).Inc()
	}
	studentsLive.Set(float64(len(kept)))
	return kept, nil
}

// Search returns records whose name, roll number or email contains the
// query (case-insensitive), further narrowed by the exact-match filters.
func (s *Store) Search(ctx context.Context, query string, f Filters) ([]model.Student, error) {
	students, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []model.Student
	for _, st := range students {
		matches := q == "" ||
			strings.Contains(strings.ToLower(st.Name), q) ||
			strings.Contains(strings.ToLower(st.RollNumber), q) ||
			strings.Contains(strings.ToLower(st.Email), q)
		if !matches {
			continue
		}
		if f.Department != "" && st.Department != f.Department {
			continue
		}
		if f.Status != "" && st.Status != f.Status {
			continue
		}
		if f.Gender != "" && st.Gender != f.Gender {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// Statistics aggregates the full live set for the dashboard cards and
// charts. All zero values on an empty store.
func (s *Store) Statistics(ctx context.Context) (model.Statistics, error) {
	students, err := s.ListAll(ctx)
	if err != nil {
		return model.Statistics{}, err
	}

	stats := model.Statistics{
		Total:          len(students),
		ByDepartment:   map[string]int{},
		ByGender:       map[string]int{},
		ByStatus:       map[string]int{},
		DeptAverageGPA: map[string]float64{},
	}

	today := s.now().UTC().Format("2006-01-02")
	var gpaSum float64
	var gpaCount int
	deptGPASum := map[string]float64{}
	deptGPACount := map[string]int{}
	monthly := map[string]int{}

	for _, st := range students {
		stats.ByDepartment[st.Department]++
		stats.ByGender[st.Gender]++
		stats.ByStatus[st.Status]++

		if st.GPA != nil {
			gpaSum += *st.GPA
			gpaCount++
			deptGPASum[st.Department] += *st.GPA
			deptGPACount[st.Department]++
		}

		lastActive := st.UpdatedAt
		if st.LastActive != nil {
			lastActive = *st.LastActive
		}
		if lastActive.UTC().Format("2006-01-02") == today {
			stats.ActiveToday++
		}

		if d, err := time.Parse("2006-01-02", st.EnrollmentDate); err == nil {
			monthly[d.Format("2006-01")]++
		}
	}

	if gpaCount > 0 {
		stats.AverageGPA = round2(gpaSum / float64(gpaCount))
	}
	for dept := range stats.ByDepartment {
		if deptGPACount[dept] > 0 {
			stats.DeptAverageGPA[dept] = round2(deptGPASum[dept] / float64(deptGPACount[dept]))
		} else {
			stats.DeptAverageGPA[dept] = 0
		}
	}

	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > 12 {
		months = months[len(months)-12:]
	}
	for _, m := range months {
		stats.EnrollmentByMonth = append(stats.EnrollmentByMonth, model.MonthCount{Month: m, Count: monthly[m]})
	}
	return stats, nil
}

// Activities returns the newest entries first. A non-positive limit reads
// the default feed size of 10; the log itself never exceeds 50.
func (s *Store) Activities(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadActivities(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > len(entries) {
		limit = len(entries)
	}
	return entries[:limit], nil
}

// Draft returns the autosaved form snapshot, or nil when none exists.
func (s *Store) Draft(ctx context.Context) (*model.FormDraft, error) {
	payload, err := s.blob.Get(ctx, blob.SlotAutosave)
	if err != nil || payload == nil {
		return nil, err
	}
	var draft model.FormDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

// SaveDraft overwrites the singleton draft slot, stamping savedAt.
func (s *Store) SaveDraft(ctx context.Context, draft model.FormDraft) error {
	draft.SavedAt = s.now().UTC()
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.blob.Set(ctx, blob.SlotAutosave, payload)
}

// ClearDraft removes the draft slot.
func (s *Store) ClearDraft(ctx context.Context) error {
	return s.blob.Delete(ctx, blob.SlotAutosave)
}

// Healthy reports whether the backing blob store is reachable.
func (s *Store) Healthy(ctx context.Context) bool {
	return s.blob.Healthy(ctx)
}

// ---- internals ----

func (s *Store) loadStudents(ctx context.Context) ([]model.Student, error) {
	payload, err := s.blob.Get(ctx, blob.SlotStudents)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var students []model.Student
	if err := json.Unmarshal(payload, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return students, nil
}

func (s *Store) saveStudents(ctx context.Context, students []model.Student) error {
	if students == nil {
		students = []model.Student{}
	}
	payload, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("encode students: %w", err)
	}
	return s.blob.Set(ctx, blob.SlotStudents, payload)
}

func (s *Store) loadActivities(ctx context.Context) ([]model.ActivityEntry, error) {
	payload, err := s.blob.Get(ctx, blob.SlotActivity)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var entries []model.ActivityEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return entries, nil
}

// logActivity prepends an entry and evicts past the cap. The record write
// already succeeded, so a failed activity write is logged and swallowed
// rather than rolled into the caller's result.
func (s *Store) logActivity(ctx context.Context, action string, st model.Student) {
	entries, err := s.loadActivities(ctx)
	if err != nil {
		log.Printf("records: activity load failed: %v", err)
		return
	}

	id := s.now().UnixMilli()
	if id <= s.lastActivityID {
		id = s.lastActivityID + 1
	}
	s.lastActivityID = id

	entry := model.ActivityEntry{
		ID:          id,
		Action:      action,
		StudentID:   st.ID,
		StudentName: st.Name,
		Timestamp:   s.now().UTC(),
		Details:     fmt.Sprintf("%s student: %s (%s)", titleCase(action), st.Name, st.RollNumber),
	}
	entries = append([]model.ActivityEntry{entry}, entries...)
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		log.Printf("records: activity encode failed: %v", err)
		return
	}
	if err := s.blob.Set(ctx, blob.SlotActivity, payload); err != nil {
		log.Printf("records: activity write failed: %v", err)
	}
}

func (s *Store) broadcast(ctx context.Context, action string, st model.Student) {
	if s.broker == nil {
		return
	}
	evt := notify.Event{
		Kind:        notify.KindRecordsChanged,
		Action:      action,
		StudentID:   st.ID,
		StudentName: st.Name,
		At:          s.now().UTC(),
	}
	if err := s.broker.Publish(ctx, evt); err != nil {
		log.Printf("records: event publish failed: %v", err)
	}
}

// nextID takes the highest numeric suffix across existing ids and
// increments it. Malformed ids are skipped.
func nextID(students []model.Student) string {
	last := idBase
	for _, st := range students {
		n, err := strconv.Atoi(strings.TrimPrefix(st.ID, idPrefix))
		if err == nil && n > last {
			last = n
		}
	}
	return fmt.Sprintf("%s%d", idPrefix, last+1)
}

func rollTaken(students []model.Student, roll, excludeID string) bool {
	for _, st := range students {
		if st.ID != excludeID && strings.EqualFold(st.RollNumber, roll) {
			return true
		}
	}
	return false
}

func applyPatch(st *model.Student, p model.StudentPatch) {
	if p.Name != nil {
		st.Name = *p.Name
	}
	if p.RollNumber != nil {
		st.RollNumber = *p.RollNumber
	}
	if p.Email != nil {
		st.Email = *p.Email
	}
	if p.Phone != nil {
		st.Phone = *p.Phone
	}
	if p.Gender != nil {
		st.Gender = *p.Gender
	}
	if p.Department != nil {
		st.Department = *p.Department
	}
	if p.GPA != nil {
		st.GPA = p.GPA
	}
	if p.Status != nil {
		st.Status = *p.Status
	}
	if p.EnrollmentDate != nil {
		st.EnrollmentDate = *p.EnrollmentDate
	}
	if p.Address != nil {
		st.Address = *p.Address
	}
	if p.ProfilePhoto != nil {
		st.ProfilePhoto = *p.ProfilePhoto
	}
	if p.LastActive != nil {
		st.LastActive = p.LastActive
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
