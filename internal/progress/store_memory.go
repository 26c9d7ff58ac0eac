package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu          sync.RWMutex
	courses     map[string]Course
	lessons     map[string]Lesson
	enrollments map[string]Enrollment        // by enrollment id
	byUserCrs   map[[2]string]string         // (user, course) -> enrollment id
	progress    map[[2]string]LessonProgress // (user, lesson)
}

// NewInMemoryStore backs tests and single-process demos. Semantics mirror the
// SQL store, including the field-level merge on upsert.
func NewInMemoryStore() Store {
	return &memoryStore{
		courses:     map[string]Course{},
		lessons:     map[string]Lesson{},
		enrollments: map[string]Enrollment{},
		byUserCrs:   map[[2]string]string{},
		progress:    map[[2]string]LessonProgress{},
	}
}

func (m *memoryStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	m.courses[c.ID] = c
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, NotFoundf("course not found")
	}
	return c, nil
}

func (m *memoryStore) ListCourses(_ context.Context) ([]Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryStore) PutLesson(_ context.Context, l Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.PassingScore == 0 {
		l.PassingScore = DefaultPassingScore
	}
	m.lessons[l.ID] = l
	return nil
}

func (m *memoryStore) GetLesson(_ context.Context, id string) (Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return Lesson{}, NotFoundf("lesson not found")
	}
	return l, nil
}

func (m *memoryStore) ListLessons(_ context.Context, courseID string, publishedOnly bool) ([]Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Lesson{}
	for _, l := range m.lessons {
		if l.CourseID != courseID {
			continue
		}
		if publishedOnly && !l.Published {
			continue
		}
		out = append(out, l)
	}
	sortLessons(out)
	return out, nil
}

func (m *memoryStore) SetCoursePolicy(_ context.Context, courseID string, deadline *time.Time, isMandatory *bool, prerequisiteCourseID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return NotFoundf("course not found")
	}
	if deadline != nil {
		if deadline.IsZero() {
			c.Deadline = nil
		} else {
			d := *deadline
			c.Deadline = &d
		}
	}
	if isMandatory != nil {
		c.IsMandatory = *isMandatory
	}
	if prerequisiteCourseID != nil {
		if *prerequisiteCourseID == "" {
			c.PrerequisiteCourseID = nil
		} else {
			p := *prerequisiteCourseID
			c.PrerequisiteCourseID = &p
		}
	}
	m.courses[courseID] = c
	return nil
}

func (m *memoryStore) SetLessonPassingScore(_ context.Context, lessonID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[lessonID]
	if !ok {
		return NotFoundf("lesson not found")
	}
	l.PassingScore = score
	m.lessons[lessonID] = l
	return nil
}

func (m *memoryStore) CreateEnrollment(_ context.Context, e Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]string{e.UserID, e.CourseID}
	if _, exists := m.byUserCrs[k]; exists {
		return Conflictf("already enrolled in this course")
	}
	m.enrollments[e.ID] = e
	m.byUserCrs[k] = e.ID
	return nil
}

func (m *memoryStore) GetEnrollment(_ context.Context, id string) (Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	if !ok {
		return Enrollment{}, NotFoundf("enrollment not found")
	}
	return e, nil
}

func (m *memoryStore) GetEnrollmentByUserCourse(_ context.Context, userID, courseID string) (Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUserCrs[[2]string{userID, courseID}]
	if !ok {
		return Enrollment{}, NotFoundf("enrollment not found")
	}
	return m.enrollments[id], nil
}

func (m *memoryStore) ListEnrollments(_ context.Context, userID string) ([]Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Enrollment{}
	for _, e := range m.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) SetEnrollmentDeadline(_ context.Context, enrollmentID string, deadline *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return NotFoundf("enrollment not found")
	}
	e.Deadline = deadline
	m.enrollments[enrollmentID] = e
	return nil
}

func (m *memoryStore) MarkEnrollmentCompleted(_ context.Context, userID, courseID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byUserCrs[[2]string{userID, courseID}]
	if !ok {
		return nil
	}
	e := m.enrollments[id]
	if e.CompletedAt == nil {
		t := at
		e.CompletedAt = &t
		m.enrollments[id] = e
	}
	return nil
}

func (m *memoryStore) HasCompletedCourse(_ context.Context, userID, courseID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUserCrs[[2]string{userID, courseID}]
	if !ok {
		return false, nil
	}
	return m.enrollments[id].CompletedAt != nil, nil
}

func (m *memoryStore) HasCompletedCourseAtLevel(_ context.Context, userID string, level Level) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.UserID != userID || e.CompletedAt == nil {
			continue
		}
		if c, ok := m.courses[e.CourseID]; ok && c.Level == level {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) GetLessonProgress(_ context.Context, userID, lessonID string) (LessonProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[[2]string{userID, lessonID}]
	if !ok {
		return LessonProgress{}, NotFoundf("lesson progress not found")
	}
	return p, nil
}

func (m *memoryStore) UpsertLessonProgress(_ context.Context, userID, lessonID string, patch ProgressPatch) (LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]string{userID, lessonID}
	p, exists := m.progress[k]
	if !exists {
		started := patch.Touched
		p = LessonProgress{
			UserID:    userID,
			LessonID:  lessonID,
			Status:    StatusInProgress,
			StartedAt: &started,
		}
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.ProgressPercent != nil {
		p.ProgressPercent = *patch.ProgressPercent
	}
	if patch.QuizScore != nil {
		v := *patch.QuizScore
		p.QuizScore = &v
	}
	if patch.Passed != nil {
		p.Passed = *patch.Passed
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		p.CompletedAt = &t
	}
	if patch.IncrementAttempts {
		p.QuizAttempts++
	}
	p.LastAccessed = patch.Touched
	m.progress[k] = p
	return p, nil
}

func (m *memoryStore) ListCourseProgress(_ context.Context, userID, courseID string) ([]LessonProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []LessonProgress{}
	for _, p := range m.progress {
		if p.UserID != userID {
			continue
		}
		if l, ok := m.lessons[p.LessonID]; ok && l.CourseID == courseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) ListUserProgress(_ context.Context, userID string) ([]LessonProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []LessonProgress{}
	for _, p := range m.progress {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) CountCourseProgress(_ context.Context, userID, courseID string) (CourseCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var counts CourseCounts
	for _, l := range m.lessons {
		if l.CourseID != courseID || !l.Published {
			continue
		}
		counts.PublishedLessons++
		if p, ok := m.progress[[2]string{userID, l.ID}]; ok && p.Status == StatusCompleted {
			counts.CompletedLessons++
		}
	}
	return counts, nil
}

func (m *memoryStore) RefreshOverdueFlags(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.enrollments {
		c := m.courses[e.CourseID]
		dl := EffectiveDeadline(e, c)
		e.IsOverdue = e.CompletedAt == nil && dl != nil && dl.Before(now)
		m.enrollments[id] = e
		n++
	}
	return n, nil
}

func sortLessons(ls []Lesson) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Position != ls[j].Position {
			return ls[i].Position < ls[j].Position
		}
		return ls[i].ID < ls[j].ID
	})
}
