// Package ministry computes cohort-level rollups per organizational unit.
// Aggregation is a pure function of snapshots; persisted or cached copies
// are projections and may be recomputed wholesale at any time.
package ministry

import (
	"sort"
	"time"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

// Snapshot is a point-in-time copy of the facts aggregation reads. Two
// aggregations over the same snapshot always produce identical output.
type Snapshot struct {
	Users       []progress.User
	Courses     []progress.Course
	Lessons     []progress.Lesson
	Enrollments []progress.Enrollment
	Progress    []progress.LessonProgress
}

type Stats struct {
	Ministry             string  `json:"ministry"`
	Learners             int     `json:"learners"`
	ActiveLearners       int     `json:"active_learners"`
	CompletedEnrollments int     `json:"completed_enrollments"`
	AverageQuizScore     float64 `json:"average_quiz_score"`
	OverdueEnrollments   int     `json:"overdue_enrollments"`
}

type CourseStats struct {
	Ministry       string  `json:"ministry"`
	CourseID       string  `json:"course_id"`
	Enrolled       int     `json:"enrolled"`
	Completed      int     `json:"completed"`
	AverageScore   float64 `json:"average_score"`
	CompletionRate float64 `json:"completion_rate"`
	OverdueCount   int     `json:"overdue_count"`
}

// activeWindow is the trailing period that counts a learner as active.
const activeWindow = 30 * 24 * time.Hour

// Aggregate rolls the snapshot up per ministry.
func Aggregate(snap Snapshot, now time.Time) []Stats {
	ministryOf := userMinistries(snap)
	courses := courseIndex(snap)

	type acc struct {
		learners  map[string]bool
		active    map[string]bool
		completed int
		overdue   int
		scoreSum  int
		scoreN    int
	}
	byMinistry := map[string]*acc{}
	get := func(m string) *acc {
		a, ok := byMinistry[m]
		if !ok {
			a = &acc{learners: map[string]bool{}, active: map[string]bool{}}
			byMinistry[m] = a
		}
		return a
	}

	for _, u := range snap.Users {
		get(u.Ministry).learners[u.ID] = true
	}
	cutoff := now.Add(-activeWindow)
	for _, p := range snap.Progress {
		m, ok := ministryOf[p.UserID]
		if !ok {
			continue
		}
		a := get(m)
		if p.LastAccessed.After(cutoff) {
			a.active[p.UserID] = true
		}
		if p.QuizScore != nil {
			a.scoreSum += *p.QuizScore
			a.scoreN++
		}
	}
	for _, e := range snap.Enrollments {
		m, ok := ministryOf[e.UserID]
		if !ok {
			continue
		}
		a := get(m)
		if e.CompletedAt != nil {
			a.completed++
		}
		if progress.ClassifyDeadline(e, courses[e.CourseID], now) == progress.DeadlineOverdue {
			a.overdue++
		}
	}

	out := make([]Stats, 0, len(byMinistry))
	for m, a := range byMinistry {
		s := Stats{
			Ministry:             m,
			Learners:             len(a.learners),
			ActiveLearners:       len(a.active),
			CompletedEnrollments: a.completed,
			OverdueEnrollments:   a.overdue,
		}
		if a.scoreN > 0 {
			s.AverageQuizScore = float64(a.scoreSum) / float64(a.scoreN)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ministry < out[j].Ministry })
	return out
}

// AggregateByCourse groups per (ministry, course). ministryFilter narrows the
// output when non-empty. Completion rate is 0 when nothing is enrolled.
func AggregateByCourse(snap Snapshot, ministryFilter string, now time.Time) []CourseStats {
	ministryOf := userMinistries(snap)
	courses := courseIndex(snap)
	// quiz scores attach to the course that owns the lesson
	lessonCourse := make(map[string]string, len(snap.Lessons))
	for _, l := range snap.Lessons {
		lessonCourse[l.ID] = l.CourseID
	}

	type key struct{ ministry, course string }
	type acc struct {
		enrolled, completed, overdue int
		scoreSum, scoreN             int
	}
	byKey := map[key]*acc{}
	get := func(k key) *acc {
		a, ok := byKey[k]
		if !ok {
			a = &acc{}
			byKey[k] = a
		}
		return a
	}

	for _, e := range snap.Enrollments {
		m, ok := ministryOf[e.UserID]
		if !ok || (ministryFilter != "" && m != ministryFilter) {
			continue
		}
		a := get(key{m, e.CourseID})
		a.enrolled++
		if e.CompletedAt != nil {
			a.completed++
		}
		if progress.ClassifyDeadline(e, courses[e.CourseID], now) == progress.DeadlineOverdue {
			a.overdue++
		}
	}
	// scores are joined through lesson ownership when the snapshot carries it
	for _, p := range snap.Progress {
		m, ok := ministryOf[p.UserID]
		if !ok || (ministryFilter != "" && m != ministryFilter) {
			continue
		}
		cid, ok := lessonCourse[p.LessonID]
		if !ok || p.QuizScore == nil {
			continue
		}
		a := get(key{m, cid})
		a.scoreSum += *p.QuizScore
		a.scoreN++
	}

	out := make([]CourseStats, 0, len(byKey))
	for k, a := range byKey {
		cs := CourseStats{
			Ministry:     k.ministry,
			CourseID:     k.course,
			Enrolled:     a.enrolled,
			Completed:    a.completed,
			OverdueCount: a.overdue,
		}
		if a.scoreN > 0 {
			cs.AverageScore = float64(a.scoreSum) / float64(a.scoreN)
		}
		if a.enrolled > 0 {
			cs.CompletionRate = float64(a.completed) / float64(a.enrolled)
		}
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ministry != out[j].Ministry {
			return out[i].Ministry < out[j].Ministry
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

func userMinistries(snap Snapshot) map[string]string {
	m := make(map[string]string, len(snap.Users))
	for _, u := range snap.Users {
		m[u.ID] = u.Ministry
	}
	return m
}

func courseIndex(snap Snapshot) map[string]progress.Course {
	m := make(map[string]progress.Course, len(snap.Courses))
	for _, c := range snap.Courses {
		m[c.ID] = c
	}
	return m
}
