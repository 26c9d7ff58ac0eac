package progress

import (
	"context"
	"time"
)

type LessonView struct {
	Lesson
	Status          Status `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	QuizScore       *int   `json:"quiz_score,omitempty"`
	QuizAttempts    int    `json:"quiz_attempts"`
	Passed          bool   `json:"passed"`
}

type CourseProgressView struct {
	CourseID       string       `json:"course_id"`
	CourseProgress int          `json:"course_progress"`
	Lessons        []LessonView `json:"lessons"`
}

// CourseProgress returns the aggregate percentage plus per-lesson standing
// for every published lesson of the course.
func (s *Service) CourseProgress(ctx context.Context, userID, courseID string) (CourseProgressView, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return CourseProgressView{}, err
	}
	lessons, err := s.store.ListLessons(ctx, courseID, true)
	if err != nil {
		return CourseProgressView{}, err
	}
	rows, err := s.store.ListCourseProgress(ctx, userID, courseID)
	if err != nil {
		return CourseProgressView{}, err
	}
	byLesson := make(map[string]LessonProgress, len(rows))
	for _, p := range rows {
		byLesson[p.LessonID] = p
	}

	view := CourseProgressView{CourseID: courseID, Lessons: make([]LessonView, 0, len(lessons))}
	completed := 0
	for _, l := range lessons {
		lv := LessonView{Lesson: l, Status: StatusNotStarted}
		if p, ok := byLesson[l.ID]; ok {
			lv.Status = p.Status
			lv.ProgressPercent = p.ProgressPercent
			lv.QuizScore = p.QuizScore
			lv.QuizAttempts = p.QuizAttempts
			lv.Passed = p.Passed
			if p.Status == StatusCompleted {
				completed++
			}
		}
		view.Lessons = append(view.Lessons, lv)
	}
	view.CourseProgress = coursePercent(completed, len(lessons))
	return view, nil
}

type CurrentCourse struct {
	CourseID string         `json:"course_id"`
	Title    string         `json:"title"`
	Progress int            `json:"progress"`
	Deadline *time.Time     `json:"deadline,omitempty"`
	Status   DeadlineStatus `json:"status"`
}

type DashboardStats struct {
	EnrolledCourses  int             `json:"enrolled_courses"`
	CompletedCourses int             `json:"completed_courses"`
	LessonsCompleted int             `json:"lessons_completed"`
	AverageQuizScore float64         `json:"average_quiz_score"`
	CurrentCourses   []CurrentCourse `json:"current_courses"`
}

func (s *Service) Dashboard(ctx context.Context, userID string) (DashboardStats, error) {
	enrollments, err := s.store.ListEnrollments(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}
	rows, err := s.store.ListUserProgress(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		EnrolledCourses: len(enrollments),
		CurrentCourses:  []CurrentCourse{},
	}
	var scoreSum, scoreN int
	for _, p := range rows {
		if p.Status == StatusCompleted {
			stats.LessonsCompleted++
		}
		if p.QuizScore != nil {
			scoreSum += *p.QuizScore
			scoreN++
		}
	}
	if scoreN > 0 {
		stats.AverageQuizScore = float64(scoreSum) / float64(scoreN)
	}

	now := s.now().UTC()
	for _, e := range enrollments {
		if e.CompletedAt != nil {
			stats.CompletedCourses++
			continue
		}
		course, err := s.store.GetCourse(ctx, e.CourseID)
		if err != nil {
			if KindOf(err) == KindNotFound {
				continue
			}
			return DashboardStats{}, err
		}
		counts, err := s.store.CountCourseProgress(ctx, userID, e.CourseID)
		if err != nil {
			return DashboardStats{}, err
		}
		stats.CurrentCourses = append(stats.CurrentCourses, CurrentCourse{
			CourseID: e.CourseID,
			Title:    course.Title,
			Progress: coursePercent(counts.CompletedLessons, counts.PublishedLessons),
			Deadline: EffectiveDeadline(e, course),
			Status:   ClassifyDeadline(e, course, now),
		})
	}
	return stats, nil
}

type DeadlineEntry struct {
	CourseID      string         `json:"course_id"`
	Title         string         `json:"title"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	Status        DeadlineStatus `json:"status"`
	DaysRemaining *int           `json:"days_remaining,omitempty"`
}

// Deadlines lists every enrollment with its live deadline classification.
func (s *Service) Deadlines(ctx context.Context, userID string) ([]DeadlineEntry, error) {
	if !s.caps.Deadlines {
		return nil, Unsupportedf("deadlines are not available in this schema")
	}
	enrollments, err := s.store.ListEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]DeadlineEntry, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.store.GetCourse(ctx, e.CourseID)
		if err != nil {
			if KindOf(err) == KindNotFound {
				continue
			}
			return nil, err
		}
		entry := DeadlineEntry{
			CourseID: e.CourseID,
			Title:    course.Title,
			Deadline: EffectiveDeadline(e, course),
			Status:   ClassifyDeadline(e, course, now),
		}
		if entry.Deadline != nil {
			d := DaysRemaining(*entry.Deadline, now)
			entry.DaysRemaining = &d
		}
		out = append(out, entry)
	}
	return out, nil
}

type LessonRequirements struct {
	LessonID     string     `json:"lesson_id"`
	Type         LessonType `json:"type"`
	PassingScore int        `json:"passing_score"`
	CurrentScore *int       `json:"current_score,omitempty"`
	Attempts     int        `json:"attempts"`
	Passed       bool       `json:"passed"`
	Status       Status     `json:"status"`
}

func (s *Service) LessonRequirements(ctx context.Context, userID, lessonID string) (LessonRequirements, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonRequirements{}, err
	}
	req := LessonRequirements{
		LessonID:     lesson.ID,
		Type:         lesson.Type,
		PassingScore: lesson.PassingScore,
		Status:       StatusNotStarted,
	}
	if req.PassingScore <= 0 {
		req.PassingScore = DefaultPassingScore
	}
	p, err := s.store.GetLessonProgress(ctx, userID, lessonID)
	switch {
	case err == nil:
		req.CurrentScore = p.QuizScore
		req.Attempts = p.QuizAttempts
		req.Passed = p.Passed
		req.Status = p.Status
	case KindOf(err) == KindNotFound:
		// lazily created rows: no access yet is a valid state
	default:
		return LessonRequirements{}, err
	}
	return req, nil
}
