package progress

import (
	"context"
	"time"
)

// ProgressPatch carries a partial lesson-progress update. Nil fields keep the
// stored value (COALESCE semantics); the whole patch must land as one atomic
// upsert keyed on (user_id, lesson_id).
type ProgressPatch struct {
	Status          *Status
	ProgressPercent *int
	QuizScore       *int
	Passed          *bool
	CompletedAt     *time.Time
	// IncrementAttempts bumps quiz_attempts by one. Only scored submissions
	// set it.
	IncrementAttempts bool
	// Touched becomes last_accessed (and started_at on first insert).
	Touched time.Time
}

// CourseCounts is a transactionally consistent view of one user's standing in
// a course.
type CourseCounts struct {
	CompletedLessons int
	PublishedLessons int
}

type Store interface {
	// Catalog
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	PutLesson(ctx context.Context, l Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, courseID string, publishedOnly bool) ([]Lesson, error)
	SetCoursePolicy(ctx context.Context, courseID string, deadline *time.Time, isMandatory *bool, prerequisiteCourseID *string) error
	SetLessonPassingScore(ctx context.Context, lessonID string, score int) error

	// Enrollment
	CreateEnrollment(ctx context.Context, e Enrollment) error
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	SetEnrollmentDeadline(ctx context.Context, enrollmentID string, deadline *time.Time) error
	// MarkEnrollmentCompleted is idempotent and one-way: a set completed_at
	// is never overwritten or cleared.
	MarkEnrollmentCompleted(ctx context.Context, userID, courseID string, at time.Time) error
	HasCompletedCourse(ctx context.Context, userID, courseID string) (bool, error)
	HasCompletedCourseAtLevel(ctx context.Context, userID string, level Level) (bool, error)

	// Lesson progress
	GetLessonProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error)
	UpsertLessonProgress(ctx context.Context, userID, lessonID string, patch ProgressPatch) (LessonProgress, error)
	ListCourseProgress(ctx context.Context, userID, courseID string) ([]LessonProgress, error)
	ListUserProgress(ctx context.Context, userID string) ([]LessonProgress, error)
	CountCourseProgress(ctx context.Context, userID, courseID string) (CourseCounts, error)

	// RefreshOverdueFlags recomputes the cached is_overdue projection for
	// open enrollments. Advisory only.
	RefreshOverdueFlags(ctx context.Context, now time.Time) (int64, error)
}
