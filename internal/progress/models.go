package progress

import "time"

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

type LessonType string

const (
	LessonContent LessonType = "content"
	LessonQuiz    LessonType = "quiz"
	LessonVideo   LessonType = "video"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// DefaultPassingScore applies when a lesson row predates the passing_score
// column or the admin never set one.
const DefaultPassingScore = 70

type Course struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Level                Level      `json:"level"`
	PrerequisiteCourseID *string    `json:"prerequisite_course_id,omitempty"`
	Deadline             *time.Time `json:"deadline,omitempty"`
	IsMandatory          bool       `json:"is_mandatory"`
	CreatedAt            int64      `json:"created_at,omitempty"`
}

type Lesson struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	Title        string     `json:"title"`
	Type         LessonType `json:"type"`
	PassingScore int        `json:"passing_score"`
	Position     int        `json:"position"`
	Published    bool       `json:"published"`
}

type Enrollment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CourseID    string     `json:"course_id"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Deadline is copied from the course at enrollment time and may be
	// overridden per enrollment by an admin. Nil falls back to the course
	// deadline when classifying.
	Deadline *time.Time `json:"deadline,omitempty"`
	// IsOverdue is a cached projection refreshed by the sweep job. Business
	// logic classifies live and never reads it.
	IsOverdue bool `json:"is_overdue"`
}

type LessonProgress struct {
	UserID          string     `json:"user_id"`
	LessonID        string     `json:"lesson_id"`
	Status          Status     `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	QuizScore       *int       `json:"quiz_score,omitempty"`
	QuizAttempts    int        `json:"quiz_attempts"`
	Passed          bool       `json:"passed"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastAccessed    time.Time  `json:"last_accessed"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Ministry string `json:"ministry,omitempty"`
}

// AccessDecision is the resolver's answer to "may this user enroll".
type AccessDecision struct {
	Allowed          bool   `json:"allowed"`
	Reason           string `json:"reason,omitempty"`
	BlockingCourseID string `json:"blocking_course_id,omitempty"`
}

// QuizResult is returned on scored submissions. A failed quiz is a normal
// outcome, not an error.
type QuizResult struct {
	Percentage   int  `json:"percentage"`
	PassingScore int  `json:"passing_score"`
	Passed       bool `json:"passed"`
}
