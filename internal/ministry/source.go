package ministry

import (
	"context"
	"database/sql"
	"time"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

// SQLSource loads aggregation snapshots straight from the tables the engine
// writes. It bypasses the Store interface on purpose: rollups want bulk reads
// across all users, which the per-user Store never exposes.
type SQLSource struct {
	db   *sql.DB
	caps progress.Capabilities
}

func NewSQLSource(db *sql.DB, caps progress.Capabilities) *SQLSource {
	return &SQLSource{db: db, caps: caps}
}

func (s *SQLSource) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Users, err = s.loadUsers(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Courses, err = s.loadCourses(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Lessons, err = s.loadLessons(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Enrollments, err = s.loadEnrollments(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Progress, err = s.loadProgress(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLSource) loadUsers(ctx context.Context) ([]progress.User, error) {
	q := `SELECT id, username, role, '' FROM users`
	if s.caps.MinistryStats {
		q = `SELECT id, username, role, ministry FROM users`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.User
	for rows.Next() {
		var u progress.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.Ministry); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLSource) loadCourses(ctx context.Context) ([]progress.Course, error) {
	q := `SELECT id, title, level FROM courses`
	switch {
	case s.caps.Deadlines && s.caps.Prerequisites:
		q = `SELECT id, title, level, deadline, prerequisite_course_id FROM courses`
	case s.caps.Deadlines:
		q = `SELECT id, title, level, deadline, NULL FROM courses`
	case s.caps.Prerequisites:
		q = `SELECT id, title, level, NULL, prerequisite_course_id FROM courses`
	default:
		q = `SELECT id, title, level, NULL, NULL FROM courses`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.Course
	for rows.Next() {
		var c progress.Course
		var deadline sql.NullInt64
		var prereq sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &c.Level, &deadline, &prereq); err != nil {
			return nil, err
		}
		if deadline.Valid {
			t := time.Unix(deadline.Int64, 0).UTC()
			c.Deadline = &t
		}
		if prereq.Valid && prereq.String != "" {
			v := prereq.String
			c.PrerequisiteCourseID = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLSource) loadLessons(ctx context.Context) ([]progress.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, course_id, type, published FROM lessons`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.Lesson
	for rows.Next() {
		var l progress.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Type, &l.Published); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLSource) loadEnrollments(ctx context.Context) ([]progress.Enrollment, error) {
	q := `SELECT id, user_id, course_id, enrolled_at, completed_at, NULL FROM enrollments`
	if s.caps.Deadlines {
		q = `SELECT id, user_id, course_id, enrolled_at, completed_at, deadline FROM enrollments`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.Enrollment
	for rows.Next() {
		var e progress.Enrollment
		var enrolledAt int64
		var completedAt, deadline sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &enrolledAt, &completedAt, &deadline); err != nil {
			return nil, err
		}
		e.EnrolledAt = time.Unix(enrolledAt, 0).UTC()
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0).UTC()
			e.CompletedAt = &t
		}
		if deadline.Valid {
			t := time.Unix(deadline.Int64, 0).UTC()
			e.Deadline = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLSource) loadProgress(ctx context.Context) ([]progress.LessonProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, lesson_id, status, quiz_score, quiz_attempts, passed, last_accessed
		   FROM lesson_progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.LessonProgress
	for rows.Next() {
		var p progress.LessonProgress
		var score sql.NullInt64
		var lastAccessed int64
		if err := rows.Scan(&p.UserID, &p.LessonID, &p.Status, &score, &p.QuizAttempts, &p.Passed, &lastAccessed); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			p.QuizScore = &v
		}
		p.LastAccessed = time.Unix(lastAccessed, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// RefreshProjection replaces the ministry_course_stats table with freshly
// computed rows. Readers that tolerate staleness can hit the table instead of
// aggregating live.
func (s *SQLSource) RefreshProjection(ctx context.Context, stats []CourseStats, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ministry_course_stats`); err != nil {
		return err
	}
	for _, cs := range stats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ministry_course_stats
			   (ministry, course_id, enrolled_count, completed_count, avg_score, overdue_count, refreshed_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			cs.Ministry, cs.CourseID, cs.Enrolled, cs.Completed, cs.AverageScore, cs.OverdueCount, now.Unix())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
