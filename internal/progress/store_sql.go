package progress

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SQLStore runs against sqlite (offline) or postgres. Queries are written in
// the shared subset both drivers accept ($n placeholders, ON CONFLICT
// upserts). Optional columns are included only when the detected schema has
// them, so an old deployment degrades to Unsupported instead of SQL errors.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	caps   Capabilities
}

func NewSQLStore(db *sql.DB, driver string, caps Capabilities) *SQLStore {
	return &SQLStore{db: db, driver: driver, caps: caps}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

/* --------------------------------- catalog --------------------------------- */

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	if s.caps.Deadlines && s.caps.Prerequisites {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO courses (id, title, level, prerequisite_course_id, deadline, is_mandatory, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET
				title=EXCLUDED.title, level=EXCLUDED.level,
				prerequisite_course_id=EXCLUDED.prerequisite_course_id,
				deadline=EXCLUDED.deadline, is_mandatory=EXCLUDED.is_mandatory`,
			c.ID, c.Title, c.Level, c.PrerequisiteCourseID, unixPtr(c.Deadline), c.IsMandatory, time.Now().Unix())
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, level, is_mandatory, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, level=EXCLUDED.level, is_mandatory=EXCLUDED.is_mandatory`,
		c.ID, c.Title, c.Level, c.IsMandatory, time.Now().Unix())
	return err
}

func (s *SQLStore) scanCourse(row *sql.Row) (Course, error) {
	var c Course
	var prereq sql.NullString
	var deadline sql.NullInt64
	var err error
	if s.caps.Deadlines && s.caps.Prerequisites {
		err = row.Scan(&c.ID, &c.Title, &c.Level, &prereq, &deadline, &c.IsMandatory, &c.CreatedAt)
	} else {
		err = row.Scan(&c.ID, &c.Title, &c.Level, &c.IsMandatory, &c.CreatedAt)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, NotFoundf("course not found")
		}
		return Course{}, err
	}
	if prereq.Valid {
		c.PrerequisiteCourseID = &prereq.String
	}
	c.Deadline = timePtr(deadline)
	return c, nil
}

func (s *SQLStore) courseColumns() string {
	if s.caps.Deadlines && s.caps.Prerequisites {
		return `id, title, level, prerequisite_course_id, deadline, is_mandatory, created_at`
	}
	return `id, title, level, is_mandatory, created_at`
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+s.courseColumns()+` FROM courses WHERE id=$1`, id)
	return s.scanCourse(row)
}

func (s *SQLStore) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+s.courseColumns()+` FROM courses ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		var c Course
		var prereq sql.NullString
		var deadline sql.NullInt64
		if s.caps.Deadlines && s.caps.Prerequisites {
			err = rows.Scan(&c.ID, &c.Title, &c.Level, &prereq, &deadline, &c.IsMandatory, &c.CreatedAt)
		} else {
			err = rows.Scan(&c.ID, &c.Title, &c.Level, &c.IsMandatory, &c.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		if prereq.Valid {
			c.PrerequisiteCourseID = &prereq.String
		}
		c.Deadline = timePtr(deadline)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) error {
	if l.PassingScore == 0 {
		l.PassingScore = DefaultPassingScore
	}
	if s.caps.PassingScores {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO lessons (id, course_id, title, type, passing_score, position, published)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET
				course_id=EXCLUDED.course_id, title=EXCLUDED.title, type=EXCLUDED.type,
				passing_score=EXCLUDED.passing_score, position=EXCLUDED.position, published=EXCLUDED.published`,
			l.ID, l.CourseID, l.Title, l.Type, l.PassingScore, l.Position, l.Published)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons (id, course_id, title, type, position, published)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			course_id=EXCLUDED.course_id, title=EXCLUDED.title, type=EXCLUDED.type,
			position=EXCLUDED.position, published=EXCLUDED.published`,
		l.ID, l.CourseID, l.Title, l.Type, l.Position, l.Published)
	return err
}

func (s *SQLStore) lessonColumns() string {
	if s.caps.PassingScores {
		return `id, course_id, title, type, passing_score, position, published`
	}
	return `id, course_id, title, type, position, published`
}

func (s *SQLStore) scanLesson(scan func(dest ...any) error) (Lesson, error) {
	var l Lesson
	var err error
	if s.caps.PassingScores {
		err = scan(&l.ID, &l.CourseID, &l.Title, &l.Type, &l.PassingScore, &l.Position, &l.Published)
	} else {
		err = scan(&l.ID, &l.CourseID, &l.Title, &l.Type, &l.Position, &l.Published)
		l.PassingScore = DefaultPassingScore
	}
	return l, err
}

func (s *SQLStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+s.lessonColumns()+` FROM lessons WHERE id=$1`, id)
	l, err := s.scanLesson(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lesson{}, NotFoundf("lesson not found")
		}
		return Lesson{}, err
	}
	return l, nil
}

func (s *SQLStore) ListLessons(ctx context.Context, courseID string, publishedOnly bool) ([]Lesson, error) {
	q := `SELECT ` + s.lessonColumns() + ` FROM lessons WHERE course_id=$1`
	if publishedOnly {
		q += ` AND published`
	}
	q += ` ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lesson{}
	for rows.Next() {
		l, err := s.scanLesson(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetCoursePolicy(ctx context.Context, courseID string, deadline *time.Time, isMandatory *bool, prerequisiteCourseID *string) error {
	sets := []string{}
	args := []any{}
	if deadline != nil {
		if deadline.IsZero() {
			sets = append(sets, `deadline=NULL`)
		} else {
			args = append(args, deadline.Unix())
			sets = append(sets, `deadline=$`+strconv.Itoa(len(args)))
		}
	}
	if isMandatory != nil {
		args = append(args, *isMandatory)
		sets = append(sets, `is_mandatory=$`+strconv.Itoa(len(args)))
	}
	if prerequisiteCourseID != nil {
		if *prerequisiteCourseID == "" {
			sets = append(sets, `prerequisite_course_id=NULL`)
		} else {
			args = append(args, *prerequisiteCourseID)
			sets = append(sets, `prerequisite_course_id=$`+strconv.Itoa(len(args)))
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, courseID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET `+strings.Join(sets, ", ")+` WHERE id=$`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return NotFoundf("course not found")
	}
	return nil
}

func (s *SQLStore) SetLessonPassingScore(ctx context.Context, lessonID string, score int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE lessons SET passing_score=$1 WHERE id=$2`, score, lessonID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return NotFoundf("lesson not found")
	}
	return nil
}

/* ------------------------------- enrollments ------------------------------- */

func (s *SQLStore) CreateEnrollment(ctx context.Context, e Enrollment) error {
	var err error
	if s.caps.Deadlines {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO enrollments (id, user_id, course_id, enrolled_at, completed_at, deadline, is_overdue)
			VALUES ($1,$2,$3,$4,NULL,$5,FALSE)`,
			e.ID, e.UserID, e.CourseID, e.EnrolledAt.Unix(), unixPtr(e.Deadline))
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO enrollments (id, user_id, course_id, enrolled_at, completed_at)
			VALUES ($1,$2,$3,$4,NULL)`,
			e.ID, e.UserID, e.CourseID, e.EnrolledAt.Unix())
	}
	if isUniqueViolation(err) {
		return Conflictf("already enrolled in this course")
	}
	return err
}

func (s *SQLStore) enrollmentColumns() string {
	if s.caps.Deadlines {
		return `id, user_id, course_id, enrolled_at, completed_at, deadline, is_overdue`
	}
	return `id, user_id, course_id, enrolled_at, completed_at`
}

func (s *SQLStore) scanEnrollment(scan func(dest ...any) error) (Enrollment, error) {
	var e Enrollment
	var enrolled int64
	var completed, deadline sql.NullInt64
	var err error
	if s.caps.Deadlines {
		err = scan(&e.ID, &e.UserID, &e.CourseID, &enrolled, &completed, &deadline, &e.IsOverdue)
	} else {
		err = scan(&e.ID, &e.UserID, &e.CourseID, &enrolled, &completed)
	}
	if err != nil {
		return Enrollment{}, err
	}
	e.EnrolledAt = time.Unix(enrolled, 0).UTC()
	e.CompletedAt = timePtr(completed)
	e.Deadline = timePtr(deadline)
	return e, nil
}

func (s *SQLStore) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+s.enrollmentColumns()+` FROM enrollments WHERE id=$1`, id)
	e, err := s.scanEnrollment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, NotFoundf("enrollment not found")
	}
	return e, err
}

func (s *SQLStore) GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+s.enrollmentColumns()+` FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID)
	e, err := s.scanEnrollment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, NotFoundf("enrollment not found")
	}
	return e, err
}

func (s *SQLStore) ListEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+s.enrollmentColumns()+` FROM enrollments WHERE user_id=$1 ORDER BY enrolled_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Enrollment{}
	for rows.Next() {
		e, err := s.scanEnrollment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetEnrollmentDeadline(ctx context.Context, enrollmentID string, deadline *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET deadline=$1 WHERE id=$2`, unixPtr(deadline), enrollmentID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return NotFoundf("enrollment not found")
	}
	return nil
}

func (s *SQLStore) MarkEnrollmentCompleted(ctx context.Context, userID, courseID string, at time.Time) error {
	// One-way: only flips NULL -> timestamp.
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET completed_at=$1 WHERE user_id=$2 AND course_id=$3 AND completed_at IS NULL`,
		at.Unix(), userID, courseID)
	return err
}

func (s *SQLStore) HasCompletedCourse(ctx context.Context, userID, courseID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id=$1 AND course_id=$2 AND completed_at IS NOT NULL)`,
		userID, courseID).Scan(&ok)
	return ok, err
}

func (s *SQLStore) HasCompletedCourseAtLevel(ctx context.Context, userID string, level Level) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM enrollments e
			  JOIN courses c ON c.id = e.course_id
			 WHERE e.user_id=$1 AND c.level=$2 AND e.completed_at IS NOT NULL)`,
		userID, level).Scan(&ok)
	return ok, err
}

/* ------------------------------ lesson progress ---------------------------- */

const lessonProgressColumns = `user_id, lesson_id, status, progress_percent, quiz_score, quiz_attempts, passed, started_at, completed_at, last_accessed`

func scanLessonProgress(scan func(dest ...any) error) (LessonProgress, error) {
	var p LessonProgress
	var score sql.NullInt64
	var started, completed sql.NullInt64
	var accessed int64
	err := scan(&p.UserID, &p.LessonID, &p.Status, &p.ProgressPercent, &score,
		&p.QuizAttempts, &p.Passed, &started, &completed, &accessed)
	if err != nil {
		return LessonProgress{}, err
	}
	if score.Valid {
		v := int(score.Int64)
		p.QuizScore = &v
	}
	p.StartedAt = timePtr(started)
	p.CompletedAt = timePtr(completed)
	p.LastAccessed = time.Unix(accessed, 0).UTC()
	return p, nil
}

func (s *SQLStore) GetLessonProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+lessonProgressColumns+` FROM lesson_progress WHERE user_id=$1 AND lesson_id=$2`,
		userID, lessonID)
	p, err := scanLessonProgress(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return LessonProgress{}, NotFoundf("lesson progress not found")
	}
	return p, err
}

// UpsertLessonProgress applies the patch as a single atomic statement so
// concurrent writers merge field-by-field instead of last-writer-wins.
func (s *SQLStore) UpsertLessonProgress(ctx context.Context, userID, lessonID string, patch ProgressPatch) (LessonProgress, error) {
	inc := 0
	if patch.IncrementAttempts {
		inc = 1
	}
	var scoreArg *int64
	if patch.QuizScore != nil {
		v := int64(*patch.QuizScore)
		scoreArg = &v
	}
	var pctArg *int64
	if patch.ProgressPercent != nil {
		v := int64(*patch.ProgressPercent)
		pctArg = &v
	}
	var statusArg *string
	if patch.Status != nil {
		v := string(*patch.Status)
		statusArg = &v
	}
	touched := patch.Touched.Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lesson_progress
			(user_id, lesson_id, status, progress_percent, quiz_score, quiz_attempts, passed, started_at, completed_at, last_accessed)
		VALUES ($1, $2, COALESCE($3, 'in_progress'), COALESCE($4, 0), $5, $6, COALESCE($7, FALSE), $8, $9, $8)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			status           = COALESCE($3, lesson_progress.status),
			progress_percent = COALESCE($4, lesson_progress.progress_percent),
			quiz_score       = COALESCE($5, lesson_progress.quiz_score),
			quiz_attempts    = lesson_progress.quiz_attempts + $6,
			passed           = COALESCE($7, lesson_progress.passed),
			completed_at     = COALESCE($9, lesson_progress.completed_at),
			last_accessed    = $8`,
		userID, lessonID, statusArg, pctArg, scoreArg, inc, patch.Passed,
		touched, unixPtr(patch.CompletedAt))
	if err != nil {
		return LessonProgress{}, err
	}
	return s.GetLessonProgress(ctx, userID, lessonID)
}

func (s *SQLStore) ListCourseProgress(ctx context.Context, userID, courseID string) ([]LessonProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lp.user_id, lp.lesson_id, lp.status, lp.progress_percent, lp.quiz_score,
		       lp.quiz_attempts, lp.passed, lp.started_at, lp.completed_at, lp.last_accessed
		  FROM lesson_progress lp
		  JOIN lessons l ON l.id = lp.lesson_id
		 WHERE lp.user_id=$1 AND l.course_id=$2
		 ORDER BY l.position, l.id`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LessonProgress{}
	for rows.Next() {
		p, err := scanLessonProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListUserProgress(ctx context.Context, userID string) ([]LessonProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lessonProgressColumns+` FROM lesson_progress WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LessonProgress{}
	for rows.Next() {
		p, err := scanLessonProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountCourseProgress reads both counts inside one transaction so the
// completion check sees a consistent snapshot of the user's rows.
func (s *SQLStore) CountCourseProgress(ctx context.Context, userID, courseID string) (CourseCounts, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CourseCounts{}, err
	}
	defer tx.Rollback()

	var counts CourseCounts
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id=$1 AND published`, courseID).
		Scan(&counts.PublishedLessons); err != nil {
		return CourseCounts{}, err
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		  FROM lesson_progress lp
		  JOIN lessons l ON l.id = lp.lesson_id
		 WHERE lp.user_id=$1 AND l.course_id=$2 AND l.published AND lp.status='completed'`,
		userID, courseID).Scan(&counts.CompletedLessons); err != nil {
		return CourseCounts{}, err
	}
	return counts, tx.Commit()
}

/* ------------------------------- overdue sweep ----------------------------- */

func (s *SQLStore) RefreshOverdueFlags(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE enrollments SET is_overdue = COALESCE(
			(completed_at IS NULL AND
			 COALESCE(deadline, (SELECT c.deadline FROM courses c WHERE c.id = enrollments.course_id)) < $1),
			FALSE)`,
		now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
