package progress

import "context"

// UpdateInput is a partial update; nil fields keep the stored value.
type UpdateInput struct {
	Status          *Status `json:"status,omitempty"`
	ProgressPercent *int    `json:"progress_percent,omitempty"`
	QuizScore       *int    `json:"quiz_score,omitempty"`
}

type ProgressUpdate struct {
	Progress       LessonProgress `json:"progress"`
	CourseProgress int            `json:"course_progress"`
}

type CompleteResult struct {
	Passed          bool           `json:"passed"`
	QuizResult      *QuizResult    `json:"quiz_result,omitempty"`
	Progress        LessonProgress `json:"progress"`
	CourseProgress  int            `json:"course_progress"`
	CourseCompleted bool           `json:"course_completed"`
}

// UpdateProgress is the plain tracker path. It cannot reach COMPLETED: that
// transition is only reachable through CompleteLesson so quiz gating cannot
// be bypassed.
func (s *Service) UpdateProgress(ctx context.Context, userID, lessonID string, in UpdateInput) (ProgressUpdate, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return ProgressUpdate{}, err
	}
	if in.Status != nil {
		switch *in.Status {
		case StatusNotStarted, StatusInProgress:
		case StatusCompleted:
			return ProgressUpdate{}, Validationf("status %q is only reachable via lesson completion", StatusCompleted)
		default:
			return ProgressUpdate{}, Validationf("unknown status %q", *in.Status)
		}
	}
	if in.ProgressPercent != nil && (*in.ProgressPercent < 0 || *in.ProgressPercent > 100) {
		return ProgressUpdate{}, Validationf("progress_percent must be within [0,100], got %d", *in.ProgressPercent)
	}
	if in.QuizScore != nil && *in.QuizScore < 0 {
		return ProgressUpdate{}, Validationf("quiz_score must not be negative, got %d", *in.QuizScore)
	}

	p, err := s.store.UpsertLessonProgress(ctx, userID, lessonID, ProgressPatch{
		Status:          in.Status,
		ProgressPercent: in.ProgressPercent,
		QuizScore:       in.QuizScore,
		Touched:         s.now().UTC(),
	})
	if err != nil {
		return ProgressUpdate{}, err
	}
	pct, _, err := s.recomputeCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return ProgressUpdate{}, err
	}
	return ProgressUpdate{Progress: p, CourseProgress: pct}, nil
}

// CompleteLesson is the gated completion transition. Quiz lessons with a
// scored submission are evaluated against the passing score; a failed
// attempt is recorded (attempt counter, score, passed=false) without marking
// the lesson or course complete. Completing a quiz without a submission
// never grants a pass: passed is only written alongside a scored result.
func (s *Service) CompleteLesson(ctx context.Context, userID, lessonID string, quizScore, totalQuestions *int) (CompleteResult, error) {
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return CompleteResult{}, err
	}

	passing := lesson.PassingScore
	if passing <= 0 {
		passing = DefaultPassingScore
	}

	var result *QuizResult
	if lesson.Type == LessonQuiz && quizScore != nil && totalQuestions != nil {
		r, err := EvaluateQuiz(*quizScore, *totalQuestions, passing)
		if err != nil {
			return CompleteResult{}, err
		}
		result = &r
		if !r.Passed {
			return s.recordFailedAttempt(ctx, userID, lesson, r)
		}
	}

	now := s.now().UTC()
	status := StatusCompleted
	hundred := 100
	patch := ProgressPatch{
		Status:          &status,
		ProgressPercent: &hundred,
		CompletedAt:     &now,
		Touched:         now,
	}
	// Passed is tied to a scored result on quiz lessons; an unscored
	// completion keeps whatever pass and score are already on record.
	if lesson.Type != LessonQuiz || result != nil {
		passed := true
		patch.Passed = &passed
	}
	if result != nil {
		patch.QuizScore = &result.Percentage
		patch.IncrementAttempts = true
	}
	p, err := s.store.UpsertLessonProgress(ctx, userID, lessonID, patch)
	if err != nil {
		return CompleteResult{}, err
	}
	s.events.Record(ctx, EventLessonCompleted, lessonID, map[string]string{
		"user_id": userID, "course_id": lesson.CourseID,
	})

	pct, courseDone, err := s.recomputeCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return CompleteResult{}, err
	}
	return CompleteResult{
		Passed:          p.Passed,
		QuizResult:      result,
		Progress:        p,
		CourseProgress:  pct,
		CourseCompleted: courseDone,
	}, nil
}

func (s *Service) recordFailedAttempt(ctx context.Context, userID string, lesson Lesson, r QuizResult) (CompleteResult, error) {
	status := StatusInProgress
	zero := 0
	failed := false
	p, err := s.store.UpsertLessonProgress(ctx, userID, lesson.ID, ProgressPatch{
		Status:            &status,
		ProgressPercent:   &zero,
		QuizScore:         &r.Percentage,
		Passed:            &failed,
		IncrementAttempts: true,
		Touched:           s.now().UTC(),
	})
	if err != nil {
		return CompleteResult{}, err
	}
	s.events.Record(ctx, EventQuizFailed, lesson.ID, map[string]any{
		"user_id": userID, "percentage": r.Percentage, "passing_score": r.PassingScore,
	})
	pct, _, err := s.recomputeCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return CompleteResult{}, err
	}
	return CompleteResult{Passed: false, QuizResult: &r, Progress: p, CourseProgress: pct}, nil
}

// recomputeCourse re-derives aggregate course progress and flips the
// enrollment to completed at 100%. The flip is one-way and idempotent.
func (s *Service) recomputeCourse(ctx context.Context, userID, courseID string) (int, bool, error) {
	counts, err := s.store.CountCourseProgress(ctx, userID, courseID)
	if err != nil {
		return 0, false, err
	}
	pct := coursePercent(counts.CompletedLessons, counts.PublishedLessons)
	if counts.PublishedLessons == 0 || pct < 100 {
		return pct, false, nil
	}

	e, err := s.store.GetEnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if KindOf(err) == KindNotFound {
			// Lesson activity without an enrollment: nothing to flip.
			return pct, false, nil
		}
		return 0, false, err
	}
	if e.CompletedAt != nil {
		return pct, false, nil
	}
	if err := s.store.MarkEnrollmentCompleted(ctx, userID, courseID, s.now().UTC()); err != nil {
		return 0, false, err
	}
	s.events.Record(ctx, EventCourseCompleted, e.ID, map[string]string{
		"user_id": userID, "course_id": courseID,
	})
	return pct, true, nil
}
