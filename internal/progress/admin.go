package progress

import (
	"context"
	"time"
)

// SetCoursePolicy updates deadline, mandatory flag and prerequisite edge.
// Nil fields are left unchanged; a zero deadline or empty prerequisite id
// clears the respective field. Prerequisite edges are checked for cycles
// before they land: the chain from the proposed prerequisite is walked and
// must never reach the course being edited.
func (s *Service) SetCoursePolicy(ctx context.Context, courseID string, deadline *time.Time, isMandatory *bool, prerequisiteCourseID *string) error {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return err
	}
	if deadline != nil && !s.caps.Deadlines {
		return Unsupportedf("course deadlines are not available in this schema")
	}
	if prerequisiteCourseID != nil && !s.caps.Prerequisites {
		return Unsupportedf("course prerequisites are not available in this schema")
	}
	if prerequisiteCourseID != nil && *prerequisiteCourseID != "" {
		if *prerequisiteCourseID == courseID {
			return Validationf("a course cannot be its own prerequisite")
		}
		if _, err := s.store.GetCourse(ctx, *prerequisiteCourseID); err != nil {
			return err
		}
		cyclic, err := s.wouldCreateCycle(ctx, courseID, *prerequisiteCourseID)
		if err != nil {
			return err
		}
		if cyclic {
			return Validationf("prerequisite would create a cycle through course %s", *prerequisiteCourseID)
		}
	}
	return s.store.SetCoursePolicy(ctx, courseID, deadline, isMandatory, prerequisiteCourseID)
}

func (s *Service) wouldCreateCycle(ctx context.Context, courseID, prereqID string) (bool, error) {
	seen := map[string]bool{}
	cur := prereqID
	for cur != "" && !seen[cur] {
		if cur == courseID {
			return true, nil
		}
		seen[cur] = true
		c, err := s.store.GetCourse(ctx, cur)
		if err != nil {
			if KindOf(err) == KindNotFound {
				return false, nil
			}
			return false, err
		}
		if c.PrerequisiteCourseID == nil {
			return false, nil
		}
		cur = *c.PrerequisiteCourseID
	}
	return false, nil
}

func (s *Service) SetEnrollmentDeadline(ctx context.Context, enrollmentID string, deadline *time.Time) error {
	if !s.caps.Deadlines {
		return Unsupportedf("enrollment deadlines are not available in this schema")
	}
	if _, err := s.store.GetEnrollment(ctx, enrollmentID); err != nil {
		return err
	}
	return s.store.SetEnrollmentDeadline(ctx, enrollmentID, deadline)
}

func (s *Service) SetLessonPassingScore(ctx context.Context, lessonID string, score int) error {
	if !s.caps.PassingScores {
		return Unsupportedf("passing scores are not available in this schema")
	}
	if score < 0 || score > 100 {
		return Validationf("passing score must be within [0,100], got %d", score)
	}
	if _, err := s.store.GetLesson(ctx, lessonID); err != nil {
		return err
	}
	return s.store.SetLessonPassingScore(ctx, lessonID, score)
}

// RefreshOverdueFlags recomputes the cached is_overdue projection. The flag
// is advisory; classifiers always compute live.
func (s *Service) RefreshOverdueFlags(ctx context.Context) (int64, error) {
	if !s.caps.Deadlines {
		return 0, Unsupportedf("deadlines are not available in this schema")
	}
	return s.store.RefreshOverdueFlags(ctx, s.now().UTC())
}
