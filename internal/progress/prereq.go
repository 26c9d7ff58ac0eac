package progress

import (
	"context"
	"fmt"
)

// CanEnroll decides whether a user may enroll in a course. Rules run in
// order and the first failure wins: the explicit prerequisite edge is more
// specific than level gating, so its denial names a concrete course.
func (s *Service) CanEnroll(ctx context.Context, userID, courseID string) (AccessDecision, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return AccessDecision{}, err
	}
	return s.evaluateAccess(ctx, userID, course)
}

func (s *Service) evaluateAccess(ctx context.Context, userID string, course Course) (AccessDecision, error) {
	if s.caps.Prerequisites && course.PrerequisiteCourseID != nil {
		done, err := s.store.HasCompletedCourse(ctx, userID, *course.PrerequisiteCourseID)
		if err != nil {
			return AccessDecision{}, err
		}
		if !done {
			return AccessDecision{
				Reason:           "complete the prerequisite course first",
				BlockingCourseID: *course.PrerequisiteCourseID,
			}, nil
		}
	}

	switch course.Level {
	case LevelIntermediate:
		ok, err := s.store.HasCompletedCourseAtLevel(ctx, userID, LevelBeginner)
		if err != nil {
			return AccessDecision{}, err
		}
		if !ok {
			return AccessDecision{Reason: fmt.Sprintf("complete at least one %s course first", LevelBeginner)}, nil
		}
	case LevelAdvanced:
		ok, err := s.store.HasCompletedCourseAtLevel(ctx, userID, LevelIntermediate)
		if err != nil {
			return AccessDecision{}, err
		}
		if !ok {
			return AccessDecision{Reason: fmt.Sprintf("complete at least one %s course first", LevelIntermediate)}, nil
		}
	}
	return AccessDecision{Allowed: true}, nil
}

// CheckAccess is the read-only variant used by the access endpoint: an
// existing enrollment always grants access, otherwise the enrollment rules
// apply.
func (s *Service) CheckAccess(ctx context.Context, userID, courseID string) (AccessDecision, error) {
	if _, err := s.store.GetEnrollmentByUserCourse(ctx, userID, courseID); err == nil {
		return AccessDecision{Allowed: true}, nil
	} else if KindOf(err) != KindNotFound {
		return AccessDecision{}, err
	}
	return s.CanEnroll(ctx, userID, courseID)
}
