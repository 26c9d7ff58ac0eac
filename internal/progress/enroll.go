package progress

import (
	"context"

	"github.com/google/uuid"
)

// Enroll creates an enrollment after duplicate and prerequisite checks. The
// course deadline is copied onto the row at creation time; later changes to
// the course deadline still apply through the classifier fallback, but an
// admin override on the enrollment wins.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	if _, err := s.store.GetEnrollmentByUserCourse(ctx, userID, courseID); err == nil {
		return Enrollment{}, Conflictf("already enrolled in this course")
	} else if KindOf(err) != KindNotFound {
		return Enrollment{}, err
	}

	dec, err := s.evaluateAccess(ctx, userID, course)
	if err != nil {
		return Enrollment{}, err
	}
	if !dec.Allowed {
		return Enrollment{}, Forbidden(dec.Reason, dec.BlockingCourseID)
	}

	e := Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: s.now().UTC(),
	}
	if s.caps.Deadlines {
		e.Deadline = course.Deadline
	}
	// A duplicate-enroll race loses on the unique (user_id, course_id)
	// constraint and surfaces as the same Conflict as the pre-check.
	if err := s.store.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, err
	}
	s.events.Record(ctx, EventEnrollmentCreated, e.ID, map[string]string{
		"user_id": userID, "course_id": courseID,
	})
	return e, nil
}
