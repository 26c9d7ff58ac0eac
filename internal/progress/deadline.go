package progress

import (
	"math"
	"time"
)

type DeadlineStatus string

const (
	DeadlineCompleted DeadlineStatus = "completed"
	DeadlineNone      DeadlineStatus = "no_deadline"
	DeadlineOverdue   DeadlineStatus = "overdue"
	DeadlineUrgent    DeadlineStatus = "urgent"
	DeadlineUpcoming  DeadlineStatus = "upcoming"
	DeadlineOnTrack   DeadlineStatus = "on_track"
)

const (
	urgentWindow   = 7 * 24 * time.Hour
	upcomingWindow = 14 * 24 * time.Hour
)

// EffectiveDeadline resolves the enrollment override, falling back to the
// course-level deadline.
func EffectiveDeadline(e Enrollment, c Course) *time.Time {
	if e.Deadline != nil {
		return e.Deadline
	}
	return c.Deadline
}

// ClassifyDeadline buckets an enrollment. Buckets are evaluated in order and
// the first match wins, so they are mutually exclusive by construction.
func ClassifyDeadline(e Enrollment, c Course, now time.Time) DeadlineStatus {
	if e.CompletedAt != nil {
		return DeadlineCompleted
	}
	dl := EffectiveDeadline(e, c)
	switch {
	case dl == nil:
		return DeadlineNone
	case dl.Before(now):
		return DeadlineOverdue
	case dl.Before(now.Add(urgentWindow)):
		return DeadlineUrgent
	case dl.Before(now.Add(upcomingWindow)):
		return DeadlineUpcoming
	default:
		return DeadlineOnTrack
	}
}

// DaysRemaining is the whole number of days until the deadline, rounded up;
// negative once the deadline has passed.
func DaysRemaining(deadline, now time.Time) int {
	d := deadline.Sub(now).Hours() / 24
	if d >= 0 {
		return int(math.Ceil(d))
	}
	return int(math.Floor(d))
}
