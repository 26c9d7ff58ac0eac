package progress

import (
	"context"
	"time"
)

// EventRecorder receives advisory audit events. Failures to record are the
// recorder's problem; the engine never blocks on it.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, data any)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, string, string, any) {}

const (
	EventEnrollmentCreated = "EnrollmentCreated"
	EventLessonCompleted   = "LessonCompleted"
	EventQuizFailed        = "QuizFailed"
	EventCourseCompleted   = "CourseCompleted"
	EventOverdueSweep      = "OverdueSweep"
)

// Service is the progression engine: enrollment gating, the lesson state
// machine, completion detection and deadline reporting. All state lives in
// the injected Store.
type Service struct {
	store  Store
	caps   Capabilities
	events EventRecorder
	now    func() time.Time
}

func NewService(store Store, caps Capabilities, events EventRecorder, now func() time.Time) *Service {
	if events == nil {
		events = noopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, caps: caps, events: events, now: now}
}

// Store exposes the underlying store for read-side consumers (catalog
// listing, seeding).
func (s *Service) Store() Store { return s.store }

// Capabilities reports the schema features resolved at startup.
func (s *Service) Capabilities() Capabilities { return s.caps }
