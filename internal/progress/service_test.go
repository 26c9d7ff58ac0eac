package progress

import (
	"context"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordedEvent struct {
	Type string
	Key  string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) Record(_ context.Context, typ, key string, _ any) {
	f.events = append(f.events, recordedEvent{Type: typ, Key: key})
}

func (f *fakeRecorder) count(typ string) int {
	n := 0
	for _, e := range f.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T, caps Capabilities) (*Service, Store, *fakeRecorder) {
	t.Helper()
	store := NewInMemoryStore()
	rec := &fakeRecorder{}
	svc := NewService(store, caps, rec, func() time.Time { return testNow })
	return svc, store, rec
}

func seedCourse(t *testing.T, store Store, c Course, lessons ...Lesson) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutCourse(ctx, c); err != nil {
		t.Fatalf("put course %s: %v", c.ID, err)
	}
	for i, l := range lessons {
		l.CourseID = c.ID
		l.Position = i
		l.Published = true
		if err := store.PutLesson(ctx, l); err != nil {
			t.Fatalf("put lesson %s: %v", l.ID, err)
		}
	}
}

// completeCourse walks a user through every lesson of a course.
func completeCourse(t *testing.T, svc *Service, userID, courseID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Enroll(ctx, userID, courseID); err != nil {
		t.Fatalf("enroll %s in %s: %v", userID, courseID, err)
	}
	lessons, err := svc.Store().ListLessons(ctx, courseID, true)
	if err != nil {
		t.Fatalf("list lessons: %v", err)
	}
	for _, l := range lessons {
		if _, err := svc.CompleteLesson(ctx, userID, l.ID, nil, nil); err != nil {
			t.Fatalf("complete lesson %s: %v", l.ID, err)
		}
	}
}

func TestEnrollExplicitPrerequisite(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()

	seedCourse(t, store, Course{ID: "intro", Title: "Intro", Level: LevelBeginner},
		Lesson{ID: "intro-1", Type: LessonContent})
	prereq := "intro"
	seedCourse(t, store, Course{ID: "followup", Title: "Follow-up", Level: LevelBeginner, PrerequisiteCourseID: &prereq},
		Lesson{ID: "followup-1", Type: LessonContent})

	_, err := svc.Enroll(ctx, "alice", "followup")
	if KindOf(err) != KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	ee, _ := AsEngineError(err)
	if ee.BlockingCourseID != "intro" {
		t.Errorf("blocking course = %q, want %q", ee.BlockingCourseID, "intro")
	}

	completeCourse(t, svc, "alice", "intro")

	if _, err := svc.Enroll(ctx, "alice", "followup"); err != nil {
		t.Fatalf("enroll after prerequisite: %v", err)
	}
}

func TestEnrollLevelGating(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()

	seedCourse(t, store, Course{ID: "b1", Title: "Basics", Level: LevelBeginner},
		Lesson{ID: "b1-1", Type: LessonContent})
	seedCourse(t, store, Course{ID: "i1", Title: "Middle", Level: LevelIntermediate},
		Lesson{ID: "i1-1", Type: LessonContent})
	seedCourse(t, store, Course{ID: "a1", Title: "Deep", Level: LevelAdvanced},
		Lesson{ID: "a1-1", Type: LessonContent})

	if _, err := svc.Enroll(ctx, "bob", "i1"); KindOf(err) != KindForbidden {
		t.Fatalf("intermediate without beginner: expected forbidden, got %v", err)
	}
	completeCourse(t, svc, "bob", "b1")

	if _, err := svc.Enroll(ctx, "bob", "a1"); KindOf(err) != KindForbidden {
		t.Fatalf("advanced without intermediate: expected forbidden, got %v", err)
	}
	completeCourse(t, svc, "bob", "i1")

	if _, err := svc.Enroll(ctx, "bob", "a1"); err != nil {
		t.Fatalf("advanced after intermediate: %v", err)
	}
}

func TestEnrollDuplicateConflict(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner})

	if _, err := svc.Enroll(ctx, "carol", "c"); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if _, err := svc.Enroll(ctx, "carol", "c"); KindOf(err) != KindConflict {
		t.Fatalf("second enroll: expected conflict, got %v", err)
	}
}

func TestEnrollCopiesCourseDeadline(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	deadline := testNow.Add(30 * 24 * time.Hour)
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner, Deadline: &deadline})

	e, err := svc.Enroll(ctx, "dave", "c")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if e.Deadline == nil || !e.Deadline.Equal(deadline) {
		t.Errorf("enrollment deadline = %v, want %v", e.Deadline, deadline)
	}
}

func TestQuizFailureDoesNotComplete(t *testing.T) {
	svc, store, rec := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "q1", Type: LessonQuiz, PassingScore: 70})
	if _, err := svc.Enroll(ctx, "erin", "c"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	score, total := 6, 10
	res, err := svc.CompleteLesson(ctx, "erin", "q1", &score, &total)
	if err != nil {
		t.Fatalf("failed attempt must not error: %v", err)
	}
	if res.Passed {
		t.Fatal("60 percent against a 70 threshold must not pass")
	}
	if res.Progress.Status != StatusInProgress {
		t.Errorf("status = %q, want %q", res.Progress.Status, StatusInProgress)
	}
	if res.Progress.QuizAttempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Progress.QuizAttempts)
	}
	if res.Progress.QuizScore == nil || *res.Progress.QuizScore != 60 {
		t.Errorf("quiz score = %v, want 60", res.Progress.QuizScore)
	}
	if res.CourseCompleted {
		t.Error("course must not complete on a failed quiz")
	}
	if rec.count(EventQuizFailed) != 1 {
		t.Errorf("QuizFailed events = %d, want 1", rec.count(EventQuizFailed))
	}

	// Passing retry completes lesson and the single-lesson course.
	score = 7
	res, err = svc.CompleteLesson(ctx, "erin", "q1", &score, &total)
	if err != nil {
		t.Fatalf("passing attempt: %v", err)
	}
	if !res.Passed || res.Progress.Status != StatusCompleted {
		t.Fatalf("passing attempt: passed=%v status=%q", res.Passed, res.Progress.Status)
	}
	if res.Progress.QuizAttempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Progress.QuizAttempts)
	}
	if !res.CourseCompleted {
		t.Error("single-lesson course must complete with the lesson")
	}
	e, err := store.GetEnrollmentByUserCourse(ctx, "erin", "c")
	if err != nil || e.CompletedAt == nil {
		t.Fatalf("enrollment not marked completed: %v %+v", err, e)
	}
	if rec.count(EventCourseCompleted) != 1 {
		t.Errorf("CourseCompleted events = %d, want 1", rec.count(EventCourseCompleted))
	}
}

func TestQuizExactThresholdPasses(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "q1", Type: LessonQuiz, PassingScore: 70})

	score, total := 7, 10
	res, err := svc.CompleteLesson(ctx, "frank", "q1", &score, &total)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.Passed || res.QuizResult == nil || res.QuizResult.Percentage != 70 {
		t.Fatalf("exactly the threshold must pass: %+v", res)
	}
}

func TestQuizWithoutScoreCompletesDirectly(t *testing.T) {
	// Unscored completion of a quiz lesson (e.g. teacher override path)
	// completes it like content: no attempt counted, no score recorded,
	// and no pass granted.
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "q1", Type: LessonQuiz, PassingScore: 70})

	res, err := svc.CompleteLesson(ctx, "gail", "q1", nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Progress.Status != StatusCompleted {
		t.Fatalf("unscored completion: %+v", res)
	}
	if res.Passed || res.Progress.Passed {
		t.Errorf("quiz pass granted without a score: %+v", res.Progress)
	}
	if res.Progress.QuizAttempts != 0 {
		t.Errorf("attempts = %d, want 0", res.Progress.QuizAttempts)
	}
	if res.Progress.QuizScore != nil {
		t.Errorf("quiz score = %v, want nil", res.Progress.QuizScore)
	}
}

func TestQuizPassFlagRequiresScore(t *testing.T) {
	// passed is never true on a quiz lesson without a score on record, and
	// an earlier scored pass survives a later unscored re-complete.
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "q1", Type: LessonQuiz, PassingScore: 70})

	if _, err := svc.CompleteLesson(ctx, "ivy", "q1", nil, nil); err != nil {
		t.Fatalf("unscored complete: %v", err)
	}
	p, err := store.GetLessonProgress(ctx, "ivy", "q1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if p.Passed && p.QuizScore == nil {
		t.Fatalf("passed=true with no quiz score (status=%q)", p.Status)
	}

	score, total := 9, 10
	if _, err := svc.CompleteLesson(ctx, "ivy", "q1", &score, &total); err != nil {
		t.Fatalf("scored complete: %v", err)
	}
	if _, err := svc.CompleteLesson(ctx, "ivy", "q1", nil, nil); err != nil {
		t.Fatalf("unscored re-complete: %v", err)
	}
	p, err = store.GetLessonProgress(ctx, "ivy", "q1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if !p.Passed || p.QuizScore == nil || *p.QuizScore != 90 {
		t.Errorf("scored pass not preserved: passed=%v score=%v", p.Passed, p.QuizScore)
	}
}

func TestCompleteLessonIdempotent(t *testing.T) {
	svc, store, rec := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "l1", Type: LessonContent})
	if _, err := svc.Enroll(ctx, "hank", "c"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	first, err := svc.CompleteLesson(ctx, "hank", "l1", nil, nil)
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if !first.CourseCompleted {
		t.Fatal("first completion should finish the course")
	}
	second, err := svc.CompleteLesson(ctx, "hank", "l1", nil, nil)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if second.Progress.Status != StatusCompleted {
		t.Errorf("status after repeat = %q", second.Progress.Status)
	}
	if second.CourseCompleted {
		t.Error("repeat completion must not flip the course again")
	}
	if rec.count(EventCourseCompleted) != 1 {
		t.Errorf("CourseCompleted events = %d, want 1", rec.count(EventCourseCompleted))
	}
}

func TestUpdateProgressCannotComplete(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "l1", Type: LessonContent})

	done := StatusCompleted
	_, err := svc.UpdateProgress(ctx, "iris", "l1", UpdateInput{Status: &done})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	pct := 150
	if _, err := svc.UpdateProgress(ctx, "iris", "l1", UpdateInput{ProgressPercent: &pct}); KindOf(err) != KindValidation {
		t.Fatalf("out-of-range percent: expected validation error, got %v", err)
	}
}

func TestUpdateProgressMergesFields(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "l1", Type: LessonContent}, Lesson{ID: "l2", Type: LessonContent})

	pct := 40
	upd, err := svc.UpdateProgress(ctx, "jay", "l1", UpdateInput{ProgressPercent: &pct})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.Progress.Status != StatusInProgress || upd.Progress.ProgressPercent != 40 {
		t.Fatalf("first update: %+v", upd.Progress)
	}

	// A second update without percent keeps the stored one.
	st := StatusInProgress
	upd, err = svc.UpdateProgress(ctx, "jay", "l1", UpdateInput{Status: &st})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if upd.Progress.ProgressPercent != 40 {
		t.Errorf("percent after merge = %d, want 40", upd.Progress.ProgressPercent)
	}
}

func TestCourseProgressRollup(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "l1", Type: LessonContent},
		Lesson{ID: "l2", Type: LessonContent},
		Lesson{ID: "l3", Type: LessonContent})
	if _, err := svc.Enroll(ctx, "kim", "c"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	res, err := svc.CompleteLesson(ctx, "kim", "l1", nil, nil)
	if err != nil {
		t.Fatalf("complete l1: %v", err)
	}
	if res.CourseProgress != 33 {
		t.Errorf("after 1/3 progress = %d, want 33", res.CourseProgress)
	}
	res, err = svc.CompleteLesson(ctx, "kim", "l2", nil, nil)
	if err != nil {
		t.Fatalf("complete l2: %v", err)
	}
	if res.CourseProgress != 67 {
		t.Errorf("after 2/3 progress = %d, want 67", res.CourseProgress)
	}
	if res.CourseCompleted {
		t.Error("2/3 must not complete the course")
	}
	res, err = svc.CompleteLesson(ctx, "kim", "l3", nil, nil)
	if err != nil {
		t.Fatalf("complete l3: %v", err)
	}
	if res.CourseProgress != 100 || !res.CourseCompleted {
		t.Errorf("after 3/3: progress=%d completed=%v", res.CourseProgress, res.CourseCompleted)
	}
}

func TestCourseWithNoPublishedLessonsNeverCompletes(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "empty", Title: "Empty", Level: LevelBeginner})
	if _, err := svc.Enroll(ctx, "lee", "empty"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	view, err := svc.CourseProgress(ctx, "lee", "empty")
	if err != nil {
		t.Fatalf("course progress: %v", err)
	}
	if view.CourseProgress != 0 {
		t.Errorf("empty course progress = %d, want 0", view.CourseProgress)
	}
	e, _ := store.GetEnrollmentByUserCourse(ctx, "lee", "empty")
	if e.CompletedAt != nil {
		t.Error("empty course must not auto-complete")
	}
}

func TestUnsupportedWithoutCapabilities(t *testing.T) {
	svc, store, _ := newTestService(t, Capabilities{})
	ctx := context.Background()
	stored := "missing-course"
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner, PrerequisiteCourseID: &stored},
		Lesson{ID: "l1", Type: LessonContent})

	if _, err := svc.Deadlines(ctx, "mia"); KindOf(err) != KindUnsupported {
		t.Errorf("Deadlines: expected unsupported, got %v", err)
	}
	if err := svc.SetLessonPassingScore(ctx, "l1", 80); KindOf(err) != KindUnsupported {
		t.Errorf("SetLessonPassingScore: expected unsupported, got %v", err)
	}
	prereq := "c"
	if err := svc.SetCoursePolicy(ctx, "c", nil, nil, &prereq); KindOf(err) != KindUnsupported {
		t.Errorf("SetCoursePolicy prerequisite: expected unsupported, got %v", err)
	}
	if _, err := svc.RefreshOverdueFlags(ctx); KindOf(err) != KindUnsupported {
		t.Errorf("RefreshOverdueFlags: expected unsupported, got %v", err)
	}

	// With prerequisite support off, the stored edge is ignored entirely.
	dec, err := svc.CanEnroll(ctx, "mia", "c")
	if err != nil || !dec.Allowed {
		t.Errorf("CanEnroll without caps: %+v %v", dec, err)
	}
}

func TestSetCoursePolicyRejectsCycles(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "a", Title: "A", Level: LevelBeginner})
	seedCourse(t, store, Course{ID: "b", Title: "B", Level: LevelBeginner})
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner})

	// a <- b <- c is fine
	a := "a"
	if err := svc.SetCoursePolicy(ctx, "b", nil, nil, &a); err != nil {
		t.Fatalf("b->a: %v", err)
	}
	b := "b"
	if err := svc.SetCoursePolicy(ctx, "c", nil, nil, &b); err != nil {
		t.Fatalf("c->b: %v", err)
	}

	// closing the loop is not
	c := "c"
	if err := svc.SetCoursePolicy(ctx, "a", nil, nil, &c); KindOf(err) != KindValidation {
		t.Fatalf("a->c should close a cycle, got %v", err)
	}
	if err := svc.SetCoursePolicy(ctx, "a", nil, nil, &a); KindOf(err) != KindValidation {
		t.Fatalf("self prerequisite, got %v", err)
	}

	// clearing an edge always works
	empty := ""
	if err := svc.SetCoursePolicy(ctx, "b", nil, nil, &empty); err != nil {
		t.Fatalf("clear edge: %v", err)
	}
}

func TestSetCoursePolicyClearsDeadline(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "l1", Type: LessonContent})

	dl := testNow.Add(48 * time.Hour)
	if err := svc.SetCoursePolicy(ctx, "c", &dl, nil, nil); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	course, err := store.GetCourse(ctx, "c")
	if err != nil || course.Deadline == nil {
		t.Fatalf("deadline not set: %v %+v", err, course)
	}

	var zero time.Time
	if err := svc.SetCoursePolicy(ctx, "c", &zero, nil, nil); err != nil {
		t.Fatalf("clear deadline: %v", err)
	}
	course, err = store.GetCourse(ctx, "c")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.Deadline != nil {
		t.Errorf("deadline = %v, want cleared", course.Deadline)
	}
}

func TestDashboard(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	deadline := testNow.Add(5 * 24 * time.Hour)
	seedCourse(t, store, Course{ID: "done", Title: "Done", Level: LevelBeginner},
		Lesson{ID: "d1", Type: LessonContent})
	seedCourse(t, store, Course{ID: "open", Title: "Open", Level: LevelBeginner, Deadline: &deadline},
		Lesson{ID: "o1", Type: LessonQuiz, PassingScore: 70},
		Lesson{ID: "o2", Type: LessonContent})

	completeCourse(t, svc, "nora", "done")
	if _, err := svc.Enroll(ctx, "nora", "open"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	score, total := 8, 10
	if _, err := svc.CompleteLesson(ctx, "nora", "o1", &score, &total); err != nil {
		t.Fatalf("complete o1: %v", err)
	}

	stats, err := svc.Dashboard(ctx, "nora")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.EnrolledCourses != 2 || stats.CompletedCourses != 1 {
		t.Errorf("enrolled=%d completed=%d, want 2/1", stats.EnrolledCourses, stats.CompletedCourses)
	}
	if stats.LessonsCompleted != 2 {
		t.Errorf("lessons completed = %d, want 2", stats.LessonsCompleted)
	}
	if stats.AverageQuizScore != 80 {
		t.Errorf("avg quiz score = %v, want 80", stats.AverageQuizScore)
	}
	if len(stats.CurrentCourses) != 1 {
		t.Fatalf("current courses = %d, want 1", len(stats.CurrentCourses))
	}
	cur := stats.CurrentCourses[0]
	if cur.CourseID != "open" || cur.Progress != 50 {
		t.Errorf("current course = %+v", cur)
	}
	if cur.Status != DeadlineUrgent {
		t.Errorf("deadline status = %q, want %q", cur.Status, DeadlineUrgent)
	}
}

func TestDeadlinesReport(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	deadline := testNow.Add(10 * 24 * time.Hour)
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner, Deadline: &deadline},
		Lesson{ID: "l1", Type: LessonContent})
	if _, err := svc.Enroll(ctx, "olga", "c"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	entries, err := svc.Deadlines(ctx, "olga")
	if err != nil {
		t.Fatalf("deadlines: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.Status != DeadlineUpcoming {
		t.Errorf("status = %q, want %q", got.Status, DeadlineUpcoming)
	}
	if got.DaysRemaining == nil || *got.DaysRemaining != 10 {
		t.Errorf("days remaining = %v, want 10", got.DaysRemaining)
	}
}

func TestLessonRequirements(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner},
		Lesson{ID: "q1", Type: LessonQuiz, PassingScore: 80})

	// Before any attempt: zero state, not an error.
	req, err := svc.LessonRequirements(ctx, "pam", "q1")
	if err != nil {
		t.Fatalf("requirements: %v", err)
	}
	if req.Status != StatusNotStarted || req.Attempts != 0 || req.CurrentScore != nil {
		t.Errorf("zero state = %+v", req)
	}
	if req.PassingScore != 80 {
		t.Errorf("passing score = %d, want 80", req.PassingScore)
	}

	score, total := 6, 10
	if _, err := svc.CompleteLesson(ctx, "pam", "q1", &score, &total); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	req, err = svc.LessonRequirements(ctx, "pam", "q1")
	if err != nil {
		t.Fatalf("requirements after attempt: %v", err)
	}
	if req.Attempts != 1 || req.Passed || req.CurrentScore == nil || *req.CurrentScore != 60 {
		t.Errorf("after failed attempt = %+v", req)
	}
}

func TestCheckAccessExistingEnrollment(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	prereq := "gone"
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelAdvanced, PrerequisiteCourseID: &prereq})

	// Enrolled before the policy tightened: access stays granted.
	if err := store.CreateEnrollment(ctx, Enrollment{ID: "e1", UserID: "quinn", CourseID: "c", EnrolledAt: testNow}); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	dec, err := svc.CheckAccess(ctx, "quinn", "c")
	if err != nil || !dec.Allowed {
		t.Errorf("existing enrollment must grant access: %+v %v", dec, err)
	}

	dec, err = svc.CheckAccess(ctx, "rita", "c")
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if dec.Allowed {
		t.Error("non-enrolled user must hit the gate")
	}
}

func TestRefreshOverdueFlags(t *testing.T) {
	svc, store, _ := newTestService(t, AllCapabilities())
	ctx := context.Background()
	past := testNow.Add(-24 * time.Hour)
	seedCourse(t, store, Course{ID: "c", Title: "C", Level: LevelBeginner, Deadline: &past})
	if err := store.CreateEnrollment(ctx, Enrollment{ID: "e1", UserID: "sam", CourseID: "c", EnrolledAt: past, Deadline: &past}); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	if _, err := svc.RefreshOverdueFlags(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	e, err := store.GetEnrollment(ctx, "e1")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if !e.IsOverdue {
		t.Error("past-deadline enrollment should be flagged")
	}
}
