package ministry

import (
	"reflect"
	"testing"
	"time"

	"github.com/learnpath/learnpath-lms/internal/progress"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }
func ip(i int) *int             { return &i }

func testSnapshot() Snapshot {
	past := now.Add(-48 * time.Hour)
	future := now.Add(30 * 24 * time.Hour)
	return Snapshot{
		Users: []progress.User{
			{ID: "u1", Username: "amina", Role: "learner", Ministry: "Health"},
			{ID: "u2", Username: "bela", Role: "learner", Ministry: "Health"},
			{ID: "u3", Username: "chris", Role: "learner", Ministry: "Finance"},
		},
		Courses: []progress.Course{
			{ID: "c1", Title: "Basics", Level: progress.LevelBeginner},
			{ID: "c2", Title: "Advanced", Level: progress.LevelAdvanced, Deadline: tp(past)},
		},
		Lessons: []progress.Lesson{
			{ID: "l1", CourseID: "c1", Type: progress.LessonQuiz, Published: true},
			{ID: "l2", CourseID: "c2", Type: progress.LessonQuiz, Published: true},
		},
		Enrollments: []progress.Enrollment{
			{ID: "e1", UserID: "u1", CourseID: "c1", EnrolledAt: past, CompletedAt: tp(past)},
			{ID: "e2", UserID: "u2", CourseID: "c2", EnrolledAt: past}, // overdue via course deadline
			{ID: "e3", UserID: "u3", CourseID: "c1", EnrolledAt: past, Deadline: tp(future)},
		},
		Progress: []progress.LessonProgress{
			{UserID: "u1", LessonID: "l1", Status: progress.StatusCompleted, QuizScore: ip(90), LastAccessed: now.Add(-time.Hour)},
			{UserID: "u2", LessonID: "l2", Status: progress.StatusInProgress, QuizScore: ip(50), LastAccessed: now.Add(-60 * 24 * time.Hour)},
			{UserID: "u3", LessonID: "l1", Status: progress.StatusInProgress, LastAccessed: now.Add(-time.Hour)},
		},
	}
}

func TestAggregate(t *testing.T) {
	got := Aggregate(testSnapshot(), now)
	want := []Stats{
		{
			Ministry:             "Finance",
			Learners:             1,
			ActiveLearners:       1,
			CompletedEnrollments: 0,
			AverageQuizScore:     0,
			OverdueEnrollments:   0,
		},
		{
			Ministry:             "Health",
			Learners:             2,
			ActiveLearners:       1, // u2's last access is outside the window
			CompletedEnrollments: 1,
			AverageQuizScore:     70, // (90 + 50) / 2
			OverdueEnrollments:   1,
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	a := Aggregate(testSnapshot(), now)
	b := Aggregate(testSnapshot(), now)
	if !reflect.DeepEqual(a, b) {
		t.Error("same snapshot must aggregate identically")
	}
}

func TestAggregateByCourse(t *testing.T) {
	got := AggregateByCourse(testSnapshot(), "", now)
	want := []CourseStats{
		{Ministry: "Finance", CourseID: "c1", Enrolled: 1, Completed: 0, CompletionRate: 0},
		{Ministry: "Health", CourseID: "c1", Enrolled: 1, Completed: 1, AverageScore: 90, CompletionRate: 1},
		{Ministry: "Health", CourseID: "c2", Enrolled: 1, Completed: 0, AverageScore: 50, CompletionRate: 0, OverdueCount: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateByCourse mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestAggregateByCourseFilter(t *testing.T) {
	got := AggregateByCourse(testSnapshot(), "Finance", now)
	if len(got) != 1 || got[0].Ministry != "Finance" {
		t.Errorf("filtered rollup = %+v", got)
	}
}

func TestAggregateEmptySnapshot(t *testing.T) {
	if got := Aggregate(Snapshot{}, now); len(got) != 0 {
		t.Errorf("empty snapshot produced %+v", got)
	}
	if got := AggregateByCourse(Snapshot{}, "", now); len(got) != 0 {
		t.Errorf("empty snapshot produced %+v", got)
	}
}

func TestCompletionRateZeroWhenNoEnrollments(t *testing.T) {
	snap := Snapshot{
		Users:   []progress.User{{ID: "u1", Ministry: "Health"}},
		Courses: []progress.Course{{ID: "c1"}},
	}
	for _, cs := range AggregateByCourse(snap, "", now) {
		if cs.CompletionRate != 0 {
			t.Errorf("completion rate with no enrollments = %v", cs.CompletionRate)
		}
	}
}
