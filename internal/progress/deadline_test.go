package progress

import (
	"testing"
	"time"
)

func tp(t time.Time) *time.Time { return &t }

func TestClassifyDeadline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		e    Enrollment
		c    Course
		want DeadlineStatus
	}{
		{
			name: "completed wins over overdue",
			e:    Enrollment{CompletedAt: tp(now.Add(-time.Hour)), Deadline: tp(now.Add(-48 * time.Hour))},
			want: DeadlineCompleted,
		},
		{
			name: "no deadline anywhere",
			want: DeadlineNone,
		},
		{
			name: "past deadline is overdue",
			e:    Enrollment{Deadline: tp(now.Add(-24 * time.Hour))},
			want: DeadlineOverdue,
		},
		{
			name: "five days out is urgent",
			e:    Enrollment{Deadline: tp(now.Add(5 * 24 * time.Hour))},
			want: DeadlineUrgent,
		},
		{
			name: "ten days out is upcoming",
			e:    Enrollment{Deadline: tp(now.Add(10 * 24 * time.Hour))},
			want: DeadlineUpcoming,
		},
		{
			name: "thirty days out is on track",
			e:    Enrollment{Deadline: tp(now.Add(30 * 24 * time.Hour))},
			want: DeadlineOnTrack,
		},
		{
			name: "course deadline applies when enrollment has none",
			c:    Course{Deadline: tp(now.Add(-time.Hour))},
			want: DeadlineOverdue,
		},
		{
			name: "enrollment override beats course deadline",
			e:    Enrollment{Deadline: tp(now.Add(30 * 24 * time.Hour))},
			c:    Course{Deadline: tp(now.Add(-time.Hour))},
			want: DeadlineOnTrack,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyDeadline(tc.e, tc.c, now); got != tc.want {
				t.Errorf("ClassifyDeadline = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"three days out", now.Add(3 * 24 * time.Hour), 3},
		{"half a day rounds up", now.Add(12 * time.Hour), 1},
		{"right now", now, 0},
		{"a day overdue", now.Add(-24 * time.Hour), -1},
		{"half a day overdue", now.Add(-12 * time.Hour), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DaysRemaining(tc.deadline, now); got != tc.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tc.want)
			}
		})
	}
}
