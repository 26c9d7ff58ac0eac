package progress

import "testing"

func TestEvaluateQuiz(t *testing.T) {
	cases := []struct {
		name         string
		score, total int
		passing      int
		wantPct      int
		wantPassed   bool
		wantErr      bool
	}{
		{name: "exact threshold passes", score: 7, total: 10, passing: 70, wantPct: 70, wantPassed: true},
		{name: "below threshold fails", score: 6, total: 10, passing: 70, wantPct: 60, wantPassed: false},
		{name: "rounding two of three", score: 2, total: 3, passing: 70, wantPct: 67, wantPassed: false},
		{name: "perfect score", score: 5, total: 5, passing: 70, wantPct: 100, wantPassed: true},
		{name: "zero of anything", score: 0, total: 4, passing: 70, wantPct: 0, wantPassed: false},
		{name: "custom threshold", score: 9, total: 10, passing: 90, wantPct: 90, wantPassed: true},
		{name: "default threshold when unset", score: 7, total: 10, passing: 0, wantPct: 70, wantPassed: true},
		{name: "zero total rejected", score: 0, total: 0, passing: 70, wantErr: true},
		{name: "negative score rejected", score: -1, total: 10, passing: 70, wantErr: true},
		{name: "score above total rejected", score: 11, total: 10, passing: 70, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := EvaluateQuiz(tc.score, tc.total, tc.passing)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				if KindOf(err) != KindValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Percentage != tc.wantPct {
				t.Errorf("percentage = %d, want %d", r.Percentage, tc.wantPct)
			}
			if r.Passed != tc.wantPassed {
				t.Errorf("passed = %v, want %v", r.Passed, tc.wantPassed)
			}
		})
	}
}

func TestCoursePercent(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 2, 50},
	}
	for _, tc := range cases {
		if got := coursePercent(tc.completed, tc.total); got != tc.want {
			t.Errorf("coursePercent(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}
