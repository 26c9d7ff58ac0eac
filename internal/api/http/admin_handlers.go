package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/learnpath/learnpath-lms/internal/catalog"
	"github.com/learnpath/learnpath-lms/internal/progress"
)

type coursePolicyReq struct {
	Deadline             *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	IsMandatory          *bool   `json:"is_mandatory"`
	PrerequisiteCourseID *string `json:"prerequisite_course_id"`
}

// PUT /admin/courses/{courseID}/policy — deadline, mandatory flag and
// prerequisite edge. An empty prerequisite_course_id or deadline clears the
// respective field; absent fields are left unchanged.
func SetCoursePolicyHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req coursePolicyReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		var deadline *time.Time
		if req.Deadline != nil {
			if *req.Deadline == "" {
				deadline = &time.Time{} // zero time clears the deadline
			} else {
				t, err := time.Parse(time.RFC3339, *req.Deadline)
				if err != nil {
					writeError(w, progress.Validationf("deadline: %v", err))
					return
				}
				deadline = &t
			}
		}
		courseID := chi.URLParam(r, "courseID")
		if err := svc.SetCoursePolicy(r.Context(), courseID, deadline, req.IsMandatory, req.PrerequisiteCourseID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"course_id": courseID})
	}
}

type enrollmentDeadlineReq struct {
	Deadline *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// PUT /admin/enrollments/{enrollmentID}/deadline — null clears the override
// so the course deadline applies again.
func SetEnrollmentDeadlineHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrollmentDeadlineReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		var deadline *time.Time
		if req.Deadline != nil && *req.Deadline != "" {
			t, err := time.Parse(time.RFC3339, *req.Deadline)
			if err != nil {
				writeError(w, progress.Validationf("deadline: %v", err))
				return
			}
			deadline = &t
		}
		id := chi.URLParam(r, "enrollmentID")
		if err := svc.SetEnrollmentDeadline(r.Context(), id, deadline); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"enrollment_id": id})
	}
}

type passingScoreReq struct {
	PassingScore int `json:"passing_score" validate:"min=0,max=100"`
}

// PUT /admin/lessons/{lessonID}/passing-score
func SetLessonPassingScoreHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passingScoreReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		id := chi.URLParam(r, "lessonID")
		if err := svc.SetLessonPassingScore(r.Context(), id, req.PassingScore); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lesson_id": id, "passing_score": req.PassingScore})
	}
}

type importCatalogReq struct {
	Dir string `json:"dir" validate:"required"`
}

// POST /admin/catalog/import — re-reads a YAML catalog directory on demand.
func ImportCatalogHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importCatalogReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		n, err := catalog.Load(r.Context(), req.Dir, svc.Store())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"imported": n})
	}
}

// Sweeper is what the on-demand sweep endpoint needs from the jobs package.
type Sweeper interface {
	Run(ctx context.Context) error
}

// POST /admin/sweep — runs the overdue/projection sweep immediately.
func RunSweepHandler(sweeper Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sweeper.Run(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
