package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/learnpath/learnpath-lms/internal/auth/middleware"
	"github.com/learnpath/learnpath-lms/internal/progress"
)

type updateProgressReq struct {
	Status          *string `json:"status" validate:"omitempty,oneof=not_started in_progress"`
	ProgressPercent *int    `json:"progress_percent" validate:"omitempty,min=0,max=100"`
	QuizScore       *int    `json:"quiz_score" validate:"omitempty,min=0"`
}

// PATCH /lessons/{lessonID}/progress
func UpdateProgressHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		var req updateProgressReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		in := progress.UpdateInput{
			ProgressPercent: req.ProgressPercent,
			QuizScore:       req.QuizScore,
		}
		if req.Status != nil {
			st := progress.Status(*req.Status)
			in.Status = &st
		}
		upd, err := svc.UpdateProgress(r.Context(), userID, chi.URLParam(r, "lessonID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, upd)
	}
}

type completeLessonReq struct {
	QuizScore      *int `json:"quiz_score" validate:"omitempty,min=0"`
	TotalQuestions *int `json:"total_questions" validate:"omitempty,min=1"`
}

// POST /lessons/{lessonID}/complete — the only path to COMPLETED. A failing
// quiz comes back 200 with passed=false; failure is an outcome, not an error.
func CompleteLessonHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		var req completeLessonReq
		if err := decodeValid(r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := svc.CompleteLesson(r.Context(), userID, chi.URLParam(r, "lessonID"), req.QuizScore, req.TotalQuestions)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /courses/{courseID}/progress
func CourseProgressHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		view, err := svc.CourseProgress(r.Context(), userID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /lessons/{lessonID}/requirements
func LessonRequirementsHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		req, err := svc.LessonRequirements(r.Context(), userID, chi.URLParam(r, "lessonID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}
