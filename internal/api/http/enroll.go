package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/learnpath/learnpath-lms/internal/auth/middleware"
	"github.com/learnpath/learnpath-lms/internal/progress"
)

func ListCoursesHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, err := svc.Store().ListCourses(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

func GetCourseHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		course, err := svc.Store().GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, course)
	}
}

// GET /courses/{courseID}/access — dry-run of the enrollment gate. An
// existing enrollment always grants access.
func CanEnrollHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		decision, err := svc.CheckAccess(r.Context(), userID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decision)
	}
}

// POST /courses/{courseID}/enroll
func EnrollHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		enrollment, err := svc.Enroll(r.Context(), userID, chi.URLParam(r, "courseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, enrollment)
	}
}
