package http

import (
	"net/http"

	authmw "github.com/learnpath/learnpath-lms/internal/auth/middleware"
	"github.com/learnpath/learnpath-lms/internal/progress"
)

// GET /dashboard
func DashboardHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		stats, err := svc.Dashboard(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /deadlines
func DeadlinesHandler(svc *progress.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		entries, err := svc.Deadlines(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
