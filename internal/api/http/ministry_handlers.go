package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/learnpath/learnpath-lms/internal/ministry"
)

// MinistryAPI serves the reporting surface. cache may be nil; every read then
// aggregates live.
type MinistryAPI struct {
	Source *ministry.SQLSource
	Cache  *ministry.Cache
}

// GET /ministry/stats
func (m *MinistryAPI) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const key = "ministry:stats"
		var cached []ministry.Stats
		if hit, err := m.Cache.Get(r.Context(), key, &cached); err != nil {
			slog.Warn("ministry: cache read failed", "error", err)
		} else if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		snap, err := m.Source.LoadSnapshot(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		stats := ministry.Aggregate(snap, time.Now().UTC())
		if err := m.Cache.Put(r.Context(), key, stats); err != nil {
			slog.Warn("ministry: cache write failed", "error", err)
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /ministry/course-stats?ministry=Health
func (m *MinistryAPI) CourseStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("ministry")
		key := "ministry:course_stats"
		if filter != "" {
			key = fmt.Sprintf("%s:%s", key, filter)
		}
		var cached []ministry.CourseStats
		if hit, err := m.Cache.Get(r.Context(), key, &cached); err != nil {
			slog.Warn("ministry: cache read failed", "error", err)
		} else if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		snap, err := m.Source.LoadSnapshot(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		stats := ministry.AggregateByCourse(snap, filter, time.Now().UTC())
		if err := m.Cache.Put(r.Context(), key, stats); err != nil {
			slog.Warn("ministry: cache write failed", "error", err)
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /ministry/export — two-sheet XLSX of the live rollups.
func (m *MinistryAPI) ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Source.LoadSnapshot(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		now := time.Now().UTC()
		f, err := ministry.BuildWorkbook(
			ministry.Aggregate(snap, now),
			ministry.AggregateByCourse(snap, "", now),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="ministry-report-%s.xlsx"`, now.Format("2006-01-02")))
		if err := f.Write(w); err != nil {
			slog.Error("ministry: export write failed", "error", err)
		}
	}
}
