package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/learnpath/learnpath-lms/internal/api/http"
	"github.com/learnpath/learnpath-lms/internal/audit"
	auth "github.com/learnpath/learnpath-lms/internal/auth/middleware"
	"github.com/learnpath/learnpath-lms/internal/catalog"
	"github.com/learnpath/learnpath-lms/internal/config"
	"github.com/learnpath/learnpath-lms/internal/db"
	"github.com/learnpath/learnpath-lms/internal/jobs"
	"github.com/learnpath/learnpath-lms/internal/ministry"
	"github.com/learnpath/learnpath-lms/internal/progress"
	"github.com/learnpath/learnpath-lms/internal/rbac"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	caps, err := progress.DetectCapabilities(ctx, dbh, cfg.DBDriver)
	if err != nil {
		log.Fatalf("capability probe failed: %v", err)
	}
	slog.Info("schema capabilities resolved",
		"deadlines", caps.Deadlines, "passing_scores", caps.PassingScores,
		"prerequisites", caps.Prerequisites, "ministry_stats", caps.MinistryStats)

	store := progress.NewSQLStore(dbh, cfg.DBDriver, caps)
	events := audit.NewEventRepo(dbh, cfg.SiteID)
	svc := progress.NewService(store, caps, events, time.Now)

	// --- Catalog seed ---
	if cfg.CatalogDir != "" {
		n, err := catalog.Load(ctx, cfg.CatalogDir, store)
		if err != nil {
			log.Fatalf("catalog load failed: %v", err)
		}
		slog.Info("catalog loaded", "courses", n)
	}

	// --- Ministry reporting + cache ---
	var mcache *ministry.Cache
	if cfg.RedisURL != "" {
		mcache, err = ministry.NewCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer mcache.Close()
	}
	var msource *ministry.SQLSource
	if caps.MinistryStats {
		msource = ministry.NewSQLSource(dbh, caps)
	}

	// --- Sweep scheduler ---
	sweeper := jobs.NewSweeper(svc, msource, mcache, events)
	if cfg.SweepSpec != "" {
		if err := sweeper.Start(cfg.SweepSpec); err != nil {
			log.Fatalf("sweep schedule: %v", err)
		}
		defer sweeper.Stop()
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.JWTSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, auth.LoginOptions{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
	}))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Catalog browsing + enrollment
		pr.With(rbac.Require("course:view")).
			Get("/api/courses", api.ListCoursesHandler(svc))
		pr.With(rbac.Require("course:view")).
			Get("/api/courses/{courseID}", api.GetCourseHandler(svc))
		pr.With(rbac.Require("course:enroll")).
			Get("/api/courses/{courseID}/access", api.CanEnrollHandler(svc))
		pr.With(rbac.Require("course:enroll")).
			Post("/api/courses/{courseID}/enroll", api.EnrollHandler(svc))

		// Progress tracking
		pr.With(rbac.Require("progress:update")).
			Patch("/api/lessons/{lessonID}/progress", api.UpdateProgressHandler(svc))
		pr.With(rbac.Require("lesson:complete")).
			Post("/api/lessons/{lessonID}/complete", api.CompleteLessonHandler(svc))
		pr.With(rbac.Require("lesson:requirements")).
			Get("/api/lessons/{lessonID}/requirements", api.LessonRequirementsHandler(svc))
		pr.With(rbac.Require("course:view")).
			Get("/api/courses/{courseID}/progress", api.CourseProgressHandler(svc))

		// Learner dashboard
		pr.With(rbac.Require("dashboard:view")).
			Get("/api/me/dashboard", api.DashboardHandler(svc))
		pr.With(rbac.Require("deadlines:view")).
			Get("/api/me/deadlines", api.DeadlinesHandler(svc))

		// Ministry reporting; only mounted when the schema supports it
		if msource != nil {
			mapi := &api.MinistryAPI{Source: msource, Cache: mcache}
			pr.With(rbac.RequireAny("ministry:stats", "admin:policy")).
				Get("/api/admin/ministry-stats", mapi.StatsHandler())
			pr.With(rbac.RequireAny("ministry:stats", "admin:policy")).
				Get("/api/admin/ministry-course-stats", mapi.CourseStatsHandler())
			pr.With(rbac.Require("ministry:export")).
				Get("/api/admin/ministry-export", mapi.ExportHandler())
		}

		// Users (admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/api/users/bulk", api.BulkUpsertUsersHandler(dbh, caps.MinistryStats))
		pr.With(rbac.Require("users:list")).
			Get("/api/users", api.ListUsersHandler(dbh, caps.MinistryStats))
		pr.With(rbac.Require("user:change_password")).
			Post("/api/users/change-password", api.ChangePasswordHandler(dbh))

		// Admin policy surface
		pr.With(rbac.Require("admin:policy")).
			Put("/api/admin/courses/{courseID}/policy", api.SetCoursePolicyHandler(svc))
		pr.With(rbac.Require("admin:policy")).
			Put("/api/admin/enrollments/{enrollmentID}/deadline", api.SetEnrollmentDeadlineHandler(svc))
		pr.With(rbac.Require("admin:policy")).
			Put("/api/admin/lessons/{lessonID}/passing-score", api.SetLessonPassingScoreHandler(svc))
		pr.With(rbac.Require("admin:catalog")).
			Post("/api/admin/catalog/import", api.ImportCatalogHandler(svc))
		pr.With(rbac.Require("admin:sweep")).
			Post("/api/admin/sweep", api.RunSweepHandler(sweeper))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
