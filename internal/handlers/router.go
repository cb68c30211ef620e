package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mw "studytrack/internal/middleware"
)

// Router holds every handler the API serves.
type Router struct {
	Auth         *AuthHandler
	User         *UserHandler
	Syllabus     *SyllabusHandler
	Progress     *ProgressHandler
	Dashboard    *DashboardHandler
	Social       *SocialHandler
	Achievements *AchievementHandler
	Health       *HealthHandler
	AuthMW       *mw.AuthMiddleware
	Log          *zap.Logger
	CORSOrigins  []string
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(rt.Log))
	r.Use(middleware.Recoverer)
	r.Use(mw.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", rt.Health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", rt.Auth.Register)
		api.Post("/auth/login", rt.Auth.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(rt.AuthMW.RequireAuth)

			pr.Get("/user/me", rt.User.GetMe)
			pr.Patch("/user/preferences", rt.User.UpdatePreferences)

			pr.Route("/syllabus", func(s chi.Router) {
				s.Get("/", rt.Syllabus.Get)
				s.Get("/summary", rt.Dashboard.Summary)
				s.Post("/subject", rt.Syllabus.CreateSubject)
				s.Patch("/subject/{id}", rt.Syllabus.RenameSubject)
				s.Delete("/subject/{id}", rt.Syllabus.DeleteSubject)
				s.Post("/topic", rt.Syllabus.CreateTopic)
				s.Patch("/topic/{id}", rt.Syllabus.UpdateTopic)
				s.Delete("/topic/{id}", rt.Syllabus.DeleteTopic)
				s.Post("/log", rt.Progress.LogActivity)
				s.Get("/logs", rt.Progress.ListLogs)
				s.Patch("/log/{id}", rt.Progress.EditLog)
				s.Delete("/progress", rt.Progress.ResetProgress)
			})

			pr.Get("/achievements", rt.Achievements.List)

			pr.Route("/social", func(s chi.Router) {
				s.Get("/achievements", rt.Social.MyAchievements)
				s.Post("/follow", rt.Social.Follow)
				s.Delete("/unfollow/{followingId}", rt.Social.Unfollow)
				s.Get("/info", rt.Social.Info)
				s.Get("/search", rt.Social.Search)
				s.Get("/profile/{userId}", rt.Social.Profile)
				s.Get("/leaderboard", rt.Social.Leaderboard)
			})
		})
	})
	return r
}
