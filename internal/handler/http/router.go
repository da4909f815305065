package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/user"
	"github.com/cmlabs-hris/attendance-tracker/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(JWTService jwt.Service, attendanceHandler AttendanceHandler, statsHandler StatsHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.AppName),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired)

		r.Route("/attendance", func(r chi.Router) {
			// Self service
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceMark))
				r.Post("/check-in", attendanceHandler.CheckIn)
				r.Post("/check-out", attendanceHandler.CheckOut)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
				r.Get("/today", attendanceHandler.GetToday)
				r.Get("/my", attendanceHandler.GetMyAttendance)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", attendanceHandler.List)
				r.With(middleware.RequirePermission(user.PermissionAttendanceManage)).Post("/manual", attendanceHandler.CreateManual)

				r.Route("/{id}", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).Get("/", attendanceHandler.Get)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionAttendanceManage))
						r.Put("/", attendanceHandler.Update)
						r.Delete("/", attendanceHandler.Delete)
					})
				})
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.With(middleware.RequirePermission(user.PermissionStatsViewOwn)).Get("/my", statsHandler.My)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Use(middleware.RequirePermission(user.PermissionStatsViewAll))
				r.Get("/summary", statsHandler.Summary)
				r.Get("/daily", statsHandler.Daily)
				r.Get("/weekly", statsHandler.Weekly)
				r.Get("/users", statsHandler.Users)
				r.Get("/departments", statsHandler.Departments)
				r.Get("/trend", statsHandler.Trend)
				r.Get("/overview", statsHandler.Overview)
			})
		})
	})
	return r
}
