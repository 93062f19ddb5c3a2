package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/auth"
	"github.com/BuzzLyutic/taskboard/pkg/respond"
)

func NewRouter(h *TaskHandler, verifier *auth.Verifier, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(verifier, logger))

		r.Get("/me", h.Me)
		r.Post("/auth/signout", h.SignOut)
		r.Get("/notices", h.Notices)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/stats", h.Stats)
			r.Post("/refresh", h.Refresh)
			r.Patch("/{id}", h.Update)
			r.Put("/{id}", h.Edit)
			r.Delete("/{id}", h.Delete)
		})
	})

	return r
}

// RequestLogger logs one line per request, at warn for 4xx and error for 5xx.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := zap.InfoLevel
			switch {
			case status >= 500:
				level = zap.ErrorLevel
			case status >= 400:
				level = zap.WarnLevel
			}
			logger.Log(level, "http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
