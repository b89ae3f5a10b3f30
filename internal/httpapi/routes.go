package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/ws"
)

// SetupRoutes builds the router. saved may be nil when no database is
// configured; the /saved routes then answer 503.
func SetupRoutes(h *hub.Hub, saved SavedStore, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Post("/tournaments", CreateTournament(h, log))
	r.Route("/tournaments/{code}", func(r chi.Router) {
		r.Get("/", GetTournament(h))
		r.Delete("/", CloseTournament(h))
		r.Post("/commands", ApplyCommand(h))
		r.Post("/groups", GenerateGroups(h))
	})

	r.Get("/saved", ListSaved(saved))
	r.Route("/saved/{id}", func(r chi.Router) {
		r.Get("/", GetSaved(saved))
		r.Delete("/", DeleteSaved(saved))
		r.Post("/restore", RestoreSaved(saved))
		r.Post("/open", OpenSaved(h, saved, log))
	})

	r.Post("/analyze", Analyze)
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
