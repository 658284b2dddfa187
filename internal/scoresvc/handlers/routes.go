package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/ws", h.HandleWebSocket)

		r.Route("/games", func(r chi.Router) {
			r.Post("/", h.CreateGameHandler)
			r.Get("/", h.ListGamesHandler)
			r.Delete("/", h.ClearAllGamesHandler)
			r.Get("/summaries", h.GameSummariesHandler)
			r.Get("/active", h.GetActiveGameHandler)

			r.Route("/{gameId}", func(r chi.Router) {
				r.Get("/", h.GetGameHandler)
				r.Put("/", h.UpdateGameHandler)
				r.Delete("/", h.DeleteGameHandler)

				r.Post("/scores", h.AddScoreHandler)
				r.Get("/scores", h.ScoresHandler)
				r.Post("/scores/reset", h.ResetScoresHandler)
				r.Get("/players/{playerIndex}/history", h.PlayerHistoryHandler)

				r.Put("/status", h.UpdateStatusHandler)

				r.Post("/timer/start", h.StartTimerHandler)
				r.Post("/timer/stop", h.StopTimerHandler)
				r.Put("/timer/visibility", h.VisibilityHandler)
			})
		})
	})
}
