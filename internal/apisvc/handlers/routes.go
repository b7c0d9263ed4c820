package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/api", func(r chi.Router) {

		// public routes
		r.Get("/health", h.HealthHandler)

		r.Post("/users", h.CreateUserHandler)
		r.Get("/users/{id}", h.GetUserHandler)

		r.Post("/auth/magic-link", h.MagicLinkHandler)
		r.Post("/auth/verify-magic-link", h.VerifyMagicLinkHandler)
		r.Post("/auth/refresh", h.RefreshHandler)

		r.Get("/sports", h.ListSportsHandler)
		r.Get("/sports/{key}", h.GetSportHandler)
		r.Get("/assets", h.ListAssetsHandler)

		r.Get("/leagues", h.ListLeaguesHandler)
		r.Get("/leagues/{id}", h.GetLeagueHandler)
		r.Get("/leagues/{id}/summary", h.LeagueSummaryHandler)
		r.Get("/leagues/{id}/standings", h.LeagueStandingsHandler)
		r.Get("/leagues/{id}/fixtures", h.ListFixturesHandler)

		r.Get("/auction/{id}", h.AuctionSnapshotHandler)
		r.Get("/auction/{id}/clubs", h.AuctionClubsHandler)
		r.Get("/auction/{id}/bids", h.AuctionBidsHandler)

		r.Get("/scoring/{leagueId}/leaderboard", h.LeaderboardHandler)

		// secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/auth/me", h.MeHandler)
			r.Get("/me/competitions", h.MyCompetitionsHandler)

			r.Post("/leagues", h.CreateLeagueHandler)
			r.Delete("/leagues/{id}", h.DeleteLeagueHandler)
			r.Post("/leagues/{id}/join", h.JoinLeagueHandler)
			r.Put("/leagues/{id}/scoring-overrides", h.ScoringOverridesHandler)
			r.Post("/leagues/{id}/fixtures/import-csv", h.ImportFixturesHandler)
			r.Post("/leagues/{id}/auction/start", h.StartAuctionHandler)

			r.Post("/auction/{id}/begin", h.BeginAuctionHandler)
			r.Post("/auction/{id}/bid", h.PlaceBidHandler)
			r.Post("/auction/{id}/complete-lot", h.CompleteLotHandler)
			r.Post("/auction/{id}/pause", h.PauseAuctionHandler)
			r.Post("/auction/{id}/resume", h.ResumeAuctionHandler)
			r.Delete("/auction/{id}", h.DeleteAuctionHandler)

			r.Post("/scoring/{leagueId}/ingest", h.IngestScoresHandler)
		})
	})
}
