package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
)

func (h *Handler) ListSportsHandler(w http.ResponseWriter, r *http.Request) {
	sports, err := h.SportService.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sports)
}

func (h *Handler) GetSportHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	sport, err := h.SportService.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sport)
}

func (h *Handler) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	sportKey := r.URL.Query().Get("sportKey")
	if sportKey == "" {
		h.writeError(w, apperr.Validation("sportKey query parameter is required"))
		return
	}

	assets, err := h.SportService.Assets(r.Context(), sportKey)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assets)
}

// IngestScoresHandler accepts a multipart cricket performance CSV. Only the
// league commissioner can feed scores in.
func (h *Handler) IngestScoresHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	leagueID, err := urlID(r, "leagueId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	league, err := h.LeagueService.GetLeague(r.Context(), leagueID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if league.CommissionerID != userID {
		h.writeError(w, apperr.Forbidden("only the league commissioner can ingest scores"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperr.Validation("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	result, err := h.ScoringService.Ingest(r.Context(), leagueID, file)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	leagueID, err := urlID(r, "leagueId")
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, err := h.ScoringService.Leaderboard(r.Context(), leagueID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entries)
}
