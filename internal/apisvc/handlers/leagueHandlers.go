package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/service"
	"github.com/friendsofpifa/pifa-services/internal/comm"
)

func (h *Handler) CreateLeagueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.UserService.GetByID(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var in service.CreateLeagueInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	league, err := h.LeagueService.CreateLeague(r.Context(), user, in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, league)
}

func (h *Handler) ListLeaguesHandler(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.LeagueService.ListLeagues(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, leagues)
}

func (h *Handler) GetLeagueHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	league, err := h.LeagueService.GetLeague(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	participants, err := h.LeagueService.Participants(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"league":       league,
		"participants": participants,
	})
}

func (h *Handler) DeleteLeagueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.LeagueService.DeleteLeague(r.Context(), id, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) JoinLeagueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.UserService.GetByID(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body struct {
		InviteToken string `json:"inviteToken"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.LeagueService.Join(r.Context(), id, user, body.InviteToken, body.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	room := comm.LeagueRoom(id)
	h.pub.PublishRoom(room, comm.EventMemberJoined, comm.MemberJoined{
		LeagueId: id,
		UserId:   p.UserID,
		UserName: p.UserName,
	})
	if participants, err := h.LeagueService.Participants(r.Context(), id); err == nil {
		h.pub.PublishRoom(room, comm.EventSyncMembers, participants)
	}

	h.writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) ScoringOverridesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	schema, err := h.ScoringService.UpdateOverrides(r.Context(), id, userID, raw)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, schema)
}

func (h *Handler) MyCompetitionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	leagues, err := h.LeagueService.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, leagues)
}

func (h *Handler) LeagueSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	summary, err := h.LeagueService.Summary(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) LeagueStandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	standings, err := h.LeagueService.Standings(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, standings)
}

func (h *Handler) ListFixturesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	fixtures, err := h.FixtureService.List(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, fixtures)
}

func (h *Handler) ImportFixturesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperr.Validation("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	result, err := h.FixtureService.ImportCSV(r.Context(), id, userID, file)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
