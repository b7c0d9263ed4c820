package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
)

func (h *Handler) StartAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	leagueID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	auction, err := h.AuctionService.StartAuction(r.Context(), leagueID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, auction)
}

func (h *Handler) BeginAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.AuctionService.Begin(auctionID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) PlaceBidHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body struct {
		ClubID int64 `json:"clubId"`
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	bid, err := h.AuctionService.PlaceBid(auctionID, userID, body.ClubID, body.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, bid)
}

func (h *Handler) CompleteLotHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.AuctionService.CompleteLot(auctionID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "lot completed"})
}

func (h *Handler) PauseAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.AuctionService.Pause(auctionID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (h *Handler) ResumeAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.AuctionService.Resume(auctionID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) DeleteAuctionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.AuctionService.Delete(r.Context(), auctionID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) AuctionSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	snap, err := h.AuctionService.Snapshot(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) AuctionBidsHandler(w http.ResponseWriter, r *http.Request) {
	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	bids, err := h.AuctionService.BidHistory(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) AuctionClubsHandler(w http.ResponseWriter, r *http.Request) {
	auctionID, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	clubs, err := h.AuctionService.Clubs(r.Context(), auctionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, clubs)
}
