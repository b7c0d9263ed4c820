package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
)

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	user, err := h.UserService.CreateUser(r.Context(), body.Email, body.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.UserService.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) MagicLinkHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.AuthService.RequestMagicLink(r.Context(), body.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) VerifyMagicLinkHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.AuthService.VerifyMagicLink(r.Context(), body.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.AuthService.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
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

	h.writeJSON(w, http.StatusOK, user)
}
