package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/auth"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/engine"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/service"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	pub       engine.Publisher

	UserService    *service.UserService
	AuthService    *service.AuthService
	LeagueService  *service.LeagueService
	AuctionService *service.AuctionService
	SportService   *service.SportService
	ScoringService *service.ScoringService
	FixtureService *service.FixtureService
}

func NewHandler(jwt *auth.JWT, pub engine.Publisher, userService *service.UserService, authService *service.AuthService,
	leagueService *service.LeagueService, auctionService *service.AuctionService,
	sportService *service.SportService, scoringService *service.ScoringService,
	fixtureService *service.FixtureService) *Handler {
	return &Handler{
		tokenAuth:      jwt.TokenAuth(),
		pub:            pub,
		UserService:    userService,
		AuthService:    authService,
		LeagueService:  leagueService,
		AuctionService: auctionService,
		SportService:   sportService,
		ScoringService: scoringService,
		FixtureService: fixtureService,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto the {"detail": ...} contract. Anything
// that is not an apperr is a 500 and gets logged instead of leaked.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		h.writeJSON(w, appErr.Code, map[string]string{"detail": appErr.Detail})
		return
	}

	log.Errorf("Error handling request: %s", err)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
}

// userID pulls the authenticated user out of the JWT claims.
func (h *Handler) userID(r *http.Request) (int64, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return 0, apperr.Unauthorized("missing or invalid token")
	}

	raw, ok := claims["user_id"]
	if !ok {
		return 0, apperr.Unauthorized("missing or invalid token")
	}

	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		id, err := v.Int64()
		if err != nil {
			return 0, apperr.Unauthorized("missing or invalid token")
		}
		return id, nil
	default:
		return 0, apperr.Unauthorized("missing or invalid token")
	}
}

func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
