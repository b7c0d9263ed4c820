package service

import (
	"context"
	"sort"
	"strings"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type LeagueService struct {
	leagueStore      *store.LeagueStore
	participantStore *store.ParticipantStore
	sportStore       *store.SportStore
	assetStore       *store.AssetStore
	auctionStore     *store.AuctionStore
	scoringStore     *store.ScoringStore
}

func NewLeagueService(leagueStore *store.LeagueStore, participantStore *store.ParticipantStore,
	sportStore *store.SportStore, assetStore *store.AssetStore,
	auctionStore *store.AuctionStore, scoringStore *store.ScoringStore) *LeagueService {
	return &LeagueService{
		leagueStore:      leagueStore,
		participantStore: participantStore,
		sportStore:       sportStore,
		assetStore:       assetStore,
		auctionStore:     auctionStore,
		scoringStore:     scoringStore,
	}
}

// CreateLeagueInput mirrors the POST /api/leagues body.
type CreateLeagueInput struct {
	Name             string  `json:"name"`
	Budget           int64   `json:"budget"`
	MinManagers      int     `json:"minManagers"`
	MaxManagers      int     `json:"maxManagers"`
	ClubSlots        int     `json:"clubSlots"`
	SportKey         string  `json:"sportKey"`
	TimerSeconds     int     `json:"timerSeconds"`
	AntiSnipeSeconds int     `json:"antiSnipeSeconds"`
	AssetsSelected   []int64 `json:"assetsSelected,omitempty"`
}

func (s *LeagueService) CreateLeague(ctx context.Context, commissioner *models.User, in CreateLeagueInput) (*models.League, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("league name is required")
	}
	if in.Budget <= 0 {
		return nil, apperr.Validation("budget must be greater than zero")
	}
	if in.ClubSlots <= 0 {
		return nil, apperr.Validation("clubSlots must be greater than zero")
	}
	if in.MinManagers <= 0 || in.MaxManagers < in.MinManagers {
		return nil, apperr.Validation("minManagers/maxManagers are invalid")
	}
	if in.TimerSeconds <= 0 {
		in.TimerSeconds = 30
	}
	if in.AntiSnipeSeconds < 0 {
		in.AntiSnipeSeconds = 0
	}

	sport, err := s.sportStore.GetByKey(ctx, in.SportKey)
	if err != nil {
		return nil, err
	}
	if sport == nil {
		return nil, apperr.Validation("unknown sport %q", in.SportKey)
	}

	if len(in.AssetsSelected) > 0 {
		assets, err := s.assetStore.GetByIDs(ctx, in.AssetsSelected)
		if err != nil {
			return nil, err
		}
		if len(assets) != len(in.AssetsSelected) {
			return nil, apperr.Validation("assetsSelected contains unknown asset ids")
		}
		for _, a := range assets {
			if a.SportKey != in.SportKey {
				return nil, apperr.Validation("asset %d does not belong to sport %s", a.ID, in.SportKey)
			}
		}
	}

	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	return s.leagueStore.CreateLeague(ctx, models.League{
		Name:             strings.TrimSpace(in.Name),
		CommissionerID:   commissioner.UserId,
		Budget:           in.Budget,
		MinManagers:      in.MinManagers,
		MaxManagers:      in.MaxManagers,
		ClubSlots:        in.ClubSlots,
		SportKey:         in.SportKey,
		InviteToken:      token.String(),
		TimerSeconds:     in.TimerSeconds,
		AntiSnipeSeconds: in.AntiSnipeSeconds,
		AssetsSelected:   in.AssetsSelected,
	}, commissioner.DisplayName)
}

func (s *LeagueService) GetLeague(ctx context.Context, id int64) (*models.League, error) {
	l, err := s.leagueStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("league %d not found", id)
	}
	return l, nil
}

func (s *LeagueService) ListLeagues(ctx context.Context) ([]*models.League, error) {
	return s.leagueStore.List(ctx)
}

func (s *LeagueService) ListByUser(ctx context.Context, userID int64) ([]*models.League, error) {
	return s.leagueStore.ListByUser(ctx, userID)
}

func (s *LeagueService) Participants(ctx context.Context, leagueID int64) ([]*models.Participant, error) {
	return s.participantStore.ListByLeague(ctx, leagueID)
}

func (s *LeagueService) DeleteLeague(ctx context.Context, id, userID int64) error {
	l, err := s.GetLeague(ctx, id)
	if err != nil {
		return err
	}
	if l.CommissionerID != userID {
		return apperr.Forbidden("only the league commissioner can delete the league")
	}
	return s.leagueStore.Delete(ctx, id)
}

// Join adds a user to a league after checking the invite token and capacity.
func (s *LeagueService) Join(ctx context.Context, leagueID int64, user *models.User, inviteToken, displayName string) (*models.Participant, error) {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l.InviteToken != inviteToken {
		return nil, apperr.Forbidden("invalid invite token for this league")
	}
	if l.Status != models.LeagueStatusOpen {
		return nil, apperr.Validation("league is no longer accepting managers")
	}

	existing, err := s.participantStore.GetByLeagueAndUser(ctx, leagueID, user.UserId)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("you already joined this league")
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = user.DisplayName
	}

	p, err := s.participantStore.AddParticipantIfRoom(ctx, leagueID, user.UserId, name, l.Budget)
	if err != nil {
		if err == store.ErrLeagueFull {
			return nil, apperr.Validation("league is full")
		}
		return nil, err
	}

	return p, nil
}

// Summary backs GET /api/leagues/{id}/summary.
type LeagueSummary struct {
	League        *models.League        `json:"league"`
	Participants  []*models.Participant `json:"participants"`
	AuctionID     int64                 `json:"auction_id,omitempty"`
	AuctionStatus string                `json:"auction_status,omitempty"`
}

func (s *LeagueService) Summary(ctx context.Context, leagueID int64) (*LeagueSummary, error) {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantStore.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	summary := &LeagueSummary{League: l, Participants: participants}

	auction, err := s.auctionStore.GetLatestByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if auction != nil {
		summary.AuctionID = auction.ID
		summary.AuctionStatus = auction.Status
	}

	return summary, nil
}

// Standing ranks one manager by the summed leaderboard points of the assets
// they won at auction.
type Standing struct {
	UserID   int64           `json:"user_id"`
	UserName string          `json:"user_name"`
	Points   decimal.Decimal `json:"points"`
	Clubs    int             `json:"clubs"`
}

func (s *LeagueService) Standings(ctx context.Context, leagueID int64) ([]Standing, error) {
	if _, err := s.GetLeague(ctx, leagueID); err != nil {
		return nil, err
	}

	participants, err := s.participantStore.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	totals, err := s.scoringStore.TotalsForPlayers(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	// map asset id -> external id so won clubs can be matched to the totals
	var allIDs []int64
	for _, p := range participants {
		allIDs = append(allIDs, p.ClubsWon...)
	}
	externalByAsset := make(map[int64]string)
	if len(allIDs) > 0 {
		assets, err := s.assetStore.GetByIDs(ctx, allIDs)
		if err != nil {
			return nil, err
		}
		for _, a := range assets {
			externalByAsset[a.ID] = a.ExternalID
		}
	}

	standings := make([]Standing, 0, len(participants))
	for _, p := range participants {
		st := Standing{
			UserID:   p.UserID,
			UserName: p.UserName,
			Points:   decimal.Zero,
			Clubs:    len(p.ClubsWon),
		}
		for _, clubID := range p.ClubsWon {
			if ext := externalByAsset[clubID]; ext != "" {
				if raw, ok := totals[ext]; ok {
					pts, err := decimal.NewFromString(raw)
					if err == nil {
						st.Points = st.Points.Add(pts)
					}
				}
			}
		}
		standings = append(standings, st)
	}

	sort.Slice(standings, func(i, j int) bool {
		if !standings[i].Points.Equal(standings[j].Points) {
			return standings[i].Points.GreaterThan(standings[j].Points)
		}
		return standings[i].UserID < standings[j].UserID
	})

	return standings, nil
}
