package service

import (
	"context"
	"math/rand"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/engine"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/store"
	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// AuctionService owns the lifecycle of auction actors and translates HTTP
// requests into engine commands.
type AuctionService struct {
	auctionStore     *store.AuctionStore
	bidStore         *store.BidStore
	leagueStore      *store.LeagueStore
	participantStore *store.ParticipantStore
	assetStore       *store.AssetStore

	hub   *engine.Hub
	pub   engine.Publisher
	clock clockwork.Clock
	ctx   context.Context
}

func NewAuctionService(ctx context.Context, auctionStore *store.AuctionStore, bidStore *store.BidStore,
	leagueStore *store.LeagueStore, participantStore *store.ParticipantStore,
	assetStore *store.AssetStore, hub *engine.Hub, pub engine.Publisher, clock clockwork.Clock) *AuctionService {
	return &AuctionService{
		auctionStore:     auctionStore,
		bidStore:         bidStore,
		leagueStore:      leagueStore,
		participantStore: participantStore,
		assetStore:       assetStore,
		hub:              hub,
		pub:              pub,
		clock:            clock,
		ctx:              ctx,
	}
}

// StartAuction creates a waiting auction for a league and spawns its actor.
func (s *AuctionService) StartAuction(ctx context.Context, leagueID, userID int64) (*models.Auction, error) {
	league, err := s.leagueStore.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if league == nil {
		return nil, apperr.NotFound("league %d not found", leagueID)
	}
	if league.CommissionerID != userID {
		return nil, apperr.Forbidden("only the league commissioner can start an auction")
	}

	participants, err := s.participantStore.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(participants) < league.MinManagers {
		return nil, apperr.Validation("league needs at least %d managers before the auction can start", league.MinManagers)
	}

	queue, err := s.buildQueue(ctx, league)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, apperr.Validation("no assets available for sport %s", league.SportKey)
	}

	auction, err := s.auctionStore.CreateAuction(ctx, leagueID, queue)
	if err != nil {
		if err == store.ErrAuctionExists {
			return nil, apperr.Validation("league already has an open auction")
		}
		return nil, err
	}

	if err := s.leagueStore.UpdateStatus(ctx, leagueID, models.LeagueStatusAuction); err != nil {
		return nil, err
	}
	league.Status = models.LeagueStatusAuction

	e := engine.NewEngine(s.ctx, s.clock, s.pub, s.auctionStore, s.bidStore,
		league, auction, participants, nil)
	s.hub.Add(e)

	s.pub.PublishRoom(comm.LeagueRoom(leagueID), comm.EventLeagueStatusChanged, comm.LeagueStatusChanged{
		LeagueId:  leagueID,
		Status:    models.LeagueStatusAuction,
		AuctionId: auction.ID,
	})

	return auction, nil
}

// buildQueue shuffles the league's asset selection (or the whole sport pool)
// into a lot order.
func (s *AuctionService) buildQueue(ctx context.Context, league *models.League) ([]int64, error) {
	var ids []int64
	if len(league.AssetsSelected) > 0 {
		ids = append(ids, league.AssetsSelected...)
	} else {
		assets, err := s.assetStore.ListBySport(ctx, league.SportKey)
		if err != nil {
			return nil, err
		}
		for _, a := range assets {
			ids = append(ids, a.ID)
		}
	}

	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return ids, nil
}

func (s *AuctionService) engineFor(auctionID int64) (*engine.Engine, error) {
	e := s.hub.Get(auctionID)
	if e == nil {
		return nil, apperr.NotFound("auction %d not found or already completed", auctionID)
	}
	return e, nil
}

func (s *AuctionService) Begin(auctionID, userID int64) error {
	e, err := s.engineFor(auctionID)
	if err != nil {
		return err
	}

	reply := make(chan error, 1)
	e.Inbox() <- engine.Begin{UserID: userID, Reply: reply}
	return <-reply
}

func (s *AuctionService) PlaceBid(auctionID, userID, clubID, amount int64) (*models.Bid, error) {
	e, err := s.engineFor(auctionID)
	if err != nil {
		return nil, err
	}

	reply := make(chan engine.PlaceBidReply, 1)
	e.Inbox() <- engine.PlaceBid{UserID: userID, ClubID: clubID, Amount: amount, Reply: reply}
	r := <-reply
	return r.Bid, r.Err
}

func (s *AuctionService) CompleteLot(auctionID, userID int64) error {
	e, err := s.engineFor(auctionID)
	if err != nil {
		return err
	}

	reply := make(chan error, 1)
	e.Inbox() <- engine.CompleteLot{UserID: userID, Reply: reply}
	return <-reply
}

func (s *AuctionService) Pause(auctionID, userID int64) error {
	e, err := s.engineFor(auctionID)
	if err != nil {
		return err
	}

	reply := make(chan error, 1)
	e.Inbox() <- engine.Pause{UserID: userID, Reply: reply}
	return <-reply
}

func (s *AuctionService) Resume(auctionID, userID int64) error {
	e, err := s.engineFor(auctionID)
	if err != nil {
		return err
	}

	reply := make(chan error, 1)
	e.Inbox() <- engine.Resume{UserID: userID, Reply: reply}
	return <-reply
}

// Delete removes an auction and reopens its league for a fresh start.
func (s *AuctionService) Delete(ctx context.Context, auctionID, userID int64) error {
	auction, err := s.auctionStore.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction == nil {
		return apperr.NotFound("auction %d not found", auctionID)
	}

	league, err := s.leagueStore.GetByID(ctx, auction.LeagueID)
	if err != nil {
		return err
	}
	if league != nil && league.CommissionerID != userID {
		return apperr.Forbidden("only the league commissioner can delete the auction")
	}

	s.hub.Remove(auctionID)

	if err := s.auctionStore.Delete(ctx, auctionID); err != nil {
		return err
	}

	if league != nil && auction.Status != models.AuctionCompleted {
		// discarding an open auction rolls every manager back to a full budget
		// and an empty roster
		participants, err := s.participantStore.ListByLeague(ctx, league.ID)
		if err != nil {
			return err
		}
		for _, p := range participants {
			p.BudgetRemaining = league.Budget
			p.TotalSpent = 0
			p.ClubsWon = nil
			if err := s.participantStore.Save(ctx, p); err != nil {
				return err
			}
		}

		if err := s.leagueStore.UpdateStatus(ctx, league.ID, models.LeagueStatusOpen); err != nil {
			return err
		}
		s.pub.PublishRoom(comm.LeagueRoom(league.ID), comm.EventLeagueStatusChanged, comm.LeagueStatusChanged{
			LeagueId: league.ID,
			Status:   models.LeagueStatusOpen,
		})
	}

	return nil
}

// Snapshot serves GET /api/auction/{id} and the sync_state payload. Live
// auctions answer from their actor; completed ones from the store.
func (s *AuctionService) Snapshot(ctx context.Context, auctionID int64) (*engine.Snapshot, error) {
	if e := s.hub.Get(auctionID); e != nil {
		reply := make(chan engine.Snapshot, 1)
		e.Inbox() <- engine.GetSnapshot{Reply: reply}
		snap := <-reply
		return &snap, nil
	}

	auction, err := s.auctionStore.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, apperr.NotFound("auction %d not found", auctionID)
	}

	participants, err := s.participantStore.ListByLeague(ctx, auction.LeagueID)
	if err != nil {
		return nil, err
	}

	snap := &engine.Snapshot{
		Auction:    *auction,
		ServerTime: s.clock.Now(),
	}
	for _, p := range participants {
		snap.Participants = append(snap.Participants, *p)
	}
	return snap, nil
}

// BidHistory lists every bid of an auction in sequence order.
func (s *AuctionService) BidHistory(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	auction, err := s.auctionStore.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, apperr.NotFound("auction %d not found", auctionID)
	}

	return s.bidStore.ListByAuction(ctx, auctionID)
}

// LotView is one entry of GET /api/auction/{id}/clubs.
type LotView struct {
	Lot          int           `json:"lot"`
	Asset        *models.Asset `json:"asset"`
	Status       string        `json:"status"` // pending, sold, unsold
	WinnerUserID int64         `json:"winner_user_id,omitempty"`
	Amount       int64         `json:"amount,omitempty"`
}

// Clubs lists the auction queue with per-lot outcomes.
func (s *AuctionService) Clubs(ctx context.Context, auctionID int64) ([]LotView, error) {
	auction, err := s.auctionStore.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, apperr.NotFound("auction %d not found", auctionID)
	}

	assets, err := s.assetStore.GetByIDs(ctx, auction.ClubQueue)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	results, err := s.auctionStore.ListLotResults(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	byLot := make(map[int]*models.LotResult, len(results))
	for _, r := range results {
		byLot[r.Lot] = r
	}

	views := make([]LotView, 0, len(auction.ClubQueue))
	for i, clubID := range auction.ClubQueue {
		lot := i + 1
		view := LotView{
			Lot:    lot,
			Asset:  byID[clubID],
			Status: models.LotPending,
		}
		if r, ok := byLot[lot]; ok {
			view.Status = r.Status
			view.WinnerUserID = r.WinnerUserID
			view.Amount = r.Amount
		}
		views = append(views, view)
	}

	return views, nil
}

// RestoreOpenAuctions respawns actors for every non-completed auction at
// boot. Active auctions whose deadline already passed resolve their lot as
// soon as the actor starts.
func (s *AuctionService) RestoreOpenAuctions(ctx context.Context) error {
	auctions, err := s.auctionStore.ListOpen(ctx)
	if err != nil {
		return err
	}

	for _, auction := range auctions {
		league, err := s.leagueStore.GetByID(ctx, auction.LeagueID)
		if err != nil {
			return err
		}
		if league == nil {
			log.Warnf("auction %d references missing league %d, skipping restore", auction.ID, auction.LeagueID)
			continue
		}

		participants, err := s.participantStore.ListByLeague(ctx, auction.LeagueID)
		if err != nil {
			return err
		}

		var highest *models.Bid
		if auction.CurrentLot > 0 {
			highest, err = s.bidStore.HighestForLot(ctx, auction.ID, auction.CurrentLot)
			if err != nil {
				return err
			}
		}

		e := engine.NewEngine(s.ctx, s.clock, s.pub, s.auctionStore, s.bidStore,
			league, auction, participants, highest)
		s.hub.Add(e)

		log.Infof("restored %s auction %d for league %d", auction.Status, auction.ID, auction.LeagueID)
	}

	return nil
}
