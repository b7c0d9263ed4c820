package engine

import (
	"context"
	"sort"
	"time"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/apperr"
	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// Publisher fans a room-scoped event out to the socket service. Publish
// failures must never fail the command that produced the event.
type Publisher interface {
	PublishRoom(room, eventType string, payload interface{})
}

// AuctionPersister is the slice of the auction store the engine writes
// through.
type AuctionPersister interface {
	SaveState(ctx context.Context, a *models.Auction) error
	SettleLot(ctx context.Context, a *models.Auction, result *models.LotResult, winner *models.Participant, leagueStatus string) error
}

// BidPersister persists accepted bids together with the advanced sequence.
type BidPersister interface {
	InsertBid(ctx context.Context, b *models.Bid) (*models.Bid, error)
}

// Msg is a command sent into the auction actor's inbox.
type Msg interface{ isEngineMsg() }

type Begin struct {
	UserID int64
	Reply  chan error
}

type PlaceBid struct {
	UserID int64
	ClubID int64
	Amount int64
	Reply  chan PlaceBidReply
}

type PlaceBidReply struct {
	Bid *models.Bid
	Err error
}

// CompleteLot resolves the current lot. UserID 0 marks a timer-driven
// completion, which skips the commissioner check.
type CompleteLot struct {
	UserID int64
	Reply  chan error
}

type Pause struct {
	UserID int64
	Reply  chan error
}

type Resume struct {
	UserID int64
	Reply  chan error
}

type GetSnapshot struct {
	Reply chan Snapshot
}

type Shutdown struct{}

func (Begin) isEngineMsg()       {}
func (PlaceBid) isEngineMsg()    {}
func (CompleteLot) isEngineMsg() {}
func (Pause) isEngineMsg()       {}
func (Resume) isEngineMsg()      {}
func (GetSnapshot) isEngineMsg() {}
func (Shutdown) isEngineMsg()    {}

// Snapshot is the full auction view sent to late joiners (sync_state) and
// returned by GET /api/auction/{id}.
type Snapshot struct {
	Auction          models.Auction        `json:"auction"`
	HighestBid       *models.Bid           `json:"highest_bid,omitempty"`
	RemainingSeconds int64                 `json:"remaining_seconds"`
	Participants     []models.Participant  `json:"participants"`
	ServerTime       time.Time             `json:"server_time"`
}

// Engine is the single-writer actor owning one auction. Every mutation of
// the auction, its bids and its participants' budgets flows through the
// actor goroutine, which is what makes the bid sequence gap-free and budget
// updates atomic with respect to concurrent bids.
type Engine struct {
	inbox chan Msg

	clock    clockwork.Clock
	pub      Publisher
	auctions AuctionPersister
	bids     BidPersister

	league       *models.League
	auction      *models.Auction
	participants map[int64]*models.Participant // keyed by user id
	highest      *models.Bid                   // current lot only

	lotTimer clockwork.Timer
	timerCh  <-chan time.Time
	ticker   clockwork.Ticker
	tickCh   <-chan time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine spawns the actor. The auction may be in any non-completed state:
// restored active auctions pick their timer back up from the persisted
// deadline, restored paused auctions stay frozen.
func NewEngine(parent context.Context, clock clockwork.Clock, pub Publisher,
	auctions AuctionPersister, bids BidPersister,
	league *models.League, auction *models.Auction,
	participants []*models.Participant, highest *models.Bid) *Engine {

	ctx, cancel := context.WithCancel(parent)

	byUser := make(map[int64]*models.Participant, len(participants))
	for _, p := range participants {
		byUser[p.UserID] = p
	}

	e := &Engine{
		inbox:        make(chan Msg, 64),
		clock:        clock,
		pub:          pub,
		auctions:     auctions,
		bids:         bids,
		league:       league,
		auction:      auction,
		participants: byUser,
		highest:      highest,
		ctx:          ctx,
		cancel:       cancel,
	}

	if auction.Status == models.AuctionActive && auction.TimerEndsAt != nil {
		e.armTimer(auction.TimerEndsAt.Sub(clock.Now()))
	}

	go e.loop()
	return e
}

// Inbox exposes the command channel to the service layer.
func (e *Engine) Inbox() chan<- Msg { return e.inbox }

// AuctionID is safe to read concurrently, the field never changes.
func (e *Engine) AuctionID() int64 { return e.auction.ID }

func (e *Engine) LeagueID() int64 { return e.league.ID }

func (e *Engine) loop() {
	for {
		select {
		case <-e.ctx.Done():
			e.stopTimers()
			return

		case <-e.timerCh:
			// lot deadline reached, resolve as if complete-lot was called
			if err := e.completeLot(0, true); err != nil {
				log.Errorf("Error auto-completing lot for auction %d: %v", e.auction.ID, err)
			}

		case <-e.tickCh:
			e.broadcastTick()

		case m := <-e.inbox:
			switch msg := m.(type) {
			case Begin:
				msg.Reply <- e.begin(msg.UserID)
			case PlaceBid:
				bid, err := e.placeBid(msg.UserID, msg.ClubID, msg.Amount)
				msg.Reply <- PlaceBidReply{Bid: bid, Err: err}
			case CompleteLot:
				msg.Reply <- e.completeLot(msg.UserID, false)
			case Pause:
				msg.Reply <- e.pause(msg.UserID)
			case Resume:
				msg.Reply <- e.resume(msg.UserID)
			case GetSnapshot:
				msg.Reply <- e.snapshot()
			case Shutdown:
				e.stopTimers()
				e.cancel()
				return
			}
		}
	}
}

func (e *Engine) begin(userID int64) error {
	if userID != e.league.CommissionerID {
		return apperr.Forbidden("only the league commissioner can begin the auction")
	}
	if e.auction.Status != models.AuctionWaiting {
		return apperr.Validation("auction is not in waiting state")
	}
	if len(e.auction.ClubQueue) == 0 {
		return apperr.Validation("auction has no clubs to sell")
	}

	next := *e.auction
	next.Status = models.AuctionActive
	next.CurrentLot = 1
	next.CurrentClubID = next.ClubQueue[0]
	ends := e.clock.Now().Add(time.Duration(e.league.TimerSeconds) * time.Second)
	next.TimerEndsAt = &ends

	// commit to the store before touching live state, so a failed write
	// leaves the auction exactly where it was
	if err := e.persist(&next); err != nil {
		return err
	}

	*e.auction = next
	e.highest = nil
	e.armTimer(time.Duration(e.league.TimerSeconds) * time.Second)

	room := comm.AuctionRoom(e.auction.ID)
	e.pub.PublishRoom(room, comm.EventLotStarted, comm.LotStarted{
		AuctionId:   e.auction.ID,
		Lot:         e.auction.CurrentLot,
		ClubId:      e.auction.CurrentClubID,
		TimerEndsAt: ends,
	})
	e.pub.PublishRoom(room, comm.EventSyncState, e.snapshot())

	return nil
}

func (e *Engine) placeBid(userID, clubID, amount int64) (*models.Bid, error) {
	if e.auction.Status != models.AuctionActive {
		return nil, apperr.Validation("auction is not active")
	}

	p, ok := e.participants[userID]
	if !ok {
		return nil, apperr.Forbidden("you are not a participant in this league")
	}

	if clubID != 0 && clubID != e.auction.CurrentClubID {
		return nil, apperr.Validation("club %d is not the current lot", clubID)
	}

	if amount < models.MinBid {
		return nil, apperr.Validation("minimum bid is %s", models.FormatGBP(models.MinBid))
	}

	if e.highest != nil && amount <= e.highest.Amount {
		return nil, apperr.Validation("bid must be higher than the current highest bid of %s",
			models.FormatGBP(e.highest.Amount))
	}

	slotsAfter := e.league.ClubSlots - len(p.ClubsWon) - 1
	if slotsAfter < 0 {
		return nil, apperr.Validation("your roster is already full")
	}
	maxAllowed := p.BudgetRemaining - int64(slotsAfter)*models.MinBid
	if amount > maxAllowed {
		return nil, apperr.Validation(
			"bid violates your budget reserve of %s per unfilled slot; maximum allowed is %s",
			models.FormatGBP(models.MinBid), models.FormatGBP(maxAllowed))
	}

	bid := &models.Bid{
		AuctionID: e.auction.ID,
		UserID:    userID,
		ClubID:    e.auction.CurrentClubID,
		Lot:       e.auction.CurrentLot,
		Amount:    amount,
		Seq:       e.auction.BidSequence + 1,
	}

	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
	defer cancel()
	bid, err := e.bids.InsertBid(ctx, bid)
	if err != nil {
		log.Errorf("Error persisting bid for auction %d: %v", e.auction.ID, err)
		return nil, err
	}

	e.auction.BidSequence = bid.Seq
	e.highest = bid

	// anti-snipe: a bid landing inside the snipe window pushes the deadline out
	if e.auction.TimerEndsAt != nil && e.league.AntiSnipeSeconds > 0 {
		remaining := e.auction.TimerEndsAt.Sub(e.clock.Now())
		snipe := time.Duration(e.league.AntiSnipeSeconds) * time.Second
		if remaining > 0 && remaining < snipe {
			extended := e.auction.TimerEndsAt.Add(snipe)
			next := *e.auction
			next.TimerEndsAt = &extended

			// the bid itself is already committed; if the extension cannot
			// be persisted the lot simply keeps its original deadline
			if err := e.persist(&next); err != nil {
				log.Errorf("Error persisting anti-snipe extension for auction %d: %v", e.auction.ID, err)
			} else {
				*e.auction = next
				e.armTimer(extended.Sub(e.clock.Now()))

				e.pub.PublishRoom(comm.AuctionRoom(e.auction.ID), comm.EventAntiSnipe, comm.AntiSnipeEvent{
					AuctionId:   e.auction.ID,
					Lot:         e.auction.CurrentLot,
					TimerEndsAt: extended,
				})
			}
		}
	}

	event := comm.BidEvent{
		AuctionId: e.auction.ID,
		LotId:     bid.Lot,
		ClubId:    bid.ClubID,
		Amount:    bid.Amount,
		Bidder: comm.Bidder{
			UserId:      p.UserID,
			DisplayName: p.UserName,
		},
		Seq:        bid.Seq,
		ServerTime: e.clock.Now(),
	}
	room := comm.AuctionRoom(e.auction.ID)
	e.pub.PublishRoom(room, comm.EventBidUpdate, event)
	e.pub.PublishRoom(room, comm.EventBidPlaced, event)

	return bid, nil
}

func (e *Engine) completeLot(userID int64, fromTimer bool) error {
	if !fromTimer && userID != e.league.CommissionerID {
		return apperr.Forbidden("only the league commissioner can complete a lot")
	}
	if e.auction.Status != models.AuctionActive {
		return apperr.Validation("auction is not active")
	}

	result := &models.LotResult{
		AuctionID: e.auction.ID,
		Lot:       e.auction.CurrentLot,
		ClubID:    e.auction.CurrentClubID,
		Status:    models.LotUnsold,
	}

	// resolve into copies; live state is only touched once the settle commits,
	// so a failed write leaves budgets, rosters and the lot counter untouched
	// and the commissioner can simply retry the same lot
	var winner *models.Participant
	var sold comm.SoldEvent
	if e.highest != nil {
		w := *e.participants[e.highest.UserID]
		result.Status = models.LotSold
		result.WinnerUserID = e.highest.UserID
		result.Amount = e.highest.Amount

		w.BudgetRemaining -= e.highest.Amount
		w.TotalSpent += e.highest.Amount
		w.ClubsWon = append(append([]int64(nil), w.ClubsWon...), e.auction.CurrentClubID)
		winner = &w

		sold = comm.SoldEvent{
			AuctionId: e.auction.ID,
			Lot:       result.Lot,
			ClubId:    result.ClubID,
			Winner:    comm.Bidder{UserId: w.UserID, DisplayName: w.UserName},
			Amount:    result.Amount,
		}
	} else {
		sold = comm.SoldEvent{
			AuctionId: e.auction.ID,
			Lot:       result.Lot,
			ClubId:    result.ClubID,
			Unsold:    true,
		}
	}

	next := *e.auction
	done := next.CurrentLot >= len(next.ClubQueue) || e.allRostersFull(winner)

	leagueStatus := ""
	if done {
		next.Status = models.AuctionCompleted
		next.TimerEndsAt = nil
		next.PausedMs = 0
		leagueStatus = models.LeagueStatusActive
	} else {
		next.CurrentLot++
		next.CurrentClubID = next.ClubQueue[next.CurrentLot-1]
		ends := e.clock.Now().Add(time.Duration(e.league.TimerSeconds) * time.Second)
		next.TimerEndsAt = &ends
	}

	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
	defer cancel()
	if err := e.auctions.SettleLot(ctx, &next, result, winner, leagueStatus); err != nil {
		log.Errorf("Error settling lot %d of auction %d: %v", result.Lot, e.auction.ID, err)
		return err
	}

	*e.auction = next
	if winner != nil {
		*e.participants[winner.UserID] = *winner
	}
	e.highest = nil
	if done {
		e.stopTimers()
	} else {
		e.armTimer(time.Duration(e.league.TimerSeconds) * time.Second)
	}

	room := comm.AuctionRoom(e.auction.ID)
	e.pub.PublishRoom(room, comm.EventSold, sold)

	if done {
		e.pub.PublishRoom(comm.LeagueRoom(e.league.ID), comm.EventLeagueStatusChanged, comm.LeagueStatusChanged{
			LeagueId:  e.league.ID,
			Status:    models.LeagueStatusActive,
			AuctionId: e.auction.ID,
		})
	} else {
		e.pub.PublishRoom(room, comm.EventLotStarted, comm.LotStarted{
			AuctionId:   e.auction.ID,
			Lot:         e.auction.CurrentLot,
			ClubId:      e.auction.CurrentClubID,
			TimerEndsAt: *e.auction.TimerEndsAt,
		})
	}

	return nil
}

func (e *Engine) pause(userID int64) error {
	if userID != e.league.CommissionerID {
		return apperr.Forbidden("only the league commissioner can pause the auction")
	}
	if e.auction.Status != models.AuctionActive {
		return apperr.Validation("auction is not active")
	}

	remaining := int64(0)
	if e.auction.TimerEndsAt != nil {
		remaining = e.auction.TimerEndsAt.Sub(e.clock.Now()).Milliseconds()
		if remaining < 0 {
			remaining = 0
		}
	}

	next := *e.auction
	next.Status = models.AuctionPaused
	next.PausedMs = remaining
	next.TimerEndsAt = nil

	if err := e.persist(&next); err != nil {
		return err
	}

	*e.auction = next
	e.stopTimers()

	e.pub.PublishRoom(comm.AuctionRoom(e.auction.ID), comm.EventAuctionPaused, comm.AuctionStatusEvent{
		AuctionId:        e.auction.ID,
		Status:           models.AuctionPaused,
		RemainingSeconds: remaining / 1000,
	})

	return nil
}

func (e *Engine) resume(userID int64) error {
	if userID != e.league.CommissionerID {
		return apperr.Forbidden("only the league commissioner can resume the auction")
	}
	if e.auction.Status != models.AuctionPaused {
		return apperr.Validation("auction is not paused")
	}

	remaining := time.Duration(e.auction.PausedMs) * time.Millisecond
	ends := e.clock.Now().Add(remaining)
	next := *e.auction
	next.Status = models.AuctionActive
	next.TimerEndsAt = &ends
	next.PausedMs = 0

	if err := e.persist(&next); err != nil {
		return err
	}

	*e.auction = next
	e.armTimer(remaining)

	e.pub.PublishRoom(comm.AuctionRoom(e.auction.ID), comm.EventAuctionResumed, comm.AuctionStatusEvent{
		AuctionId:        e.auction.ID,
		Status:           models.AuctionActive,
		RemainingSeconds: int64(remaining.Seconds()),
	})

	return nil
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Auction:    *e.auction,
		ServerTime: e.clock.Now(),
	}

	if e.highest != nil {
		b := *e.highest
		snap.HighestBid = &b
	}

	if e.auction.Status == models.AuctionPaused {
		snap.RemainingSeconds = e.auction.PausedMs / 1000
	} else if e.auction.TimerEndsAt != nil {
		r := e.auction.TimerEndsAt.Sub(e.clock.Now())
		if r > 0 {
			snap.RemainingSeconds = int64(r.Seconds())
		}
	}

	for _, p := range e.participants {
		snap.Participants = append(snap.Participants, *p)
	}
	sort.Slice(snap.Participants, func(i, j int) bool {
		return snap.Participants[i].ID < snap.Participants[j].ID
	})

	return snap
}

func (e *Engine) broadcastTick() {
	if e.auction.Status != models.AuctionActive || e.auction.TimerEndsAt == nil {
		return
	}

	remaining := e.auction.TimerEndsAt.Sub(e.clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	tick := comm.TickEvent{
		AuctionId:        e.auction.ID,
		Lot:              e.auction.CurrentLot,
		RemainingSeconds: int64(remaining.Seconds()),
	}
	room := comm.AuctionRoom(e.auction.ID)
	e.pub.PublishRoom(room, comm.EventTick, tick)
	e.pub.PublishRoom(room, comm.EventTimerUpdate, tick)
}

// allRostersFull checks every roster, substituting the not-yet-committed
// winner copy when passed one.
func (e *Engine) allRostersFull(updated *models.Participant) bool {
	for _, p := range e.participants {
		if updated != nil && p.UserID == updated.UserID {
			p = updated
		}
		if len(p.ClubsWon) < e.league.ClubSlots {
			return false
		}
	}
	return len(e.participants) > 0
}

// armTimer replaces the lot deadline timer and makes sure the 1s tick
// broadcaster is running.
func (e *Engine) armTimer(d time.Duration) {
	if d < 0 {
		d = 0
	}

	if e.lotTimer != nil {
		stopAndDrainTimer(e.lotTimer)
	}
	e.lotTimer = e.clock.NewTimer(d)
	e.timerCh = e.lotTimer.Chan()

	if e.ticker == nil {
		e.ticker = e.clock.NewTicker(time.Second)
		e.tickCh = e.ticker.Chan()
	}
}

func (e *Engine) stopTimers() {
	if e.lotTimer != nil {
		stopAndDrainTimer(e.lotTimer)
		e.lotTimer = nil
		e.timerCh = nil
	}
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
		e.tickCh = nil
	}
}

// stopAndDrainTimer stops a timer and drains its channel so a stale fire is
// never consumed by the loop.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (e *Engine) persist(a *models.Auction) error {
	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
	defer cancel()
	if err := e.auctions.SaveState(ctx, a); err != nil {
		log.Errorf("Error persisting auction %d state: %v", a.ID, err)
		return err
	}
	return nil
}
