package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/models"
	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pubEvent struct {
	room    string
	typ     string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []pubEvent
}

func (f *fakePublisher) PublishRoom(room, eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, pubEvent{room: room, typ: eventType, payload: payload})
}

func (f *fakePublisher) ofType(eventType string) []pubEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []pubEvent
	for _, e := range f.events {
		if e.typ == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeAuctionStore struct {
	mu        sync.Mutex
	saves     int
	saveErr   error
	settleErr error
	settled   []*models.LotResult
}

func (f *fakeAuctionStore) SaveState(ctx context.Context, a *models.Auction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		err := f.saveErr
		f.saveErr = nil
		return err
	}
	f.saves++
	return nil
}

func (f *fakeAuctionStore) SettleLot(ctx context.Context, a *models.Auction, result *models.LotResult, winner *models.Participant, leagueStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settleErr != nil {
		err := f.settleErr
		f.settleErr = nil
		return err
	}
	r := *result
	f.settled = append(f.settled, &r)
	return nil
}

func (f *fakeAuctionStore) failNextSave(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func (f *fakeAuctionStore) failNextSettle(err error) {
	f.mu.Lock()
	f.settleErr = err
	f.mu.Unlock()
}

func (f *fakeAuctionStore) settledLots() []*models.LotResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.LotResult(nil), f.settled...)
}

type fakeBidStore struct {
	mu     sync.Mutex
	nextID int64
	bids   []*models.Bid
}

func (f *fakeBidStore) InsertBid(ctx context.Context, b *models.Bid) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now()
	f.bids = append(f.bids, b)
	return b, nil
}

type testRig struct {
	engine   *Engine
	clock    *clockwork.FakeClock
	pub      *fakePublisher
	auctions *fakeAuctionStore
	bids     *fakeBidStore
	league   *models.League
}

const (
	commissionerID = int64(1)
	managerID      = int64(2)
)

func newTestRig(t *testing.T, clubQueue []int64) *testRig {
	t.Helper()

	league := &models.League{
		ID:               10,
		Name:             "Prem Pals",
		CommissionerID:   commissionerID,
		Budget:           150_000_000,
		MinManagers:      2,
		MaxManagers:      8,
		ClubSlots:        3,
		SportKey:         "football",
		TimerSeconds:     30,
		AntiSnipeSeconds: 10,
		Status:           models.LeagueStatusAuction,
	}

	auction := &models.Auction{
		ID:        77,
		LeagueID:  league.ID,
		Status:    models.AuctionWaiting,
		ClubQueue: clubQueue,
	}

	participants := []*models.Participant{
		{ID: 100, LeagueID: league.ID, UserID: commissionerID, UserName: "Alice", BudgetRemaining: league.Budget},
		{ID: 101, LeagueID: league.ID, UserID: managerID, UserName: "Bob", BudgetRemaining: league.Budget},
	}

	clock := clockwork.NewFakeClock()
	pub := &fakePublisher{}
	auctions := &fakeAuctionStore{}
	bids := &fakeBidStore{}

	e := NewEngine(context.Background(), clock, pub, auctions, bids, league, auction, participants, nil)
	t.Cleanup(func() { e.Inbox() <- Shutdown{} })

	return &testRig{engine: e, clock: clock, pub: pub, auctions: auctions, bids: bids, league: league}
}

func (r *testRig) begin(userID int64) error {
	reply := make(chan error, 1)
	r.engine.Inbox() <- Begin{UserID: userID, Reply: reply}
	return <-reply
}

func (r *testRig) bid(userID, amount int64) (*models.Bid, error) {
	reply := make(chan PlaceBidReply, 1)
	r.engine.Inbox() <- PlaceBid{UserID: userID, Amount: amount, Reply: reply}
	res := <-reply
	return res.Bid, res.Err
}

func (r *testRig) completeLot(userID int64) error {
	reply := make(chan error, 1)
	r.engine.Inbox() <- CompleteLot{UserID: userID, Reply: reply}
	return <-reply
}

func (r *testRig) pause(userID int64) error {
	reply := make(chan error, 1)
	r.engine.Inbox() <- Pause{UserID: userID, Reply: reply}
	return <-reply
}

func (r *testRig) resume(userID int64) error {
	reply := make(chan error, 1)
	r.engine.Inbox() <- Resume{UserID: userID, Reply: reply}
	return <-reply
}

func (r *testRig) snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	r.engine.Inbox() <- GetSnapshot{Reply: reply}
	return <-reply
}

func TestBeginRequiresCommissioner(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})

	err := rig.begin(managerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commissioner")

	require.NoError(t, rig.begin(commissionerID))

	snap := rig.snapshot()
	assert.Equal(t, models.AuctionActive, snap.Auction.Status)
	assert.Equal(t, 1, snap.Auction.CurrentLot)
	assert.Equal(t, int64(501), snap.Auction.CurrentClubID)
	assert.Equal(t, int64(30), snap.RemainingSeconds)

	require.Len(t, rig.pub.ofType(comm.EventLotStarted), 1)
	require.Len(t, rig.pub.ofType(comm.EventSyncState), 1)
}

func TestBidBeforeBeginRejected(t *testing.T) {
	rig := newTestRig(t, []int64{501})

	_, err := rig.bid(managerID, 5_000_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestMinimumBid(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 999_999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "£1,000,000")

	_, err = rig.bid(managerID, models.MinBid)
	require.NoError(t, err)
}

func TestEqualBidRejected(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 2_000_000)
	require.NoError(t, err)

	// a matching amount is not higher, first bidder keeps the lot
	_, err = rig.bid(commissionerID, 2_000_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "higher than the current highest bid")

	_, err = rig.bid(commissionerID, 2_000_001)
	require.NoError(t, err)
}

func TestBidSequenceIsGapFree(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	amount := models.MinBid
	users := []int64{managerID, commissionerID}
	for i := 0; i < 6; i++ {
		bid, err := rig.bid(users[i%2], amount)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), bid.Seq)
		amount += 500_000
	}

	snap := rig.snapshot()
	assert.Equal(t, int64(6), snap.Auction.BidSequence)
}

func TestBudgetReserve(t *testing.T) {
	// 150M budget, 3 slots, no clubs won: two unfilled slots after this one
	// must keep £1,000,000 each, so 148M is the ceiling.
	rig := newTestRig(t, []int64{501, 502, 503})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 149_000_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget reserve")
	assert.Contains(t, err.Error(), "£148,000,000")

	bid, err := rig.bid(managerID, 148_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(148_000_000), bid.Amount)
}

func TestAntiSnipeExtendsDeadline(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	before := rig.snapshot()
	deadline := *before.Auction.TimerEndsAt

	// land the bid with 5s left, inside the 10s snipe window
	rig.clock.Advance(25 * time.Second)
	_, err := rig.bid(managerID, models.MinBid)
	require.NoError(t, err)

	after := rig.snapshot()
	require.NotNil(t, after.Auction.TimerEndsAt)
	assert.Equal(t, deadline.Add(10*time.Second), *after.Auction.TimerEndsAt)

	events := rig.pub.ofType(comm.EventAntiSnipe)
	require.Len(t, events, 1)
	snipe := events[0].payload.(comm.AntiSnipeEvent)
	assert.Equal(t, int64(77), snipe.AuctionId)
	assert.Equal(t, 1, snipe.Lot)
}

func TestEarlyBidDoesNotExtendDeadline(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	before := rig.snapshot()
	deadline := *before.Auction.TimerEndsAt

	rig.clock.Advance(5 * time.Second)
	_, err := rig.bid(managerID, models.MinBid)
	require.NoError(t, err)

	after := rig.snapshot()
	assert.Equal(t, deadline, *after.Auction.TimerEndsAt)
	assert.Empty(t, rig.pub.ofType(comm.EventAntiSnipe))
}

func TestCompleteLotSellsToHighestBidder(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 20_000_000)
	require.NoError(t, err)

	require.NoError(t, rig.completeLot(commissionerID))

	snap := rig.snapshot()
	assert.Equal(t, 2, snap.Auction.CurrentLot)
	assert.Equal(t, int64(502), snap.Auction.CurrentClubID)
	assert.Nil(t, snap.HighestBid, "highest bid must reset for the new lot")

	var bob models.Participant
	for _, p := range snap.Participants {
		if p.UserID == managerID {
			bob = p
		}
	}
	assert.Equal(t, int64(130_000_000), bob.BudgetRemaining)
	assert.Equal(t, int64(20_000_000), bob.TotalSpent)
	assert.Equal(t, []int64{501}, bob.ClubsWon)

	soldEvents := rig.pub.ofType(comm.EventSold)
	require.Len(t, soldEvents, 1)
	sold := soldEvents[0].payload.(comm.SoldEvent)
	assert.False(t, sold.Unsold)
	assert.Equal(t, managerID, sold.Winner.UserId)
	assert.Equal(t, int64(20_000_000), sold.Amount)

	settled := rig.auctions.settledLots()
	require.Len(t, settled, 1)
	assert.Equal(t, models.LotSold, settled[0].Status)
	assert.Equal(t, managerID, settled[0].WinnerUserID)
}

func TestSettleFailureLeavesStateUntouched(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 20_000_000)
	require.NoError(t, err)

	rig.auctions.failNextSettle(errors.New("connection refused"))
	err = rig.completeLot(commissionerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// budgets, roster and the lot counter must not have moved
	snap := rig.snapshot()
	assert.Equal(t, 1, snap.Auction.CurrentLot)
	assert.Equal(t, int64(501), snap.Auction.CurrentClubID)
	require.NotNil(t, snap.HighestBid)
	assert.Equal(t, int64(20_000_000), snap.HighestBid.Amount)

	var bob models.Participant
	for _, p := range snap.Participants {
		if p.UserID == managerID {
			bob = p
		}
	}
	assert.Equal(t, rig.league.Budget, bob.BudgetRemaining)
	assert.Zero(t, bob.TotalSpent)
	assert.Empty(t, bob.ClubsWon)

	assert.Empty(t, rig.auctions.settledLots())
	assert.Empty(t, rig.pub.ofType(comm.EventSold))

	// the retry settles the same lot, not the next one
	require.NoError(t, rig.completeLot(commissionerID))

	settled := rig.auctions.settledLots()
	require.Len(t, settled, 1)
	assert.Equal(t, 1, settled[0].Lot)
	assert.Equal(t, models.LotSold, settled[0].Status)
	assert.Equal(t, managerID, settled[0].WinnerUserID)

	after := rig.snapshot()
	assert.Equal(t, 2, after.Auction.CurrentLot)
	for _, p := range after.Participants {
		if p.UserID == managerID {
			assert.Equal(t, int64(130_000_000), p.BudgetRemaining)
			assert.Equal(t, []int64{501}, p.ClubsWon)
		}
	}
}

func TestBeginPersistFailureKeepsWaiting(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})

	rig.auctions.failNextSave(errors.New("connection refused"))
	err := rig.begin(commissionerID)
	require.Error(t, err)

	snap := rig.snapshot()
	assert.Equal(t, models.AuctionWaiting, snap.Auction.Status)
	assert.Zero(t, snap.Auction.CurrentLot)
	assert.Empty(t, rig.pub.ofType(comm.EventLotStarted))

	require.NoError(t, rig.begin(commissionerID))
	assert.Equal(t, models.AuctionActive, rig.snapshot().Auction.Status)
}

func TestPausePersistFailureKeepsRunning(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	rig.clock.Advance(5 * time.Second)
	rig.auctions.failNextSave(errors.New("connection refused"))
	err := rig.pause(commissionerID)
	require.Error(t, err)

	snap := rig.snapshot()
	assert.Equal(t, models.AuctionActive, snap.Auction.Status)
	assert.Empty(t, rig.pub.ofType(comm.EventAuctionPaused))

	// the lot timer is still armed and resolves the lot on expiry
	rig.clock.Advance(26 * time.Second)
	require.Eventually(t, func() bool {
		return len(rig.auctions.settledLots()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCompleteLotWithoutBidsIsUnsold(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	require.NoError(t, rig.completeLot(commissionerID))

	soldEvents := rig.pub.ofType(comm.EventSold)
	require.Len(t, soldEvents, 1)
	assert.True(t, soldEvents[0].payload.(comm.SoldEvent).Unsold)

	settled := rig.auctions.settledLots()
	require.Len(t, settled, 1)
	assert.Equal(t, models.LotUnsold, settled[0].Status)
	assert.Zero(t, settled[0].WinnerUserID)
}

func TestCompleteLotRequiresCommissioner(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	err := rig.completeLot(managerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commissioner")
}

func TestTimerExpiryResolvesLot(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 5_000_000)
	require.NoError(t, err)

	rig.clock.Advance(31 * time.Second)

	require.Eventually(t, func() bool {
		return len(rig.auctions.settledLots()) == 1
	}, time.Second, 5*time.Millisecond)

	snap := rig.snapshot()
	assert.Equal(t, 2, snap.Auction.CurrentLot)

	settled := rig.auctions.settledLots()
	assert.Equal(t, models.LotSold, settled[0].Status)
	assert.Equal(t, managerID, settled[0].WinnerUserID)
}

func TestQueueExhaustionCompletesAuction(t *testing.T) {
	rig := newTestRig(t, []int64{501})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 3_000_000)
	require.NoError(t, err)

	require.NoError(t, rig.completeLot(commissionerID))

	snap := rig.snapshot()
	assert.Equal(t, models.AuctionCompleted, snap.Auction.Status)
	assert.Nil(t, snap.Auction.TimerEndsAt)

	statusEvents := rig.pub.ofType(comm.EventLeagueStatusChanged)
	require.Len(t, statusEvents, 1)
	changed := statusEvents[0].payload.(comm.LeagueStatusChanged)
	assert.Equal(t, models.LeagueStatusActive, changed.Status)
	assert.Equal(t, comm.LeagueRoom(10), statusEvents[0].room)

	// no further commands accepted
	_, err = rig.bid(managerID, 9_000_000)
	require.Error(t, err)
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	rig.clock.Advance(12 * time.Second)
	require.NoError(t, rig.pause(commissionerID))

	snap := rig.snapshot()
	assert.Equal(t, models.AuctionPaused, snap.Auction.Status)
	assert.Equal(t, int64(18), snap.RemainingSeconds)

	// a paused auction takes no bids and does not expire
	_, err := rig.bid(managerID, 5_000_000)
	require.Error(t, err)

	rig.clock.Advance(5 * time.Minute)
	assert.Empty(t, rig.auctions.settledLots())

	require.NoError(t, rig.resume(commissionerID))

	resumed := rig.snapshot()
	assert.Equal(t, models.AuctionActive, resumed.Auction.Status)
	assert.Equal(t, int64(18), resumed.RemainingSeconds)

	require.Len(t, rig.pub.ofType(comm.EventAuctionPaused), 1)
	require.Len(t, rig.pub.ofType(comm.EventAuctionResumed), 1)
}

func TestRosterFullRejectsBid(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502, 503, 504})
	require.NoError(t, rig.begin(commissionerID))

	// Bob wins the first three lots, filling his roster
	for lot := 0; lot < 3; lot++ {
		_, err := rig.bid(managerID, models.MinBid)
		require.NoError(t, err)
		require.NoError(t, rig.completeLot(commissionerID))
	}

	_, err := rig.bid(managerID, models.MinBid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster is already full")
}

func TestTickBroadcast(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	rig.clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return len(rig.pub.ofType(comm.EventTick)) >= 1
	}, time.Second, 5*time.Millisecond)

	ticks := rig.pub.ofType(comm.EventTick)
	tick := ticks[0].payload.(comm.TickEvent)
	assert.Equal(t, int64(77), tick.AuctionId)
	assert.True(t, tick.RemainingSeconds <= 29)
	require.NotEmpty(t, rig.pub.ofType(comm.EventTimerUpdate))
}

func TestBidEventPayload(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(managerID, 4_500_000)
	require.NoError(t, err)

	for _, typ := range []string{comm.EventBidUpdate, comm.EventBidPlaced} {
		events := rig.pub.ofType(typ)
		require.Len(t, events, 1, typ)

		ev := events[0].payload.(comm.BidEvent)
		assert.Equal(t, int64(77), ev.AuctionId)
		assert.Equal(t, 1, ev.LotId)
		assert.Equal(t, int64(501), ev.ClubId)
		assert.Equal(t, int64(4_500_000), ev.Amount)
		assert.Equal(t, managerID, ev.Bidder.UserId)
		assert.Equal(t, "Bob", ev.Bidder.DisplayName)
		assert.Equal(t, int64(1), ev.Seq)
		assert.Equal(t, comm.AuctionRoom(77), events[0].room)
	}
}

func TestNonParticipantCannotBid(t *testing.T) {
	rig := newTestRig(t, []int64{501, 502})
	require.NoError(t, rig.begin(commissionerID))

	_, err := rig.bid(999, models.MinBid)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not a participant"))
}
