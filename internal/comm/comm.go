package comm

import (
	"encoding/json"
	"fmt"
	"time"
)

// NATS topics shared by the api and socket services.
const (
	TopicRoomEvents = "room.events" // api -> socket, room scoped fan-out
	TopicApiService = "api.service" // socket -> api, snapshot requests
)

// Realtime event types delivered to web clients.
const (
	EventJoined              = "joined"
	EventRoomJoined          = "room_joined"
	EventMemberJoined        = "member_joined"
	EventSyncMembers         = "sync_members"
	EventSyncState           = "sync_state"
	EventBidUpdate           = "bid_update"
	EventBidPlaced           = "bid_placed"
	EventLotStarted          = "lot_started"
	EventSold                = "sold"
	EventTick                = "tick"
	EventTimerUpdate         = "timer_update"
	EventAntiSnipe           = "anti_snipe_triggered"
	EventAuctionPaused       = "auction_paused"
	EventAuctionResumed      = "auction_resumed"
	EventLeagueStatusChanged = "league_status_changed"
)

// LeagueRoom and AuctionRoom build the room names sockets subscribe to.
func LeagueRoom(leagueID int64) string  { return fmt.Sprintf("league:%d", leagueID) }
func AuctionRoom(auctionID int64) string { return fmt.Sprintf("auction:%d", auctionID) }

// WSMessage is the envelope exchanged with web clients over the socket.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "join_auction", "bid_update"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// RoomEvent travels over NATS from the api service to the socket service.
// A non-empty SocketId targets a single socket (snapshot replies); otherwise
// the event is fanned out to every socket joined to Room.
type RoomEvent struct {
	Room     string          `json:"room"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// SnapshotRequest is published by the socket service when a socket joins a
// room and needs the current state to catch up.
type SnapshotRequest struct {
	Kind     string `json:"kind"` // "league" or "auction"
	ID       int64  `json:"id"`
	SocketId string `json:"socketid"`
}

type Bidder struct {
	UserId      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
}

type BidEvent struct {
	AuctionId  int64     `json:"auctionId"`
	LotId      int       `json:"lotId"`
	ClubId     int64     `json:"clubId"`
	Amount     int64     `json:"amount"`
	Bidder     Bidder    `json:"bidder"`
	Seq        int64     `json:"seq"`
	ServerTime time.Time `json:"serverTime"`
}

type LotStarted struct {
	AuctionId   int64     `json:"auctionId"`
	Lot         int       `json:"lot"`
	ClubId      int64     `json:"clubId"`
	TimerEndsAt time.Time `json:"timerEndsAt"`
}

type SoldEvent struct {
	AuctionId int64  `json:"auctionId"`
	Lot       int    `json:"lot"`
	ClubId    int64  `json:"clubId"`
	Unsold    bool   `json:"unsold"`
	Winner    Bidder `json:"winner,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

type TickEvent struct {
	AuctionId        int64 `json:"auctionId"`
	Lot              int   `json:"lot"`
	RemainingSeconds int64 `json:"remainingSeconds"`
}

type AntiSnipeEvent struct {
	AuctionId   int64     `json:"auctionId"`
	Lot         int       `json:"lot"`
	TimerEndsAt time.Time `json:"timerEndsAt"`
}

type AuctionStatusEvent struct {
	AuctionId        int64  `json:"auctionId"`
	Status           string `json:"status"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
}

type MemberJoined struct {
	LeagueId int64  `json:"leagueId"`
	UserId   int64  `json:"userId"`
	UserName string `json:"userName"`
}

type LeagueStatusChanged struct {
	LeagueId  int64  `json:"leagueId"`
	Status    string `json:"status"`
	AuctionId int64  `json:"auctionId,omitempty"`
}
