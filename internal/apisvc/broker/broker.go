package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/friendsofpifa/pifa-services/internal/apisvc/service"
	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker publishes room events to the socket service and answers its
// snapshot requests. Publish failures are logged, never surfaced to the
// request that produced the event.
type Broker struct {
	Conn           *nats.Conn
	LeagueService  *service.LeagueService
	AuctionService *service.AuctionService
}

func NewBroker(nc *nats.Conn) *Broker {
	return &Broker{Conn: nc}
}

// PublishRoom implements engine.Publisher. Events with an empty socket id
// fan out to the whole room.
func (b *Broker) PublishRoom(room, eventType string, payload interface{}) {
	b.publishTo(room, eventType, payload, "")
}

func (b *Broker) publishTo(room, eventType string, payload interface{}, socketId string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Error marshaling %s payload: %s", eventType, err)
		return
	}

	event := &comm.RoomEvent{
		Room:     room,
		Type:     eventType,
		Data:     data,
		SocketId: socketId,
	}

	raw, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error marshaling room event: %s", err)
		return
	}

	if err := b.Conn.Publish(comm.TopicRoomEvents, raw); err != nil {
		log.Errorf("Error publishing %s to %s: %s", eventType, room, err)
	}
}

// SubscribeSocketService listens for snapshot requests from the socket
// service.
func (b *Broker) SubscribeSocketService() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(comm.TopicApiService, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	req := &comm.SnapshotRequest{}
	if err := json.Unmarshal(msgNat.Data, req); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch req.Kind {
	case "league":
		participants, err := b.LeagueService.Participants(ctx, req.ID)
		if err != nil {
			log.Errorf("Error [LeagueService.Participants] %s", err)
			return
		}
		b.publishTo(comm.LeagueRoom(req.ID), comm.EventSyncMembers, participants, req.SocketId)
	case "auction":
		snap, err := b.AuctionService.Snapshot(ctx, req.ID)
		if err != nil {
			log.Errorf("Error [AuctionService.Snapshot] %s", err)
			return
		}
		b.publishTo(comm.AuctionRoom(req.ID), comm.EventSyncState, snap, req.SocketId)
	default:
		log.Warnf("unknown snapshot request kind %q", req.Kind)
	}
}
