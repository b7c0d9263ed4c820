package ws

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/friendsofpifa/pifa-services/internal/socketsvc/broker"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// SocketConn wraps a websocket connection with a write lock, the read loop
// and the NATS fan-out goroutine both write to it.
type SocketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *SocketConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap sync.Map // socketId -> *SocketConn
	roomMap sync.Map // socketId -> map[string]bool, the rooms this socket joined
	roomMu  sync.Mutex
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "join_league":
		s.handleJoinLeague(socketId, message)
	case "join_auction":
		s.handleJoinAuction(socketId, message)
	case "rejoin_rooms":
		s.handleRejoinRooms(socketId, message)
	case "leave_room":
		s.handleLeaveRoom(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleJoinLeague(socketId string, msg *comm.WSMessage) {
	var payload struct {
		LeagueId int64 `json:"leagueId"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.LeagueId == 0 {
		log.Errorf("Error: malformed join_league payload %s", err)
		return
	}

	room := comm.LeagueRoom(payload.LeagueId)
	s.joinRoom(socketId, room)

	s.sendToSocket(socketId, comm.EventJoined, map[string]interface{}{
		"room":     room,
		"socketid": socketId,
	})

	s.requestSnapshot("league", payload.LeagueId, socketId)
}

func (s *Ws) handleJoinAuction(socketId string, msg *comm.WSMessage) {
	var payload struct {
		AuctionId int64 `json:"auctionId"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.AuctionId == 0 {
		log.Errorf("Error: malformed join_auction payload %s", err)
		return
	}

	room := comm.AuctionRoom(payload.AuctionId)
	s.joinRoom(socketId, room)

	s.sendToSocket(socketId, comm.EventRoomJoined, map[string]interface{}{
		"room":     room,
		"socketid": socketId,
	})

	s.requestSnapshot("auction", payload.AuctionId, socketId)
}

// handleRejoinRooms re-subscribes a reconnecting socket and replays the
// snapshot for every room it was in.
func (s *Ws) handleRejoinRooms(socketId string, msg *comm.WSMessage) {
	var payload struct {
		Rooms []string `json:"rooms"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed rejoin_rooms payload %s", err)
		return
	}

	for _, room := range payload.Rooms {
		kind, id, ok := parseRoom(room)
		if !ok {
			log.Warnf("rejoin_rooms: ignoring malformed room %q", room)
			continue
		}

		s.joinRoom(socketId, room)
		s.sendToSocket(socketId, comm.EventRoomJoined, map[string]interface{}{
			"room":     room,
			"socketid": socketId,
		})
		s.requestSnapshot(kind, id, socketId)
	}
}

func (s *Ws) handleLeaveRoom(socketId string, msg *comm.WSMessage) {
	var payload struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Room == "" {
		log.Errorf("Error: malformed leave_room payload %s", err)
		return
	}

	s.leaveRoom(socketId, payload.Room)
}

// parseRoom splits "league:12" / "auction:7" into kind and id.
func parseRoom(room string) (string, int64, bool) {
	parts := strings.SplitN(room, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	if parts[0] != "league" && parts[0] != "auction" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return parts[0], id, true
}

// requestSnapshot asks the api service for the room's current state; the
// answer comes back over room.events targeted at this socket.
func (s *Ws) requestSnapshot(kind string, id int64, socketId string) {
	req := comm.SnapshotRequest{Kind: kind, ID: id, SocketId: socketId}
	bytes, err := json.Marshal(req)
	if err != nil {
		log.Errorf("Failed to marshal snapshot request: %v", err)
		return
	}

	if err := s.Broker.Publish(comm.TopicApiService, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.TopicApiService, err)
	}
}

func (s *Ws) sendToSocket(socketId, eventType string, payload interface{}) {
	conn, ok := s.GetConnection(socketId)
	if !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Failed to marshal %s payload: %v", eventType, err)
		return
	}

	msg := &comm.WSMessage{Type: eventType, Data: data}
	if err := conn.WriteJSON(msg); err != nil {
		log.Errorf("Failed to write %s to socket %s: %v", eventType, socketId, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &SocketConn{conn: conn})
}

func (s *Ws) GetConnection(socketId string) (*SocketConn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*SocketConn), true
}

func (s *Ws) joinRoom(socketId string, room string) {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	var rooms map[string]bool
	if v, ok := s.roomMap.Load(socketId); ok {
		rooms = v.(map[string]bool)
	} else {
		rooms = make(map[string]bool)
		s.roomMap.Store(socketId, rooms)
	}
	rooms[room] = true

	log.Infof("socket %s joined room %s", socketId, room)
}

func (s *Ws) leaveRoom(socketId string, room string) {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	if v, ok := s.roomMap.Load(socketId); ok {
		delete(v.(map[string]bool), room)
	}
}

// GetRoomSockets lists every socket currently joined to the room.
func (s *Ws) GetRoomSockets(room string) ([]string, bool) {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	var sockets []string
	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(map[string]bool)[room] {
			sockets = append(sockets, key.(string))
		}
		return true
	})

	return sockets, len(sockets) > 0
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)

	s.roomMu.Lock()
	s.roomMap.Delete(socketId)
	s.roomMu.Unlock()
}
