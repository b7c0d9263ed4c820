package broker

import (
	"encoding/json"

	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Writer is the piece of the ws package the broker needs: look up one
// socket, or every socket in a room, and push a message down the wire.
type Writer interface {
	WriteJSON(v interface{}) error
}

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (Writer, bool)
	GetRoomSockets func(string) ([]string, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (Writer, bool), fncGetRoomSockets func(string) ([]string, bool)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
	}
}

// Subscribe consumes room events from the api service.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Publish sends a message to the api service.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages delivers a room event either to the single socket it
// targets (snapshot replies) or to every socket joined to the room.
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := &comm.RoomEvent{}
	if err := json.Unmarshal(msgNats.Data, event); err != nil {
		log.Errorf("Error %s", err)
		return
	}

	msg := &comm.WSMessage{Type: event.Type, Data: event.Data}

	if event.SocketId != "" {
		b.sendToSocket(event.SocketId, msg)
		return
	}

	sockets, ok := b.GetRoomSockets(event.Room)
	if !ok {
		return
	}
	for _, socketId := range sockets {
		b.sendToSocket(socketId, msg)
	}
}

func (b *Broker) sendToSocket(socketId string, m *comm.WSMessage) {
	conn, ok := b.GetConnection(socketId)
	if !ok {
		return
	}
	if err := conn.WriteJSON(m); err != nil {
		log.Errorf("Error writing to socket %s: %s", socketId, err)
	}
}
