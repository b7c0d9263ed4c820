package broker

import (
	"encoding/json"
	"testing"

	"github.com/friendsofpifa/pifa-services/internal/comm"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []*comm.WSMessage
}

func (w *fakeWriter) WriteJSON(v interface{}) error {
	w.messages = append(w.messages, v.(*comm.WSMessage))
	return nil
}

func roomEventMsg(t *testing.T, event comm.RoomEvent) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &nats.Msg{Data: data}
}

func TestFanOutToRoomSockets(t *testing.T) {
	writers := map[string]*fakeWriter{
		"sock-a": {},
		"sock-b": {},
		"sock-c": {},
	}

	b := &Broker{
		GetConnection: func(id string) (Writer, bool) {
			w, ok := writers[id]
			return w, ok
		},
		GetRoomSockets: func(room string) ([]string, bool) {
			if room == "auction:7" {
				return []string{"sock-a", "sock-b"}, true
			}
			return nil, false
		},
	}

	b.handleMessages(roomEventMsg(t, comm.RoomEvent{
		Room: "auction:7",
		Type: comm.EventBidUpdate,
		Data: json.RawMessage(`{"amount": 2000000}`),
	}))

	require.Len(t, writers["sock-a"].messages, 1)
	require.Len(t, writers["sock-b"].messages, 1)
	assert.Empty(t, writers["sock-c"].messages, "sockets outside the room must not receive the event")

	msg := writers["sock-a"].messages[0]
	assert.Equal(t, comm.EventBidUpdate, msg.Type)
	assert.JSONEq(t, `{"amount": 2000000}`, string(msg.Data))
}

func TestTargetedEventSkipsRoomFanOut(t *testing.T) {
	writers := map[string]*fakeWriter{
		"sock-a": {},
		"sock-b": {},
	}

	b := &Broker{
		GetConnection: func(id string) (Writer, bool) {
			w, ok := writers[id]
			return w, ok
		},
		GetRoomSockets: func(room string) ([]string, bool) {
			t.Fatal("targeted events must not fan out")
			return nil, false
		},
	}

	b.handleMessages(roomEventMsg(t, comm.RoomEvent{
		Room:     "auction:7",
		Type:     comm.EventSyncState,
		Data:     json.RawMessage(`{}`),
		SocketId: "sock-b",
	}))

	assert.Empty(t, writers["sock-a"].messages)
	require.Len(t, writers["sock-b"].messages, 1)
	assert.Equal(t, comm.EventSyncState, writers["sock-b"].messages[0].Type)
}

func TestUnknownSocketIsIgnored(t *testing.T) {
	b := &Broker{
		GetConnection: func(id string) (Writer, bool) { return nil, false },
		GetRoomSockets: func(room string) ([]string, bool) {
			return []string{"gone"}, true
		},
	}

	// must not panic
	b.handleMessages(roomEventMsg(t, comm.RoomEvent{
		Room: "league:1",
		Type: comm.EventMemberJoined,
		Data: json.RawMessage(`{}`),
	}))
}
