package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomMembership(t *testing.T) {
	s := NewWs()

	s.joinRoom("sock-a", "league:1")
	s.joinRoom("sock-a", "auction:5")
	s.joinRoom("sock-b", "league:1")
	s.joinRoom("sock-c", "league:2")

	sockets, ok := s.GetRoomSockets("league:1")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"sock-a", "sock-b"}, sockets)

	sockets, ok = s.GetRoomSockets("auction:5")
	assert.True(t, ok)
	assert.Equal(t, []string{"sock-a"}, sockets)

	_, ok = s.GetRoomSockets("auction:99")
	assert.False(t, ok)
}

func TestLeaveRoom(t *testing.T) {
	s := NewWs()

	s.joinRoom("sock-a", "league:1")
	s.joinRoom("sock-a", "auction:5")
	s.leaveRoom("sock-a", "league:1")

	_, ok := s.GetRoomSockets("league:1")
	assert.False(t, ok)

	sockets, ok := s.GetRoomSockets("auction:5")
	assert.True(t, ok)
	assert.Equal(t, []string{"sock-a"}, sockets)
}

func TestDisconnectLeavesAllRooms(t *testing.T) {
	s := NewWs()

	s.joinRoom("sock-a", "league:1")
	s.joinRoom("sock-a", "auction:5")
	s.HandleDisconnect("sock-a")

	_, ok := s.GetRoomSockets("league:1")
	assert.False(t, ok)
	_, ok = s.GetRoomSockets("auction:5")
	assert.False(t, ok)
	_, ok = s.GetConnection("sock-a")
	assert.False(t, ok)
}

func TestParseRoom(t *testing.T) {
	cases := []struct {
		room     string
		wantKind string
		wantID   int64
		wantOK   bool
	}{
		{"league:12", "league", 12, true},
		{"auction:7", "auction", 7, true},
		{"league:", "", 0, false},
		{"league:0", "", 0, false},
		{"game:3", "", 0, false},
		{"league", "", 0, false},
		{"auction:abc", "", 0, false},
	}

	for _, tc := range cases {
		kind, id, ok := parseRoom(tc.room)
		assert.Equal(t, tc.wantOK, ok, tc.room)
		if tc.wantOK {
			assert.Equal(t, tc.wantKind, kind, tc.room)
			assert.Equal(t, tc.wantID, id, tc.room)
		}
	}
}
