package engine

import (
	"sync"
)

// Hub tracks the live auction actors by auction id. Engines are added when
// an auction is started or restored at boot, and removed when the auction is
// deleted.
type Hub struct {
	mu      sync.RWMutex
	engines map[int64]*Engine
}

func NewHub() *Hub {
	return &Hub{engines: make(map[int64]*Engine)}
}

func (h *Hub) Add(e *Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engines[e.AuctionID()] = e
}

// Get returns the actor for an auction, or nil when none is live.
func (h *Hub) Get(auctionID int64) *Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engines[auctionID]
}

// GetByLeague finds the live actor for a league's open auction.
func (h *Hub) GetByLeague(leagueID int64) *Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.engines {
		if e.LeagueID() == leagueID {
			return e
		}
	}
	return nil
}

// Remove stops the actor and forgets it.
func (h *Hub) Remove(auctionID int64) {
	h.mu.Lock()
	e := h.engines[auctionID]
	delete(h.engines, auctionID)
	h.mu.Unlock()

	if e != nil {
		e.Inbox() <- Shutdown{}
	}
}

// Close stops every actor, for graceful shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, e := range h.engines {
		e.Inbox() <- Shutdown{}
		delete(h.engines, id)
	}
}
