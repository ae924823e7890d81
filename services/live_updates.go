// services/live_updates.go
package services

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// MoveEvent is what subscribers of a game's update stream receive after each
// committed move.
type MoveEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	GameID  uint   `json:"game_id"`
	Move    string `json:"move"`
	FEN     string `json:"fen"`
	Status  string `json:"status"`
	Whomst  uint   `json:"whomst"`
}

func NewMoveEvent(gameID uint, move, fen, status string, whomst uint) MoveEvent {
	return MoveEvent{
		EventID: uuid.NewString(),
		Type:    "move",
		GameID:  gameID,
		Move:    move,
		FEN:     fen,
		Status:  status,
		Whomst:  whomst,
	}
}

// LiveUpdateHub fans per-game move events out to stream subscribers. This is
// a live tail, not a durable log: publication is best-effort, there is no
// replay on reconnect, and a slow subscriber may miss events.
type LiveUpdateHub interface {
	// Subscribe returns a channel of serialized events for the game and a
	// cancel func that must be called when the subscriber goes away.
	Subscribe(gameID uint) (<-chan []byte, func())
	// Publish delivers the event to current subscribers without blocking.
	Publish(gameID uint, event MoveEvent)
}

// subscriber channel depth; beyond this, events are dropped for that
// subscriber rather than blocking the publisher.
const subscriberBuffer = 64

// MemoryHub is the single-process implementation: game id -> set of buffered
// channels. Only correct when exactly one server process runs; multi-replica
// deployments use RedisHub instead.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[uint]map[chan []byte]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[uint]map[chan []byte]struct{})}
}

func (h *MemoryHub) Subscribe(gameID uint) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	if _, ok := h.subs[gameID]; !ok {
		h.subs[gameID] = make(map[chan []byte]struct{})
	}
	h.subs[gameID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[gameID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, gameID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *MemoryHub) Publish(gameID uint, event MoveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[gameID] {
		select {
		case ch <- data:
		default:
			// slow subscriber, drop
		}
	}
}
