// services/live_updates_redis.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisHub is the broker-backed LiveUpdateHub for multi-replica deployments:
// a subscriber on any replica sees moves committed on any other, because
// events travel through Redis Pub/Sub instead of process memory.
type RedisHub struct {
	rdb *redis.Client
}

func NewRedisHub(rdb *redis.Client) *RedisHub {
	return &RedisHub{rdb: rdb}
}

func gameChannel(gameID uint) string {
	return fmt.Sprintf("game:updates:%d", gameID)
}

func (h *RedisHub) Subscribe(gameID uint) (<-chan []byte, func()) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := h.rdb.Subscribe(ctx, gameChannel(gameID))

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				// slow subscriber, drop
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
		cancelCtx()
	}
	return out, cancel
}

// Publish is best-effort: a broker hiccup is logged, never surfaced to the
// move that produced the event.
func (h *RedisHub) Publish(gameID uint, event MoveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), gameChannel(gameID), data).Err(); err != nil {
		log.Printf("live update publish failed for game %d: %v", gameID, err)
	}
}
