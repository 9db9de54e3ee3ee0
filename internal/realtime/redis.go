package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"sharelist/api/internal/store"
)

const subscriberBuffer = 32

// RedisHub publishes through Redis pub/sub so every API replica can serve
// the stream of any list.
type RedisHub struct {
	client *redis.Client
	prefix string
}

func NewRedisHub(client *redis.Client) *RedisHub {
	return &RedisHub{client: client, prefix: "sharelist:list:"}
}

func (h *RedisHub) channel(listID int64) string {
	return fmt.Sprintf("%s%d", h.prefix, listID)
}

func (h *RedisHub) Publish(ctx context.Context, entry store.ActivityEntry) error {
	messages, err := Messages(entry)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msg.Event, err)
		}
		if err := h.client.Publish(ctx, h.channel(msg.ListID), payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Event, err)
		}
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, listID int64) (*Subscription, error) {
	ps := h.client.Subscribe(ctx, h.channel(listID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe list %d: %w", listID, err)
	}

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		for raw := range ps.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("realtime: drop malformed message on %s: %v", raw.Channel, err)
				continue
			}
			select {
			case out <- msg:
			default:
				log.Printf("realtime: slow subscriber on list %d, dropped %s", listID, msg.Event)
			}
		}
	}()

	return &Subscription{C: out, close: ps.Close}, nil
}
