package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
)

// DefaultChannelPrefix namespaces the Redis channels events are published on.
const DefaultChannelPrefix = "harbor"

const defaultDialTimeout = 5 * time.Second

// Envelope is the wire form of an event published to Redis.
type Envelope struct {
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewRedisClient connects to a single Redis node and checks it answers.
func NewRedisClient(ctx context.Context, addr string) (goredis.UniversalClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        []string{addr},
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultDialTimeout,
		WriteTimeout: defaultDialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisEmitter publishes events as JSON envelopes on "<prefix>:<name>".
type RedisEmitter struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisEmitter creates an emitter publishing through client. An empty
// prefix uses DefaultChannelPrefix.
func NewRedisEmitter(client goredis.UniversalClient, prefix string) *RedisEmitter {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisEmitter{client: client, prefix: prefix, now: time.Now}
}

// Channel returns the Redis channel used for the named event.
func (r *RedisEmitter) Channel(name string) string {
	return r.prefix + ":" + name
}

func (r *RedisEmitter) Emit(ctx context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}
	msg, err := json.Marshal(Envelope{Name: name, Timestamp: r.now().UTC(), Payload: body})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", name, err)
	}
	if err := r.client.Publish(ctx, r.Channel(name), msg).Err(); err != nil {
		return fmt.Errorf("publish %s to redis: %w", name, err)
	}
	return nil
}

// Subscribe delivers envelopes for the given event names (all events when
// none are given) to handler until ctx is done.
func (r *RedisEmitter) Subscribe(ctx context.Context, handler func(Envelope), names ...string) error {
	var sub *goredis.PubSub
	if len(names) == 0 {
		sub = r.client.PSubscribe(ctx, r.prefix+":*")
	} else {
		channels := make([]string, len(names))
		for i, n := range names {
			channels[i] = r.Channel(n)
		}
		sub = r.client.Subscribe(ctx, channels...)
	}
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to redis: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logging.Warn("dropping malformed event", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Name == "" {
				env.Name = strings.TrimPrefix(msg.Channel, r.prefix+":")
			}
			handler(env)
		}
	}
}
