// Package notify broadcasts record-change events to subscribers. Consumers
// are expected to re-derive their views on any event rather than patch state
// from the payload.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KindRecordsChanged is published after every successful store mutation.
const KindRecordsChanged = "students:updated"

// Event is the typed change notification.
type Event struct {
	Kind        string    `json:"kind"`
	Action      string    `json:"action,omitempty"`
	StudentID   string    `json:"studentId,omitempty"`
	StudentName string    `json:"studentName,omitempty"`
	At          time.Time `json:"at"`
}

// Broker is the abstraction over different backends.
type Broker interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe returns a channel of events; it closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// InMemory fans events out to in-process subscribers.
type InMemory struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

// NewInMemory creates an empty broker.
func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[string]chan Event)}
}

// Publish delivers the event to every subscriber. Slow subscribers drop
// events instead of blocking the writer; a dropped event is safe because a
// later event forces the same re-derivation.
func (b *InMemory) Publish(_ context.Context, evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber removed when ctx is done.
func (b *InMemory) Subscribe(ctx context.Context) (<-chan Event, error) {
	id := uuid.NewString()
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Redis bridges events over redis pub/sub so separate dashboard instances
// sharing one blob store all see the change.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis builds a broker on the given pub/sub channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = "studentdesk:events"
	}
	return &Redis{client: client, channel: channel}
}

// Publish sends the event as JSON.
func (b *Redis) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe streams events until ctx is done. Messages that fail to decode
// are skipped.
func (b *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		in := sub.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
