package broker

import (
	"context"
	"sync"
	"time"
)

// InMemoryBroker delivers messages to subscribers in the same process.
// Every subscription receives every message published after it was made.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	offsets     map[string]int64
	closed      bool
}

// subscription is one subscriber channel. sendMu serializes sends with
// closing ch; done unblocks a send waiting on a full channel.
type subscription struct {
	ch       chan Message
	done     chan struct{}
	stopOnce sync.Once
	sendMu   sync.Mutex
	closed   bool
}

func newSubscription() *subscription {
	return &subscription{
		ch:   make(chan Message, 100),
		done: make(chan struct{}),
	}
}

func (s *subscription) send(ctx context.Context, msg Message) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		s.closed = true
		close(s.ch)
	})
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscription),
		offsets:     make(map[string]int64),
	}
}

// Publish delivers value to every current subscriber of topic. A send to a
// full channel waits until the subscriber reads, unsubscribes or ctx ends.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    b.offsets[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.offsets[topic]++
	subs := append([]*subscription(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, s := range subs {
		if err := s.send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a buffered channel for topic. groupID is ignored.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	s := newSubscription()
	b.subscribers[topic] = append(b.subscribers[topic], s)

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, s)
		case <-s.done:
		}
	}()

	return s.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, s *subscription) {
	b.mu.Lock()
	subs := b.subscribers[topic]
	for i, c := range subs {
		if c == s {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	s.stop()
}

// Close closes every subscription channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var all []*subscription
	for topic, subs := range b.subscribers {
		all = append(all, subs...)
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	return nil
}
