// Copyright (c) 2025 HYPR. PTE. LTD.
//
// Business Source License 1.1
// See LICENSE file in the project root for details.

package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
)

// Bus fans events out to subscriber channels. Slow subscribers lose events
// rather than stall the bot worker.
type Bus struct {
	mu      sync.RWMutex
	topics  map[string][]chan<- any
	dropped atomic.Int64
}

var _ eventbus.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{topics: make(map[string][]chan<- any)}
}

// Publish delivers payload to every subscriber with room in its buffer.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.topics[topic] {
		select {
		case ch <- payload:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers ch for topic. The returned func removes it and may be
// called more than once.
func (b *Bus) Subscribe(topic string, ch chan<- any) (func(), error) {
	if ch == nil {
		return nil, errors.New("eventbus: channel must not be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], ch)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.topics[topic]
			for i := range subs {
				if subs[i] == ch {
					b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
		})
	}, nil
}

// Subscribers returns the number of channels registered for topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }
