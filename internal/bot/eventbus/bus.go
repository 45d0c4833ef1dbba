// Copyright (c) 2025 HYPR. PTE. LTD.
//
// Business Source License 1.1
// See LICENSE file in the project root for details.

package eventbus

import "context"

// Bus distributes bot events to in-process subscribers such as the SSE and
// websocket streams.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, ch chan<- any) (unsubscribe func(), err error)
}

// Nop discards everything published to it.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

func (Nop) Subscribe(string, chan<- any) (func(), error) { return func() {}, nil }
