package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// LocalPubSub is an in-process fan-out pub/sub. Subscribers that fall
// behind lose messages rather than block publishers.
type LocalPubSub struct {
	mu      sync.RWMutex
	nextID  int64
	subs    map[string]map[int64]chan *LocalMessage
	bufSize int
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subs:    make(map[string]map[int64]chan *LocalMessage),
		bufSize: bufSize,
	}
}

// Publish delivers a message to every current subscriber of channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, ch := range ps.subs[channel] {
		select {
		case ch <- msg:
		default:
			// full buffer drops, never blocks
		}
	}
	return nil
}

// Subscribe registers one receive channel across the given channels.
// The returned cancel deregisters it and closes the channel; calling
// cancel more than once is safe.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)

	ps.mu.Lock()
	ps.nextID++
	id := ps.nextID
	for _, name := range channels {
		if ps.subs[name] == nil {
			ps.subs[name] = make(map[int64]chan *LocalMessage)
		}
		ps.subs[name][id] = ch
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, name := range channels {
				delete(ps.subs[name], id)
			}
			ps.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
