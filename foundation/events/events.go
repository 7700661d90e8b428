// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events. Only messages carrying one of the
// configured prefixes are delivered.
type Events struct {
	mu       sync.RWMutex
	m        map[string]chan string
	prefixes []string
}

// New constructs an events for registering and receiving events. With no
// prefixes every message is delivered.
func New(prefixes ...string) *Events {
	return &Events{
		m:        make(map[string]chan string),
		prefixes: prefixes,
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// A message is dropped when the receiver is not ready, the buffer gives
	// a slow websocket writer room to catch up.
	const messageBuffer = 100

	evt.m[id] = make(chan string, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel. It reports whether the
// message matched the configured prefixes.
func (evt *Events) Send(s string) bool {
	if !evt.matches(s) {
		return false
	}

	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- s:
		default:
		}
	}

	return true
}

func (evt *Events) matches(s string) bool {
	if len(evt.prefixes) == 0 {
		return true
	}

	for _, prefix := range evt.prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}
