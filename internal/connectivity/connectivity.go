// Package connectivity abstracts the online/offline signal that drives
// sync passes. Consumers subscribe to an Observer; where the signal comes
// from (a manual switch, a periodic probe of the remote store) is decided
// by whoever constructs it.
package connectivity

import (
	"sync"
)

// Status is the observed connectivity state.
type Status int

const (
	Offline Status = iota
	Online
)

func (s Status) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Observer reports the current status and notifies subscribers of changes.
type Observer interface {
	Status() Status
	// Subscribe registers fn for status transitions. The returned func
	// removes the subscription.
	Subscribe(fn func(Status)) (cancel func())
}

// broadcaster holds the status and subscriber list shared by observers.
type broadcaster struct {
	mu     sync.Mutex
	status Status
	next   int
	subs   map[int]func(Status)
}

func (b *broadcaster) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *broadcaster) Subscribe(fn func(Status)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(Status))
	}
	id := b.next
	b.next++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// set stores s and, if it differs from the previous status, calls every
// subscriber outside the lock. Reports whether a transition happened.
func (b *broadcaster) set(s Status) bool {
	b.mu.Lock()
	if b.status == s {
		b.mu.Unlock()
		return false
	}
	b.status = s
	fns := make([]func(Status), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	return true
}

// Manual is an Observer whose status is set explicitly.
type Manual struct {
	broadcaster
}

// NewManual returns a Manual observer starting at initial.
func NewManual(initial Status) *Manual {
	m := &Manual{}
	m.status = initial
	return m
}

// Set changes the status, notifying subscribers on a transition.
func (m *Manual) Set(s Status) {
	m.set(s)
}
