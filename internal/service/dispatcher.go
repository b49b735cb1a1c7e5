package service

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

// AnyEvent registers a listener for every notification kind.
const AnyEvent = ""

type Listener func(event entity.Event)

type registration struct {
	id       uint64
	listener Listener
}

// Dispatcher fans a notification out to the listeners registered for its kind, in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string][]registration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]registration),
	}
}

// On registers listener for kind and returns a function that removes it.
func (that *Dispatcher) On(kind string, listener Listener) func() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextID++
	id := that.nextID
	that.listeners[kind] = append(that.listeners[kind], registration{id: id, listener: listener})

	return func() {
		that.remove(kind, id)
	}
}

func (that *Dispatcher) remove(kind string, id uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	registrations := that.listeners[kind]
	for i, reg := range registrations {
		if reg.id == id {
			that.listeners[kind] = append(registrations[:i:i], registrations[i+1:]...)
			return
		}
	}
}

// Dispatch calls the listeners of event.Kind, then the AnyEvent listeners.
// Listeners run outside the lock and may register or remove listeners.
func (that *Dispatcher) Dispatch(event entity.Event) {
	that.mu.RLock()
	targets := make([]Listener, 0, len(that.listeners[event.Kind])+len(that.listeners[AnyEvent]))
	for _, reg := range that.listeners[event.Kind] {
		targets = append(targets, reg.listener)
	}
	if event.Kind != AnyEvent {
		for _, reg := range that.listeners[AnyEvent] {
			targets = append(targets, reg.listener)
		}
	}
	that.mu.RUnlock()

	for _, listener := range targets {
		listener(event)
	}
}
