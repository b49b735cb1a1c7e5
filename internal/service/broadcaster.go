package service

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

// Broadcaster is the one-way channel from the authoritative match to its replicas.
// Every subscriber gets its own buffered queue, so events reach each of them in publish order.
type Broadcaster struct {
	logger *slog.Logger

	mu          sync.Mutex
	buffer      int
	nextID      uint64
	subscribers map[uint64]chan entity.Event
}

func NewBroadcaster(logger *slog.Logger, buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}

	return &Broadcaster{
		logger:      logger.With("component", "broadcaster"),
		buffer:      buffer,
		subscribers: make(map[uint64]chan entity.Event),
	}
}

func (that *Broadcaster) Subscribe() (uint64, <-chan entity.Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextID++
	ch := make(chan entity.Event, that.buffer)
	that.subscribers[that.nextID] = ch

	return that.nextID, ch
}

// Unsubscribe closes the subscriber's channel. Unknown ids are ignored.
func (that *Broadcaster) Unsubscribe(id uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if ch, ok := that.subscribers[id]; ok {
		close(ch)
		delete(that.subscribers, id)
	}
}

// Publish never blocks. A subscriber whose queue is full is dropped and has to resync from a snapshot.
func (that *Broadcaster) Publish(events ...entity.Event) {
	if len(events) == 0 {
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	for id, ch := range that.subscribers {
		for _, event := range events {
			select {
			case ch <- event:
				continue
			default:
			}

			that.logger.Warn("subscriber is too slow, dropping it", "subscriber", id, "seq", event.Seq)
			close(ch)
			delete(that.subscribers, id)

			break
		}
	}
}

func (that *Broadcaster) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.subscribers)
}
