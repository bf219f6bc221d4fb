package sqlite

import (
	"sync"

	"github.com/benjamonnguyen/enfoque"
)

// Broker fans out per-user change signals. Publish never blocks and signals coalesce.
type Broker struct {
	mu   sync.Mutex
	subs map[enfoque.UserID]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[enfoque.UserID]map[chan struct{}]struct{}),
	}
}

func (b *Broker) Subscribe(userID enfoque.UserID) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan struct{}]struct{})
	}
	b.subs[userID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
		})
	}
}

func (b *Broker) Publish(userID enfoque.UserID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

var _ enfoque.ChangeFeed = (*Broker)(nil)
