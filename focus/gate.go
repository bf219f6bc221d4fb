package focus

import (
	"errors"
	"sync"
)

var (
	ErrGateBusy   = errors.New("completion gate action in flight")
	ErrGateClosed = errors.New("completion gate is not open")
)

// Gate is the completion/continuation prompt. Its actions are mutually
// exclusive and guarded against repeats while one is in flight.
type Gate struct {
	mu   sync.Mutex
	open bool
	busy bool
}

// Open presents the gate and reports whether it was closed before.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return false
	}
	g.open = true
	return true
}

func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// acquire marks an action in flight. The returned func ends it, closing the gate on success.
func (g *Gate) acquire() (func(succeeded bool), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil, ErrGateClosed
	}
	if g.busy {
		return nil, ErrGateBusy
	}
	g.busy = true
	return func(succeeded bool) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.busy = false
		if succeeded {
			g.open = false
		}
	}, nil
}
