package arkhe

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Phase is a scope accumulating deferred structural mutations. Operations
// appended while iterating replay in insertion order at Commit, once the
// caller no longer holds references into archetype storage.
//
// Append is thread safe, so a job system may enqueue deferred operations
// from several workers. Everything else on the phase is single threaded.
type Phase struct {
	mu         sync.Mutex
	operations []func()
	committed  bool
}

// NewPhase creates an empty phase. Construction is cheap.
func NewPhase() *Phase {
	return &Phase{}
}

// Append queues an operation for replay at Commit.
func (p *Phase) Append(operation func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committed {
		panic(eris.New("phase used after commit"))
	}
	p.operations = append(p.operations, operation)
}

// Commit replays every queued operation in insertion order. The phase must
// not be used afterwards: a committed phase rejects further appends, and a
// second commit is fatal.
func (p *Phase) Commit() {
	p.mu.Lock()
	if p.committed {
		p.mu.Unlock()
		panic(eris.New("phase committed twice"))
	}
	p.committed = true
	operations := p.operations
	p.operations = nil
	p.mu.Unlock()

	start := time.Now()
	for _, operation := range operations {
		operation()
	}
	recordPhaseFlush(start)
}
