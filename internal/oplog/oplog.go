package oplog

import (
	"sync"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

// The ordered, authoritative drawing history of one room
type Log struct {
	mu  sync.RWMutex
	ops []canvas.Operation
}

func New() *Log {
	return &Log{
		ops: make([]canvas.Operation, 0),
	}
}

// Adds an operation to the end of the history
func (l *Log) Append(op canvas.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

// Removes the operation with the given id, preserving the relative
// order of everything else. Removing an unknown id is a no-op: the
// operation may already have been undone by a racing client.
func (l *Log) Remove(opID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.ops[:0]
	for _, op := range l.ops {
		if op.ID != opID {
			kept = append(kept, op)
		}
	}
	l.ops = kept
}

// Returns a copy of the full ordered history, used to seed a joining
// client's local mirror
func (l *Log) Snapshot() []canvas.Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ops := make([]canvas.Operation, len(l.ops))
	copy(ops, l.ops)
	return ops
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ops)
}

// Empties the history (room teardown)
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = make([]canvas.Operation, 0)
}
