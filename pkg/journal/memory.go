package journal

import (
	"context"
	"sync"
)

// Memory is an in-process Journal.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
	// failNext makes the next Append fail, for exercising rollback paths.
	failNext error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return Entry{}, err
	}

	seq, prev := uint64(0), GenesisHash
	if n := len(m.entries); n > 0 {
		seq, prev = m.entries[n-1].Sequence, m.entries[n-1].Hash
	}
	sealed, err := seal(e, seq, prev)
	if err != nil {
		return Entry{}, err
	}
	m.entries = append(m.entries, sealed)
	return sealed, nil
}

// Entries returns a copy of all entries in sequence order.
func (m *Memory) Entries(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// FailNext makes the next Append return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}
