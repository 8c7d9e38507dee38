package positions

import (
	"context"
	"sync"

	"github.com/trujjo/neurotome/internal/domain"
)

// Memory keeps pins for the life of the process.
type Memory struct {
	mu   sync.Mutex
	pins map[string]map[domain.StableID]domain.Position
}

func NewMemory() *Memory {
	return &Memory{pins: map[string]map[domain.StableID]domain.Position{}}
}

func (m *Memory) Load(_ context.Context, workspace string) (map[domain.StableID]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePins(m.pins[workspace]), nil
}

func (m *Memory) Save(_ context.Context, workspace string, pinned map[domain.StableID]domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(pinned) == 0 {
		delete(m.pins, workspace)
		return nil
	}
	m.pins[workspace] = clonePins(pinned)
	return nil
}

func clonePins(in map[domain.StableID]domain.Position) map[domain.StableID]domain.Position {
	out := make(map[domain.StableID]domain.Position, len(in))
	for id, p := range in {
		p.Pinned = true
		out[id] = p
	}
	return out
}
