package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trujjo/neurotome/internal/platform/logger"
)

type SSEClient struct {
	ID        uuid.UUID
	SessionID string
	Channels  map[string]bool
	Outbound  chan SSEMessage
	done      chan struct{}
	closeOnce sync.Once
	Logger    *logger.Logger
}

// Done is closed once the client is disconnected.
func (c *SSEClient) Done() <-chan struct{} { return c.done }

func (c *SSEClient) shut() { c.closeOnce.Do(func() { close(c.done) }) }
