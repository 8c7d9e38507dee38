package positions

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trujjo/neurotome/internal/data/db"
	"github.com/trujjo/neurotome/internal/domain"
)

// SQL persists pins through gorm. Rows older than ttl are ignored on load.
type SQL struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQL(gdb *gorm.DB, ttl time.Duration) *SQL {
	return &SQL{db: gdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQL) Load(ctx context.Context, workspace string) (map[domain.StableID]domain.Position, error) {
	q := s.db.WithContext(ctx).Where("workspace = ?", workspace)
	if s.ttl > 0 {
		q = q.Where("updated_at > ?", s.now().Add(-s.ttl))
	}
	var rows []db.PinnedPosition
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pins %s: %w", workspace, err)
	}
	out := make(map[domain.StableID]domain.Position, len(rows))
	for _, r := range rows {
		out[domain.StableID(r.NodeID)] = domain.Position{X: r.X, Y: r.Y, Pinned: true}
	}
	return out, nil
}

// Save replaces the workspace's pins in one transaction.
func (s *SQL) Save(ctx context.Context, workspace string, pinned map[domain.StableID]domain.Position) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace = ?", workspace).Delete(&db.PinnedPosition{}).Error; err != nil {
			return fmt.Errorf("clear pins %s: %w", workspace, err)
		}
		if len(pinned) == 0 {
			return nil
		}
		rows := make([]db.PinnedPosition, 0, len(pinned))
		for id, p := range pinned {
			rows = append(rows, db.PinnedPosition{Workspace: workspace, NodeID: string(id), X: p.X, Y: p.Y, UpdatedAt: now})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save pins %s: %w", workspace, err)
		}
		return nil
	})
}
