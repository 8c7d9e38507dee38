package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

// PinnedPosition is one persisted pin. A workspace's pins are written as a
// whole set.
type PinnedPosition struct {
	Workspace string    `gorm:"primaryKey;size:128"`
	NodeID    string    `gorm:"primaryKey;size:255"`
	X         float64   `gorm:"not null"`
	Y         float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"index"`
}

func (PinnedPosition) TableName() string { return "pinned_positions" }

// Open connects with the configured driver and migrates the schema.
func Open(cfg config.PositionsConfig, logg *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported positions driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s positions store: %w", cfg.Driver, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	logg.Info("positions store ready", "driver", cfg.Driver, "dsn", cfg.DSN)
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&PinnedPosition{}); err != nil {
		return fmt.Errorf("migrate positions: %w", err)
	}
	return nil
}
