package positions

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/data/db"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

type store interface {
	Load(ctx context.Context, workspace string) (map[domain.StableID]domain.Position, error)
	Save(ctx context.Context, workspace string, pinned map[domain.StableID]domain.Position) error
}

func exerciseStore(t *testing.T, s store) {
	t.Helper()
	ctx := context.Background()
	pins := map[domain.StableID]domain.Position{"femur": {X: 10, Y: 20, Pinned: true}}
	if err := s.Save(ctx, "ws", pins); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, "ws")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p, ok := got["femur"]; !ok || p.X != 10 || p.Y != 20 || !p.Pinned {
		t.Fatalf("femur: got=%+v", got)
	}
	other, _ := s.Load(ctx, "other")
	if len(other) != 0 {
		t.Fatalf("workspaces leak: got=%v", other)
	}
	if err := s.Save(ctx, "ws", map[domain.StableID]domain.Position{"tibia": {X: 1, Y: 2}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.Load(ctx, "ws")
	if _, ok := got["femur"]; ok || len(got) != 1 {
		t.Fatalf("save must replace the set: got=%v", got)
	}
	if err := s.Save(ctx, "ws", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = s.Load(ctx, "ws")
	if len(got) != 0 {
		t.Fatalf("cleared: got=%v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

type fakeRedis struct {
	goredis.Cmdable
	data map[string]string
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.data[key] = string(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, NewRedis(&fakeRedis{data: map[string]string{}}, time.Hour))
}

func openSQLite(t *testing.T, name string) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.PositionsConfig{Driver: "sqlite", DSN: "file:" + name + "?mode=memory&cache=shared"}, logger.Nop())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func TestSQLStore(t *testing.T) {
	exerciseStore(t, NewSQL(openSQLite(t, "pins_roundtrip"), 0))
}

func TestSQLStoreIgnoresExpiredPins(t *testing.T) {
	s := NewSQL(openSQLite(t, "pins_expiry"), time.Hour)
	s.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
	if err := s.Save(context.Background(), "old", map[domain.StableID]domain.Position{"femur": {X: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.now = func() time.Time { return time.Now().UTC() }
	got, err := s.Load(context.Background(), "old")
	if err != nil || len(got) != 0 {
		t.Fatalf("expired pins returned: got=%v err=%v", got, err)
	}
}
