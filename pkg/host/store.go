package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/platinummonkey/conduit/pkg/storage"
	"github.com/platinummonkey/conduit/pkg/storage/redisstore"
	"github.com/platinummonkey/conduit/pkg/storage/s3store"
	"github.com/platinummonkey/conduit/pkg/storage/sqlstore"
)

// OpenStore opens the saved-list backend selected by cfg.Type.
func OpenStore(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case storage.TypeFile:
		if dir := filepath.Dir(cfg.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create state directory: %w", err)
			}
		}
		return storage.NewFileStore(cfg.FilePath)
	case storage.TypePostgres:
		return sqlstore.NewPostgresStore(cfg)
	case storage.TypeSQLite:
		return sqlstore.NewSQLiteStore(cfg)
	case storage.TypeRedis:
		return redisstore.New(cfg)
	case storage.TypeS3:
		return s3store.New(ctx, cfg)
	}
	return nil, fmt.Errorf("%w: unknown type %q", storage.ErrInvalidConfig, cfg.Type)
}
