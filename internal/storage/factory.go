package storage

import (
	"context"
	"fmt"
	"os"

	"docdisk/internal/config"
	"docdisk/internal/docdisk"
)

// NewStorageFromConfig creates a LocalStorage implementation based on the storage config type.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig, clock docdisk.Clock) (docdisk.LocalStorage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem storage requires dir to be set")
		}
		return NewFileSystemStorage(cfg.Dir)
	case "sqlite":
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("sqlite storage requires db_path to be set")
		}
		return NewSQLiteStorage(cfg.DBPath, clock)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     os.Getenv("DOCDISK_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("DOCDISK_S3_SECRET_ACCESS_KEY"),
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
