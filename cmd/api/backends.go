package main

import (
	"context"
	"fmt"
	"log/slog"

	"docregistry/internal/config"
	"docregistry/internal/database"
	"docregistry/internal/database/migration"
	"docregistry/internal/identity"
	"docregistry/internal/repository"
	"docregistry/internal/repository/csvfile"
	"docregistry/internal/repository/postgres"
	"docregistry/internal/repository/redisstore"
	"docregistry/internal/storage"
)

func newDirectory(c config.AuthConfig, logger *slog.Logger) (identity.Directory, error) {
	if c.UsersFile == "" {
		logger.Warn("identity_directory", "source", "built-in development users")
		dir, err := identity.NewStatic(identity.DevUsers())
		if err != nil {
			return nil, err
		}
		return dir, nil
	}
	dir, err := identity.LoadFile(c.UsersFile)
	if err != nil {
		return nil, err
	}
	logger.Info("identity_directory", "source", c.UsersFile)
	return dir, nil
}

// newRepository opens the metadata store selected by STORE_BACKEND. The
// returned func releases its connections.
func newRepository(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (repository.DocumentRepository, func(), error) {
	switch cfg.Store.Backend {
	case "csv":
		repo, err := csvfile.NewDocumentCSV(cfg.Store.CSVPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv store: %w", err)
		}
		logger.Info("metadata_store", "backend", "csv", "path", repo.Path())
		return repo, func() {}, nil

	case "postgres":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("metadata_store", "backend", "postgres", "db_host", cfg.Database.Host)
		return postgres.NewDocumentPostgres(db), func() { db.Close() }, nil

	case "redis":
		client, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("metadata_store", "backend", "redis", "key_prefix", cfg.Redis.KeyPrefix)
		return redisstore.NewDocumentRedis(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (want csv, postgres or redis)", cfg.Store.Backend)
	}
}

func newBlobStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Blob.Backend {
	case "filesystem":
		fs, err := storage.NewFilesystem(cfg.Blob.BasePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("blob_store", "backend", "filesystem", "base_path", fs.BasePath())
		return fs, nil
	case "minio":
		s, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		logger.Info("blob_store", "backend", "minio", "bucket", cfg.MinIO.Bucket)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q (want filesystem or minio)", cfg.Blob.Backend)
	}
}
