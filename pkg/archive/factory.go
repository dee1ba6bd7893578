package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Type names an archive backend.
type Type string

const (
	TypeFS  Type = "fs"
	TypeS3  Type = "s3"
	TypeGCS Type = "gcs"
)

// Config selects and configures a backend. DataDir is used by TypeFS only.
type Config struct {
	Type     Type
	DataDir  string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// NewStore builds the backend named by cfg.Type. An empty type is TypeFS.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case TypeFS, "":
		dir := cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		return NewFileStore(filepath.Join(dir, "snapshots"))
	case TypeS3:
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Store(ctx, S3Config{
			Bucket:   cfg.Bucket,
			Region:   region,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
	case TypeGCS:
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", cfg.Type)
	}
}

// NewStoreFromEnv reads ARCHIVE_TYPE, ARCHIVE_BUCKET, ARCHIVE_PREFIX,
// ARCHIVE_REGION (falling back to AWS_REGION), ARCHIVE_ENDPOINT and DATA_DIR.
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	region := os.Getenv("ARCHIVE_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	return NewStore(ctx, Config{
		Type:     Type(os.Getenv("ARCHIVE_TYPE")),
		DataDir:  os.Getenv("DATA_DIR"),
		Bucket:   os.Getenv("ARCHIVE_BUCKET"),
		Prefix:   os.Getenv("ARCHIVE_PREFIX"),
		Region:   region,
		Endpoint: os.Getenv("ARCHIVE_ENDPOINT"),
	})
}
