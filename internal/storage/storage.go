package storage

import (
	"context"
	"fmt"
	"strings"
)

// ObjectInfo represents metadata for a stored report.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the operations the report sinks need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// Sink names accepted by New.
const (
	SinkLocal = "local"
	SinkS3    = "s3"
	SinkDrive = "drive"
)

// Options selects and configures a sink.
type Options struct {
	Sink     string
	LocalDir string
	S3       S3Config
	Drive    DriveConfig
}

// New builds the ObjectStorage named by opts.Sink.
func New(ctx context.Context, opts Options) (ObjectStorage, error) {
	var (
		client ObjectStorage
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Sink)) {
	case "", SinkLocal:
		client, err = NewLocalClient(opts.LocalDir)
	case SinkS3:
		client, err = NewS3Client(opts.S3)
	case SinkDrive:
		client, err = NewDriveClient(ctx, opts.Drive)
	default:
		err = fmt.Errorf("unknown report sink %q", opts.Sink)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
