// Package transfer ships finished recordings to remote storage. Two backends
// implement the same capability interface: scp for a plain SSH archive host
// and s3 for object storage. Transfers are never retried automatically; a
// failed upload leaves local artifacts in place for manual recovery.
package transfer

import (
	"context"
	"fmt"

	"aircheck/internal/config"
)

// Service delivers a local file to a remote destination path.
type Service interface {
	// Upload copies the local file to the remote path, creating intermediate
	// directories as needed.
	Upload(ctx context.Context, localPath, remotePath string) error
	// Verify confirms the remote object exists with the expected size.
	Verify(ctx context.Context, remotePath string, size int64) error
	// Name identifies the backend for logs and health output.
	Name() string
	// Ready reports whether the backend can reach its destination.
	Ready(ctx context.Context) error
}

// New constructs the backend selected by configuration.
func New(cfg *config.Config) (Service, error) {
	switch cfg.Transfer.Backend {
	case "scp":
		return NewSCP(cfg.Transfer), nil
	case "s3":
		return NewS3(cfg.Transfer)
	default:
		return nil, fmt.Errorf("unknown transfer backend %q", cfg.Transfer.Backend)
	}
}
