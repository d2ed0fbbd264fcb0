package store

import (
	"context"

	"github.com/secret-recovery/server/src/server/data"
)

// Store defines the runtime storage interface for reconstruction records.
// Loading documents from disk is startup-only and not part of this interface.
type Store interface {
	AddReconstruction(ctx context.Context, r data.Reconstruction) error
	GetReconstruction(ctx context.Context, id string) (data.Reconstruction, bool, error)
	ListReconstructions(ctx context.Context) ([]data.ReconstructionSummary, error)
}
