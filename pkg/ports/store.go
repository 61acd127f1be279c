package ports

import (
	"context"

	"github.com/aretw0/turing/pkg/domain"
)

// MachineStore persists machine snapshots by session ID.
// This allows a session to be closed and resumed later, possibly by another
// replica.
type MachineStore interface {
	// Save persists the snapshot for a given session ID, replacing any
	// previous one.
	Save(ctx context.Context, id string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrMachineNotFound if the session does not exist.
	Load(ctx context.Context, id string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID. Deleting a missing
	// ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
