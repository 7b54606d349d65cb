// Package draft persists in-progress, not-yet-durable state (the timer
// runtime tuple) so a reload can offer a one-time resume. State
// machines depend on the Store interface, not a concrete backend.
package draft

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("draft: not found")

type Store interface {
	// Save overwrites the value stored under (userID, key).
	Save(ctx context.Context, userID, key string, value []byte) error
	// Load returns the stored value or ErrNotFound.
	Load(ctx context.Context, userID, key string) ([]byte, error)
	// Clear removes the value; clearing a missing key is a no-op.
	Clear(ctx context.Context, userID, key string) error
}
