package storage

import (
	"context"

	"tickerScope/internal/model"
)

// Storage defines a sink for summary snapshots.
type Storage interface {
	PutSnapshot(ctx context.Context, snapshot model.Snapshot) error
}
