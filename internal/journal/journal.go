// Package journal persists the event records emitted by pool operations.
package journal

import (
	"context"

	"stablepool/internal/model"
)

// Sink appends operation event records.
type Sink interface {
	Append(ctx context.Context, events []model.EventRecord) error
}
