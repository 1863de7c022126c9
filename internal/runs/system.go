package runs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/dispatch/pkg/pagination"
)

// System defines the public contract for run operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*Run, error)

	// Execute runs the query and persists the result. A failed run is
	// persisted with its error and the error is returned.
	Execute(ctx context.Context, cmd ExecuteCommand) (*Run, error)

	// Stream is Execute with each stage snapshot passed to send as it
	// completes. A send error cancels the run.
	Stream(ctx context.Context, cmd ExecuteCommand, send func(Event) error) (*Run, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
