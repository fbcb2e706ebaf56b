package repository

import (
	"context"

	"newsloop/internal/domain/entity"
)

// FetchCycleRepository is the row-level contract the orchestrator uses
// against the fetch_cycles table, one row per pipeline cycle.
type FetchCycleRepository interface {
	Start(ctx context.Context, c *entity.FetchCycle) (int64, error)
	Finish(ctx context.Context, id int64, c *entity.FetchCycle) error
}
