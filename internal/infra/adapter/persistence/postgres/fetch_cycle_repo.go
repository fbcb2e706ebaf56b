package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// FetchCycleRepo implements repository.FetchCycleRepository for PostgreSQL.
type FetchCycleRepo struct {
	db *sql.DB
}

// NewFetchCycleRepo creates a new PostgreSQL-backed FetchCycleRepository.
func NewFetchCycleRepo(db *sql.DB) repository.FetchCycleRepository {
	return &FetchCycleRepo{db: db}
}

func (r *FetchCycleRepo) Start(ctx context.Context, c *entity.FetchCycle) (int64, error) {
	const query = `
INSERT INTO fetch_cycles (started_at, status)
VALUES ($1, $2)
RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query, c.StartedAt, string(entity.CycleRunning)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start fetch cycle: %w", err)
	}
	return id, nil
}

func (r *FetchCycleRepo) Finish(ctx context.Context, id int64, c *entity.FetchCycle) error {
	const query = `
UPDATE fetch_cycles SET
	finished_at=$2, feeds_polled=$3, items_new=$4, items_scored=$5, items_approved=$6,
	clusters_affected=$7, articles_published=$8, status=$9, error_text=$10
WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, id, c.FinishedAt, c.FeedsPolled, c.ItemsNew, c.ItemsScored,
		c.ItemsApproved, c.ClustersAffected, c.ArticlesPublished, string(c.Status), nullIfEmpty(c.ErrorText))
	if err != nil {
		return fmt.Errorf("finish fetch cycle: %w", err)
	}
	return nil
}
