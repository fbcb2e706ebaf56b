package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// UpdateLogRepo implements repository.UpdateLogRepository for PostgreSQL.
type UpdateLogRepo struct {
	db *sql.DB
}

// NewUpdateLogRepo creates a new PostgreSQL-backed UpdateLogRepository.
func NewUpdateLogRepo(db *sql.DB) repository.UpdateLogRepository {
	return &UpdateLogRepo{db: db}
}

func (r *UpdateLogRepo) Insert(ctx context.Context, e *entity.UpdateLogEntry) error {
	const query = `
INSERT INTO article_updates_log (article_id, updated_at, trigger, sources_added, prev_version, new_version)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`
	err := r.db.QueryRowContext(ctx, query, e.ArticleID, e.UpdatedAt, string(e.Trigger), e.SourcesAdded,
		e.PrevVersion, e.NewVersion).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert update log entry: %w", err)
	}
	return nil
}
