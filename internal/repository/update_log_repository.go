package repository

import (
	"context"

	"newsloop/internal/domain/entity"
)

// UpdateLogRepository is the row-level contract the publish stage uses to
// record each regeneration of a PublishedArticle against
// article_updates_log, per spec §3's optional observability entity.
type UpdateLogRepository interface {
	Insert(ctx context.Context, e *entity.UpdateLogEntry) error
}
