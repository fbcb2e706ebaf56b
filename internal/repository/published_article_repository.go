package repository

import (
	"context"

	"newsloop/internal/domain/entity"
)

// PublishedArticleRepository is the row-level contract the publish stage
// uses against the published_articles table.
type PublishedArticleRepository interface {
	GetByClusterID(ctx context.Context, clusterID int64) (*entity.PublishedArticle, error)

	// Insert writes a brand-new article with version=1.
	Insert(ctx context.Context, a *entity.PublishedArticle) (int64, error)

	// Update overwrites all content fields of an existing article and
	// bumps its version; callers compute the new version before calling.
	Update(ctx context.Context, a *entity.PublishedArticle) error
}
