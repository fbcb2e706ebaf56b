package repository

import (
	"context"
	"time"

	"newsloop/internal/domain/entity"
)

// ClusterRepository is the row-level contract the cluster and publish
// stages use against the clusters table.
type ClusterRepository interface {
	Insert(ctx context.Context, c *entity.Cluster) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Cluster, error)

	// ListActiveWithin returns active clusters whose last_updated_at is
	// within window of now, the cluster stage's candidate set.
	ListActiveWithin(ctx context.Context, now time.Time, window time.Duration) ([]*entity.Cluster, error)

	// CloseStale transitions clusters past the inactivity window or the
	// hard-max age to closed, and returns their ids.
	CloseStale(ctx context.Context, now time.Time, inactivityWindow, hardMaxAge time.Duration) ([]int64, error)

	// Extend applies the result of attaching a new member: bumps
	// last_updated_at, source_count, top_score and the unioned
	// keyword/entity sets, and recomputes category.
	Extend(ctx context.Context, id int64, lastUpdatedAt time.Time, sourceCount, topScore int, keywords, entities []string, category string) error

	// SetPublishedArticleID links a cluster to its published article.
	SetPublishedArticleID(ctx context.Context, id int64, articleID int64) error
}
