package repository

import (
	"context"

	"newsloop/internal/domain/entity"
)

// SourceItemRepository is the row-level contract the ingest, score,
// cluster and full-text fetch stages use against the source_items table.
// Every stage's input and output against this table is expressed through
// this interface so each stage can be unit-tested against an in-memory or
// mocked store without running the rest of the pipeline.
type SourceItemRepository interface {
	// Insert creates a new row. It returns entity.ErrDuplicateItem when
	// url, (guid, source), or fingerprint already exists; callers treat
	// that as duplicate-suppression, not a failure.
	Insert(ctx context.Context, item *entity.SourceItem) error

	Get(ctx context.Context, id int64) (*entity.SourceItem, error)

	// ListUnscored returns approved-eligible items (image present, score
	// nil) for the scoring stage, newest first, up to limit.
	ListUnscored(ctx context.Context, limit int) ([]*entity.SourceItem, error)

	// ListApprovedUnclustered returns items with approved=true and
	// cluster_id nil, for the cluster stage.
	ListApprovedUnclustered(ctx context.Context, limit int) ([]*entity.SourceItem, error)

	// ListByCluster returns every member of a cluster.
	ListByCluster(ctx context.Context, clusterID int64) ([]*entity.SourceItem, error)

	// UpdateScore persists the scoring stage's result for one item.
	UpdateScore(ctx context.Context, id int64, score int, category, emoji string, approved bool) error

	// AttachToCluster sets cluster_id for one item (cluster stage,
	// performed exactly once per item).
	AttachToCluster(ctx context.Context, id int64, clusterID int64) error

	// UpdateFullText persists the full-text fetch stage's result.
	UpdateFullText(ctx context.Context, id int64, fullText string, lowText bool) error

	// MarkConsumed flags every member of a cluster as consumed, performed
	// by the publish stage after a successful insert/update.
	MarkConsumed(ctx context.Context, clusterID int64) error
}
