package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// SourceItemRepo implements repository.SourceItemRepository for PostgreSQL.
type SourceItemRepo struct {
	db *sql.DB
}

// NewSourceItemRepo creates a new PostgreSQL-backed SourceItemRepository.
func NewSourceItemRepo(db *sql.DB) repository.SourceItemRepository {
	return &SourceItemRepo{db: db}
}

func (r *SourceItemRepo) Insert(ctx context.Context, item *entity.SourceItem) error {
	const query = `
INSERT INTO source_items (url, guid, source, title, description, full_text, image_url, author,
	published_at, fetched_at, score, category, emoji, approved, consumed, fingerprint, low_text)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		item.URL, item.GUID, item.Source, item.Title, item.Description, item.FullText, nullIfEmpty(item.ImageURL),
		item.Author, item.PublishedAt, item.FetchedAt, item.Score, item.Category, item.Emoji,
		item.Approved, item.Consumed, item.Fingerprint, item.LowText,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert source item: %w", entity.ErrDuplicateItem)
		}
		return fmt.Errorf("insert source item: %w", err)
	}
	return nil
}

func (r *SourceItemRepo) Get(ctx context.Context, id int64) (*entity.SourceItem, error) {
	const query = itemSelectColumns + ` WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	item, err := scanSourceItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

const itemSelectColumns = `
SELECT id, url, guid, source, title, description, full_text, image_url, author,
	published_at, fetched_at, score, category, emoji, approved, consumed, cluster_id, fingerprint, low_text
FROM source_items`

func (r *SourceItemRepo) ListUnscored(ctx context.Context, limit int) ([]*entity.SourceItem, error) {
	const query = itemSelectColumns + ` WHERE score IS NULL AND image_url IS NOT NULL ORDER BY fetched_at ASC LIMIT $1`
	return r.queryItems(ctx, query, limit)
}

func (r *SourceItemRepo) ListApprovedUnclustered(ctx context.Context, limit int) ([]*entity.SourceItem, error) {
	const query = itemSelectColumns + ` WHERE approved = true AND cluster_id IS NULL ORDER BY score DESC LIMIT $1`
	return r.queryItems(ctx, query, limit)
}

func (r *SourceItemRepo) ListByCluster(ctx context.Context, clusterID int64) ([]*entity.SourceItem, error) {
	const query = itemSelectColumns + ` WHERE cluster_id = $1 ORDER BY score DESC`
	return r.queryItems(ctx, query, clusterID)
}

func (r *SourceItemRepo) queryItems(ctx context.Context, query string, arg any) ([]*entity.SourceItem, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query source items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.SourceItem, 0)
	for rows.Next() {
		item, err := scanSourceItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSourceItem(row rowScanner) (*entity.SourceItem, error) {
	var item entity.SourceItem
	var imageURL sql.NullString
	var clusterID sql.NullInt64
	var score sql.NullInt64

	err := row.Scan(&item.ID, &item.URL, &item.GUID, &item.Source, &item.Title, &item.Description,
		&item.FullText, &imageURL, &item.Author, &item.PublishedAt, &item.FetchedAt, &score,
		&item.Category, &item.Emoji, &item.Approved, &item.Consumed, &clusterID, &item.Fingerprint, &item.LowText)
	if err != nil {
		return nil, err
	}
	if imageURL.Valid {
		item.ImageURL = imageURL.String
	}
	if clusterID.Valid {
		item.ClusterID = &clusterID.Int64
	}
	if score.Valid {
		s := int(score.Int64)
		item.Score = &s
	}
	return &item, nil
}

func (r *SourceItemRepo) UpdateScore(ctx context.Context, id int64, score int, category, emoji string, approved bool) error {
	const query = `UPDATE source_items SET score=$2, category=$3, emoji=$4, approved=$5 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, id, score, category, emoji, approved)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

func (r *SourceItemRepo) AttachToCluster(ctx context.Context, id int64, clusterID int64) error {
	const query = `UPDATE source_items SET cluster_id=$2 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, id, clusterID)
	if err != nil {
		return fmt.Errorf("attach to cluster: %w", err)
	}
	return nil
}

func (r *SourceItemRepo) UpdateFullText(ctx context.Context, id int64, fullText string, lowText bool) error {
	const query = `UPDATE source_items SET full_text=$2, low_text=$3 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, id, fullText, lowText)
	if err != nil {
		return fmt.Errorf("update full text: %w", err)
	}
	return nil
}

func (r *SourceItemRepo) MarkConsumed(ctx context.Context, clusterID int64) error {
	const query = `UPDATE source_items SET consumed=true WHERE cluster_id=$1`
	_, err := r.db.ExecContext(ctx, query, clusterID)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation detects a Postgres unique-constraint violation
// (SQLSTATE 23505) without importing the pgconn error type directly, so
// this adapter stays testable against sqlmock's generic driver.Err values.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key")
}
