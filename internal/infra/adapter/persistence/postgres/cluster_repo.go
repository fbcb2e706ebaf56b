package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// ClusterRepo implements repository.ClusterRepository for PostgreSQL.
type ClusterRepo struct {
	db *sql.DB
}

// NewClusterRepo creates a new PostgreSQL-backed ClusterRepository.
func NewClusterRepo(db *sql.DB) repository.ClusterRepository {
	return &ClusterRepo{db: db}
}

func (r *ClusterRepo) Insert(ctx context.Context, c *entity.Cluster) (int64, error) {
	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return 0, fmt.Errorf("marshal keywords: %w", err)
	}
	entities, err := json.Marshal(c.Entities)
	if err != nil {
		return 0, fmt.Errorf("marshal entities: %w", err)
	}

	const query = `
INSERT INTO clusters (event_label, keywords, entities, category, status, source_count, top_score, created_at, last_updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`

	var id int64
	err = r.db.QueryRowContext(ctx, query, c.EventLabel, keywords, entities, c.Category, string(c.Status),
		c.SourceCount, c.TopScore, c.CreatedAt, c.LastUpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert cluster: %w", err)
	}
	return id, nil
}

func (r *ClusterRepo) Get(ctx context.Context, id int64) (*entity.Cluster, error) {
	const query = clusterSelectColumns + ` WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCluster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

const clusterSelectColumns = `
SELECT id, event_label, keywords, entities, category, status, source_count, top_score,
	created_at, last_updated_at, published_article_id
FROM clusters`

func (r *ClusterRepo) ListActiveWithin(ctx context.Context, now time.Time, window time.Duration) ([]*entity.Cluster, error) {
	const query = clusterSelectColumns + ` WHERE status = 'active' AND last_updated_at >= $1 ORDER BY last_updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("list active clusters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clusters := make([]*entity.Cluster, 0)
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

func (r *ClusterRepo) CloseStale(ctx context.Context, now time.Time, inactivityWindow, hardMaxAge time.Duration) ([]int64, error) {
	const query = `
UPDATE clusters
SET status = 'closed'
WHERE status = 'active' AND (last_updated_at < $1 OR created_at < $2)
RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, now.Add(-inactivityWindow), now.Add(-hardMaxAge))
	if err != nil {
		return nil, fmt.Errorf("close stale clusters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan closed cluster id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ClusterRepo) Extend(ctx context.Context, id int64, lastUpdatedAt time.Time, sourceCount, topScore int, keywords, entities []string, category string) error {
	kw, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	ent, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	const query = `
UPDATE clusters
SET last_updated_at=$2, source_count=$3, top_score=$4, keywords=$5, entities=$6, category=$7
WHERE id=$1`
	_, err = r.db.ExecContext(ctx, query, id, lastUpdatedAt, sourceCount, topScore, kw, ent, category)
	if err != nil {
		return fmt.Errorf("extend cluster: %w", err)
	}
	return nil
}

func (r *ClusterRepo) SetPublishedArticleID(ctx context.Context, id int64, articleID int64) error {
	const query = `UPDATE clusters SET published_article_id=$2 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, query, id, articleID)
	if err != nil {
		return fmt.Errorf("set published article id: %w", err)
	}
	return nil
}

func scanCluster(row rowScanner) (*entity.Cluster, error) {
	var c entity.Cluster
	var keywords, entities []byte
	var status string
	var publishedArticleID sql.NullInt64

	err := row.Scan(&c.ID, &c.EventLabel, &keywords, &entities, &c.Category, &status, &c.SourceCount,
		&c.TopScore, &c.CreatedAt, &c.LastUpdatedAt, &publishedArticleID)
	if err != nil {
		return nil, err
	}
	c.Status = entity.ClusterStatus(status)
	if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal(entities, &c.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if publishedArticleID.Valid {
		c.PublishedArticleID = &publishedArticleID.Int64
	}
	return &c, nil
}
