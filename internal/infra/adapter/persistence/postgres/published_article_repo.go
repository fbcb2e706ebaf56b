package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// PublishedArticleRepo implements repository.PublishedArticleRepository for
// PostgreSQL.
type PublishedArticleRepo struct {
	db *sql.DB
}

// NewPublishedArticleRepo creates a new PostgreSQL-backed
// PublishedArticleRepository.
func NewPublishedArticleRepo(db *sql.DB) repository.PublishedArticleRepository {
	return &PublishedArticleRepo{db: db}
}

const articleSelectColumns = `
SELECT id, cluster_id, title_pro, title_simple, bullets_pro, bullets_simple, body_pro, body_simple,
	category, emoji, image_url, image_attribution, components, timeline, details, chart,
	ai_final_score, num_sources, version, created_at, updated_at, source_urls
FROM published_articles`

func (r *PublishedArticleRepo) GetByClusterID(ctx context.Context, clusterID int64) (*entity.PublishedArticle, error) {
	const query = articleSelectColumns + ` WHERE cluster_id = $1`
	row := r.db.QueryRowContext(ctx, query, clusterID)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *PublishedArticleRepo) Insert(ctx context.Context, a *entity.PublishedArticle) (int64, error) {
	cols, err := marshalArticleColumns(a)
	if err != nil {
		return 0, err
	}

	const query = `
INSERT INTO published_articles (cluster_id, title_pro, title_simple, bullets_pro, bullets_simple,
	body_pro, body_simple, category, emoji, image_url, image_attribution, components, timeline,
	details, chart, ai_final_score, num_sources, version, created_at, updated_at, source_urls)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1,NOW(),NOW(),$18)
RETURNING id, version, created_at, updated_at`

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		a.ClusterID, a.TitlePro, a.TitleSimple, cols.bulletsPro, cols.bulletsSimple, a.BodyPro, a.BodySimple,
		a.Category, a.Emoji, nullIfEmpty(a.ImageURL), nullIfEmpty(a.ImageAttribution), cols.components,
		cols.timeline, cols.details, cols.chart, a.AIFinalScore, a.NumSources, cols.sourceURLs,
	).Scan(&id, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert published article: %w", err)
	}
	return id, nil
}

func (r *PublishedArticleRepo) Update(ctx context.Context, a *entity.PublishedArticle) error {
	cols, err := marshalArticleColumns(a)
	if err != nil {
		return err
	}

	const query = `
UPDATE published_articles SET
	title_pro=$2, title_simple=$3, bullets_pro=$4, bullets_simple=$5, body_pro=$6, body_simple=$7,
	category=$8, emoji=$9, image_url=$10, image_attribution=$11, components=$12, timeline=$13,
	details=$14, chart=$15, ai_final_score=$16, num_sources=$17, version=$18, updated_at=$19, source_urls=$20
WHERE id=$1`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.TitlePro, a.TitleSimple, cols.bulletsPro, cols.bulletsSimple, a.BodyPro, a.BodySimple,
		a.Category, a.Emoji, nullIfEmpty(a.ImageURL), nullIfEmpty(a.ImageAttribution), cols.components,
		cols.timeline, cols.details, cols.chart, a.AIFinalScore, a.NumSources, a.Version, a.UpdatedAt, cols.sourceURLs,
	)
	if err != nil {
		return fmt.Errorf("update published article: %w", err)
	}
	return nil
}

type articleColumns struct {
	bulletsPro, bulletsSimple, components, timeline, details, chart, sourceURLs []byte
}

func marshalArticleColumns(a *entity.PublishedArticle) (*articleColumns, error) {
	var c articleColumns
	var err error
	if c.bulletsPro, err = json.Marshal(a.BulletsPro); err != nil {
		return nil, fmt.Errorf("marshal bullets_pro: %w", err)
	}
	if c.bulletsSimple, err = json.Marshal(a.BulletsSimple); err != nil {
		return nil, fmt.Errorf("marshal bullets_simple: %w", err)
	}
	if c.components, err = json.Marshal(a.Components.Order); err != nil {
		return nil, fmt.Errorf("marshal components: %w", err)
	}
	if a.Components.Timeline != nil {
		if c.timeline, err = json.Marshal(a.Components.Timeline); err != nil {
			return nil, fmt.Errorf("marshal timeline: %w", err)
		}
	}
	if a.Components.Details != nil {
		if c.details, err = json.Marshal(a.Components.Details); err != nil {
			return nil, fmt.Errorf("marshal details: %w", err)
		}
	}
	if a.Components.Chart != nil {
		if c.chart, err = json.Marshal(a.Components.Chart); err != nil {
			return nil, fmt.Errorf("marshal chart: %w", err)
		}
	}
	if c.sourceURLs, err = json.Marshal(a.SourceURLs); err != nil {
		return nil, fmt.Errorf("marshal source_urls: %w", err)
	}
	return &c, nil
}

func scanArticle(row rowScanner) (*entity.PublishedArticle, error) {
	var a entity.PublishedArticle
	var bulletsPro, bulletsSimple, components, sourceURLs []byte
	var timeline, details, chart sql.NullString
	var imageURL, imageAttribution sql.NullString

	err := row.Scan(&a.ID, &a.ClusterID, &a.TitlePro, &a.TitleSimple, &bulletsPro, &bulletsSimple,
		&a.BodyPro, &a.BodySimple, &a.Category, &a.Emoji, &imageURL, &imageAttribution, &components,
		&timeline, &details, &chart, &a.AIFinalScore, &a.NumSources, &a.Version, &a.CreatedAt, &a.UpdatedAt,
		&sourceURLs)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		a.ImageURL = imageURL.String
	}
	if imageAttribution.Valid {
		a.ImageAttribution = imageAttribution.String
	}
	if err := json.Unmarshal(bulletsPro, &a.BulletsPro); err != nil {
		return nil, fmt.Errorf("unmarshal bullets_pro: %w", err)
	}
	if err := json.Unmarshal(bulletsSimple, &a.BulletsSimple); err != nil {
		return nil, fmt.Errorf("unmarshal bullets_simple: %w", err)
	}
	if err := json.Unmarshal(components, &a.Components.Order); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}
	if timeline.Valid {
		a.Components.Timeline = &entity.TimelinePayload{}
		if err := json.Unmarshal([]byte(timeline.String), a.Components.Timeline); err != nil {
			return nil, fmt.Errorf("unmarshal timeline: %w", err)
		}
	}
	if details.Valid {
		a.Components.Details = &entity.DetailsPayload{}
		if err := json.Unmarshal([]byte(details.String), a.Components.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
	}
	if chart.Valid {
		a.Components.Chart = &entity.ChartPayload{}
		if err := json.Unmarshal([]byte(chart.String), a.Components.Chart); err != nil {
			return nil, fmt.Errorf("unmarshal chart: %w", err)
		}
	}
	if err := json.Unmarshal(sourceURLs, &a.SourceURLs); err != nil {
		return nil, fmt.Errorf("unmarshal source_urls: %w", err)
	}
	return &a, nil
}
