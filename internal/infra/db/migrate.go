package db

import "database/sql"

// MigrateUp creates the five tables of the persistent store contract —
// source_items, clusters, published_articles, article_updates_log and
// fetch_cycles — plus their required indices, if they do not already
// exist.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS source_items (
    id                SERIAL PRIMARY KEY,
    url               TEXT NOT NULL UNIQUE,
    guid              TEXT,
    source            TEXT NOT NULL,
    title             TEXT NOT NULL,
    description       TEXT,
    full_text         TEXT,
    image_url         TEXT,
    author            TEXT,
    published_at      TIMESTAMPTZ NOT NULL,
    fetched_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    score             INT,
    category          TEXT,
    emoji             TEXT,
    approved          BOOLEAN NOT NULL DEFAULT FALSE,
    consumed          BOOLEAN NOT NULL DEFAULT FALSE,
    cluster_id        INTEGER,
    fingerprint       TEXT NOT NULL UNIQUE,
    low_text          BOOLEAN NOT NULL DEFAULT FALSE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS clusters (
    id                    SERIAL PRIMARY KEY,
    event_label           TEXT NOT NULL,
    keywords              JSONB NOT NULL DEFAULT '[]',
    entities              JSONB NOT NULL DEFAULT '[]',
    category              TEXT,
    status                VARCHAR(10) NOT NULL DEFAULT 'active',
    source_count          INT NOT NULL DEFAULT 1,
    top_score             INT NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    published_article_id  INTEGER
)`); err != nil {
		return err
	}

	// Indices backing the store contract's lookup patterns.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_source_items_guid_source
    ON source_items(guid, source) WHERE guid IS NOT NULL AND guid != ''`,
		`CREATE INDEX IF NOT EXISTS idx_source_items_url ON source_items(url)`,
		`CREATE INDEX IF NOT EXISTS idx_source_items_fingerprint ON source_items(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_source_items_cluster_id ON source_items(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_status_last_updated ON clusters(status, last_updated_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// Deferred FK: source_items.cluster_id references clusters(id), added
	// after both tables exist. Ignored if already present.
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'fk_source_items_cluster'
    ) THEN
        ALTER TABLE source_items ADD CONSTRAINT fk_source_items_cluster
        FOREIGN KEY (cluster_id) REFERENCES clusters(id);
    END IF;
END $$;
`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS published_articles (
    id                 SERIAL PRIMARY KEY,
    cluster_id         INTEGER NOT NULL UNIQUE REFERENCES clusters(id),
    title_pro          TEXT NOT NULL,
    title_simple       TEXT NOT NULL,
    bullets_pro        JSONB NOT NULL,
    bullets_simple     JSONB NOT NULL,
    body_pro           TEXT NOT NULL,
    body_simple        TEXT NOT NULL,
    category           TEXT,
    emoji              TEXT,
    image_url          TEXT,
    image_attribution  TEXT,
    components         JSONB NOT NULL,
    timeline           JSONB,
    details            JSONB,
    chart              JSONB,
    ai_final_score     INT NOT NULL,
    num_sources        INT NOT NULL,
    version            INT NOT NULL DEFAULT 1,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    source_urls        JSONB NOT NULL
)`); err != nil {
		return err
	}

	articleIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_published_articles_cluster_id ON published_articles(cluster_id)`,
		`CREATE INDEX IF NOT EXISTS idx_published_articles_score_desc ON published_articles(ai_final_score DESC)`,
	}
	for _, idx := range articleIndexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS article_updates_log (
    id             SERIAL PRIMARY KEY,
    article_id     INTEGER NOT NULL REFERENCES published_articles(id),
    updated_at     TIMESTAMPTZ NOT NULL,
    trigger        VARCHAR(20) NOT NULL,
    sources_added  INT NOT NULL,
    prev_version   INT NOT NULL,
    new_version    INT NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_article_updates_log_article_id ON article_updates_log(article_id)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS fetch_cycles (
    id                  SERIAL PRIMARY KEY,
    started_at          TIMESTAMPTZ NOT NULL,
    finished_at         TIMESTAMPTZ,
    feeds_polled        INT NOT NULL DEFAULT 0,
    items_new           INT NOT NULL DEFAULT 0,
    items_scored        INT NOT NULL DEFAULT 0,
    items_approved      INT NOT NULL DEFAULT 0,
    clusters_affected   INT NOT NULL DEFAULT 0,
    articles_published  INT NOT NULL DEFAULT 0,
    status              VARCHAR(12) NOT NULL DEFAULT 'running',
    error_text          TEXT
)`); err != nil {
		return err
	}

	return nil
}

// MigrateDown drops the five pipeline tables in dependency order. Use with
// caution: this deletes all persisted pipeline state.
func MigrateDown(db *sql.DB) error {
	statements := []string{
		`DROP TABLE IF EXISTS fetch_cycles`,
		`DROP TABLE IF EXISTS article_updates_log`,
		`DROP TABLE IF EXISTS published_articles`,
		`ALTER TABLE IF EXISTS source_items DROP CONSTRAINT IF EXISTS fk_source_items_cluster`,
		`DROP TABLE IF EXISTS clusters`,
		`DROP TABLE IF EXISTS source_items`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
