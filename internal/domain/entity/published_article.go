package entity

import "time"

// SourceRef is one contributing source recorded on a PublishedArticle.
type SourceRef struct {
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
}

// PublishedArticle is one synthesised, dual-register record per Cluster.
type PublishedArticle struct {
	ID        int64
	ClusterID int64

	TitlePro    string
	TitleSimple string

	BulletsPro    []string // exactly three
	BulletsSimple []string // exactly three

	BodyPro    string
	BodySimple string

	Category string
	Emoji    string

	ImageURL         string
	ImageAttribution string

	Components ComponentSet

	AIFinalScore int // 0..1000
	NumSources   int
	Version      int

	CreatedAt time.Time
	UpdatedAt time.Time

	SourceURLs []SourceRef
}

// UpdateTrigger names why an already-published article is being
// regenerated.
type UpdateTrigger string

const (
	TriggerInitial       UpdateTrigger = "initial"
	TriggerNewHighScore  UpdateTrigger = "new_high_score"
	TriggerVolume        UpdateTrigger = "volume"
)

// UpdateLogEntry records one regeneration of a PublishedArticle, for
// observability.
type UpdateLogEntry struct {
	ID            int64
	ArticleID     int64
	UpdatedAt     time.Time
	Trigger       UpdateTrigger
	SourcesAdded  int
	PrevVersion   int
	NewVersion    int
}
