package capability

import "context"

// SourcePackage is one cluster member as packaged for the synthesis prompt:
// ordered by descending score, truncated to the configured character cap.
type SourcePackage struct {
	Publisher   string
	Title       string
	PublishedAt string
	Excerpt     string
	LowText     bool
}

// SynthesisOutput is the strict structured article a synthesis capability
// must return. The core validates word/paragraph/bullet counts before
// accepting it.
type SynthesisOutput struct {
	TitlePro      string   `json:"title_pro"`
	TitleSimple   string   `json:"title_simple"`
	BulletsPro    []string `json:"bullets_pro"`
	BulletsSimple []string `json:"bullets_simple"`
	BodyPro       string   `json:"body_pro"`
	BodySimple    string   `json:"body_simple"`
	Category      string   `json:"category"`
	Emoji         string   `json:"emoji"`
}

// Synthesizer turns a cluster's packaged sources into one dual-register
// article.
type Synthesizer interface {
	Synthesize(ctx context.Context, sources []SourcePackage) (*SynthesisOutput, error)
}
