package capability

import "context"

// ScoreInput is a single item submitted to a batch scoring call.
type ScoreInput struct {
	Title   string
	Source  string
	Excerpt string
}

// ScoreOutput is a provider's verdict on one ScoreInput. Score is the raw
// 0-1000 value returned by the provider, before the core's source-credibility
// adjustment is applied.
type ScoreOutput struct {
	Score     int
	Category  string
	Emoji     string
	Reasoning string
}

// Scorer assigns a score, category, and emoji to a batch of items in one
// round trip. Implementations must clamp Score to [0, 1000]; the core
// layers the source-credibility adjustment on top and re-clamps.
type Scorer interface {
	Score(ctx context.Context, items []ScoreInput) ([]ScoreOutput, error)
}
