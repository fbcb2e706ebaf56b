package capability

import (
	"context"

	"newsloop/internal/domain/entity"
)

// SearchRequest asks a search capability for the facts needed to render a
// set of selected components for one article.
type SearchRequest struct {
	Title       string
	BodyExcerpt string
	Components  []entity.ComponentKind
}

// TimelineFact is one chronological event surfaced for the timeline
// component, prior to shape validation by the core.
type TimelineFact struct {
	Date  string
	Event string
}

// DetailFact is a single "Label: Value" string destined for the details
// component.
type DetailFact string

// ChartFact is one point surfaced for the chart component.
type ChartFact struct {
	Date  string
	Value float64
	Label string
}

// ComponentBundle is the raw fact set a search call returned for a single
// component kind, before the component-rendering capability turns it into a
// display payload.
type ComponentBundle struct {
	Timeline []TimelineFact
	Details  []DetailFact
	Chart    struct {
		Points  []ChartFact
		XLabel  string
		YLabel  string
	}
}

// Searcher gathers supplementary facts for the components selected for an
// article. The returned map is keyed by component kind; a kind absent from
// the request is never present in the result.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (map[entity.ComponentKind]ComponentBundle, error)
}
