package capability

import (
	"context"

	"newsloop/internal/domain/entity"
)

// ComponentSelectInput is the material a component-selection capability
// reasons over.
type ComponentSelectInput struct {
	Title string
	Body  string
}

// ComponentSelectOutput is the raw selection before the core validates it
// against the allowed component set and falls back to the default pair.
type ComponentSelectOutput struct {
	Components   []entity.ComponentKind
	Emoji        string
	ChartSubtype string `json:"chart_subtype"`
}

// ComponentSelector decides which of the allowed components (timeline,
// details, chart) an article should carry, in order of importance.
type ComponentSelector interface {
	SelectComponents(ctx context.Context, in ComponentSelectInput) (*ComponentSelectOutput, error)
}
