package capability

import (
	"context"

	"newsloop/internal/domain/entity"
)

// ComponentRenderInput is the article text and retrieved fact bundle for one
// selected component.
type ComponentRenderInput struct {
	Kind         entity.ComponentKind
	ArticleTitle string
	ArticleBody  string
	Bundle       ComponentBundle
}

// ComponentRenderer turns a fact bundle into the final display payload for
// one component. The returned value is one of *entity.TimelinePayload,
// *entity.DetailsPayload, or *entity.ChartPayload depending on Kind; the
// core type-asserts against entity.ComponentSet's tagged fields and drops
// the component if the shape fails validation.
type ComponentRenderer interface {
	RenderComponent(ctx context.Context, in ComponentRenderInput) (any, error)
}
