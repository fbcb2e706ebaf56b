package component

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

const (
	timelineMinEntries = 2
	timelineMaxEntries = 4
	timelineMaxWords   = 14

	detailsCount       = 3
	detailsMaxWords    = 8

	chartMinPoints = 4
)

// Renderer gathers facts via the search capability and renders each
// selected component in parallel, dropping any that fail shape validation.
type Renderer struct {
	Search capability.Searcher
	Render capability.ComponentRenderer
}

// NewRenderer constructs a Renderer.
func NewRenderer(search capability.Searcher, render capability.ComponentRenderer) *Renderer {
	return &Renderer{Search: search, Render: render}
}

// BuildSet runs search then per-component rendering for the given ordered
// kinds and returns the resulting entity.ComponentSet. Components within
// one article are rendered concurrently; any component whose payload fails
// validation is dropped rather than failing the whole article.
func (r *Renderer) BuildSet(ctx context.Context, title, body string, kinds []entity.ComponentKind) (entity.ComponentSet, error) {
	set := entity.ComponentSet{Order: append([]entity.ComponentKind{}, kinds...)}
	if len(kinds) == 0 {
		return set, nil
	}

	bundles, err := r.Search.Search(ctx, capability.SearchRequest{Title: title, BodyExcerpt: body, Components: kinds})
	if err != nil {
		return entity.ComponentSet{}, capability.NewFailure("search", capability.Transient, err)
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		k := kind
		bundle, ok := bundles[k]
		if !ok {
			mu.Lock()
			set.Drop(k)
			mu.Unlock()
			continue
		}
		eg.Go(func() error {
			payload, err := r.Render.RenderComponent(egCtx, capability.ComponentRenderInput{
				Kind:         k,
				ArticleTitle: title,
				ArticleBody:  body,
				Bundle:       bundle,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil || !attach(&set, k, payload) {
				if err != nil {
					slog.Warn("component render failed", slog.String("kind", string(k)), slog.Any("error", err))
				}
				set.Drop(k)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return set, nil
}

// attach type-asserts payload against kind's expected shape, validates it,
// and stores it on set. Returns false if the shape or cardinality is wrong.
func attach(set *entity.ComponentSet, kind entity.ComponentKind, payload any) bool {
	switch kind {
	case entity.ComponentTimeline:
		p, ok := payload.(*entity.TimelinePayload)
		if !ok || !validTimeline(p) {
			return false
		}
		set.Timeline = p
	case entity.ComponentDetails:
		p, ok := payload.(*entity.DetailsPayload)
		if !ok || !validDetails(p) {
			return false
		}
		set.Details = p
	case entity.ComponentChart:
		p, ok := payload.(*entity.ChartPayload)
		if !ok || !validChart(p) {
			return false
		}
		set.Chart = p
	default:
		return false
	}
	return true
}

func validTimeline(p *entity.TimelinePayload) bool {
	if p == nil || len(p.Entries) < timelineMinEntries || len(p.Entries) > timelineMaxEntries {
		return false
	}
	for _, e := range p.Entries {
		if e.Date == "" || e.Event == "" || wordCount(e.Event) > timelineMaxWords {
			return false
		}
	}
	return true
}

func validDetails(p *entity.DetailsPayload) bool {
	if p == nil || len(p.Facts) != detailsCount {
		return false
	}
	for _, f := range p.Facts {
		if f == "" || wordCount(f) > detailsMaxWords {
			return false
		}
	}
	return true
}

func validChart(p *entity.ChartPayload) bool {
	if p == nil || len(p.Points) < chartMinPoints {
		return false
	}
	for _, pt := range p.Points {
		if pt.Date == "" {
			return false
		}
	}
	return p.XLabel != "" && p.YLabel != ""
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
