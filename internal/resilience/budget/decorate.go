package budget

import (
	"context"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
)

// Capability names match the keys operators configure limits under; the
// orchestrator builds one Tracker keyed by these per cycle.
const (
	CapScoring         = "scoring"
	CapFetchPrimary    = "fetch-primary"
	CapFetchFallback   = "fetch-fallback"
	CapSynthesis       = "synthesis"
	CapComponentSelect = "component-select"
	CapComponentRender = "component-render"
	CapSearch          = "search"
)

func reserveOrFail(t *Tracker, name string, cost float64) error {
	if t == nil {
		return nil
	}
	if d := t.Reserve(name, cost); !d.Allowed {
		return capability.NewFailure(name, capability.BudgetExhausted, nil)
	}
	return nil
}

// scorer wraps a capability.Scorer with a per-cycle budget check.
type scorer struct {
	inner   capability.Scorer
	tracker *Tracker
}

// WrapScorer returns a Scorer that consults tracker before every call,
// spending one unit of CapScoring budget per batch.
func WrapScorer(inner capability.Scorer, tracker *Tracker) capability.Scorer {
	return &scorer{inner: inner, tracker: tracker}
}

func (s *scorer) Score(ctx context.Context, items []capability.ScoreInput) ([]capability.ScoreOutput, error) {
	if err := reserveOrFail(s.tracker, CapScoring, 1); err != nil {
		return nil, err
	}
	return s.inner.Score(ctx, items)
}

// fetcher wraps a capability.Fetcher with a per-cycle budget check under
// the given capability name (CapFetchPrimary or CapFetchFallback, so the
// two fetch providers can be budgeted independently).
type fetcher struct {
	inner   capability.Fetcher
	tracker *Tracker
	name    string
}

// WrapFetcher returns a Fetcher budgeted under name.
func WrapFetcher(inner capability.Fetcher, tracker *Tracker, name string) capability.Fetcher {
	return &fetcher{inner: inner, tracker: tracker, name: name}
}

func (f *fetcher) Fetch(ctx context.Context, url string) (*capability.FetchResult, error) {
	if err := reserveOrFail(f.tracker, f.name, 1); err != nil {
		return nil, err
	}
	return f.inner.Fetch(ctx, url)
}

// synthesizer wraps a capability.Synthesizer with a per-cycle budget check.
type synthesizer struct {
	inner   capability.Synthesizer
	tracker *Tracker
}

// WrapSynthesizer returns a Synthesizer budgeted under CapSynthesis.
func WrapSynthesizer(inner capability.Synthesizer, tracker *Tracker) capability.Synthesizer {
	return &synthesizer{inner: inner, tracker: tracker}
}

func (s *synthesizer) Synthesize(ctx context.Context, sources []capability.SourcePackage) (*capability.SynthesisOutput, error) {
	if err := reserveOrFail(s.tracker, CapSynthesis, 1); err != nil {
		return nil, err
	}
	return s.inner.Synthesize(ctx, sources)
}

// componentSelector wraps a capability.ComponentSelector with a per-cycle
// budget check.
type componentSelector struct {
	inner   capability.ComponentSelector
	tracker *Tracker
}

// WrapComponentSelector returns a ComponentSelector budgeted under
// CapComponentSelect.
func WrapComponentSelector(inner capability.ComponentSelector, tracker *Tracker) capability.ComponentSelector {
	return &componentSelector{inner: inner, tracker: tracker}
}

func (s *componentSelector) SelectComponents(ctx context.Context, in capability.ComponentSelectInput) (*capability.ComponentSelectOutput, error) {
	if err := reserveOrFail(s.tracker, CapComponentSelect, 1); err != nil {
		return nil, err
	}
	return s.inner.SelectComponents(ctx, in)
}

// componentRenderer wraps a capability.ComponentRenderer with a per-cycle
// budget check, spent once per component rendered rather than once per
// article.
type componentRenderer struct {
	inner   capability.ComponentRenderer
	tracker *Tracker
}

// WrapComponentRenderer returns a ComponentRenderer budgeted under
// CapComponentRender.
func WrapComponentRenderer(inner capability.ComponentRenderer, tracker *Tracker) capability.ComponentRenderer {
	return &componentRenderer{inner: inner, tracker: tracker}
}

func (r *componentRenderer) RenderComponent(ctx context.Context, in capability.ComponentRenderInput) (any, error) {
	if err := reserveOrFail(r.tracker, CapComponentRender, 1); err != nil {
		return nil, err
	}
	return r.inner.RenderComponent(ctx, in)
}

// searcher wraps a capability.Searcher with a per-cycle budget check.
type searcher struct {
	inner   capability.Searcher
	tracker *Tracker
}

// WrapSearcher returns a Searcher budgeted under CapSearch.
func WrapSearcher(inner capability.Searcher, tracker *Tracker) capability.Searcher {
	return &searcher{inner: inner, tracker: tracker}
}

func (s *searcher) Search(ctx context.Context, req capability.SearchRequest) (map[entity.ComponentKind]capability.ComponentBundle, error) {
	if err := reserveOrFail(s.tracker, CapSearch, 1); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, req)
}
