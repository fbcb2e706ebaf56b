// Package component implements component selection, context gathering, and
// rendering (§4.7): deciding which of {timeline, details, chart} an article
// carries, fetching supporting facts, and rendering each into its payload.
package component

import (
	"context"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
)

// defaultComponents is the fallback ordered set used when the selection
// capability returns an empty or fully-invalid list.
var defaultComponents = []entity.ComponentKind{entity.ComponentDetails, entity.ComponentTimeline}

const maxComponents = 3

// selectComponents validates a capability's raw selection against the
// allowed set, discarding unknown kinds (including any "geographic" tag —
// that kind is never defined as an entity.ComponentKind constant, so it can
// only ever arrive here as a string the validator below rejects at the
// call site) and capping the ordered list to maxComponents. Falls back to
// defaultComponents when nothing survives.
func selectComponents(out *capability.ComponentSelectOutput) []entity.ComponentKind {
	if out == nil {
		return defaultComponents
	}

	var valid []entity.ComponentKind
	seen := make(map[entity.ComponentKind]bool)
	for _, kind := range out.Components {
		if !entity.AllowedComponentKinds[kind] || seen[kind] {
			continue
		}
		seen[kind] = true
		valid = append(valid, kind)
		if len(valid) == maxComponents {
			break
		}
	}

	if len(valid) == 0 {
		return defaultComponents
	}
	return valid
}

// Selector wraps a capability.ComponentSelector with §4.7's validation and
// fallback rules.
type Selector struct {
	Capability capability.ComponentSelector
}

// NewSelector constructs a Selector.
func NewSelector(c capability.ComponentSelector) *Selector {
	return &Selector{Capability: c}
}

// Select asks the capability which components to attach and returns the
// validated, possibly-fallback ordered list. A capability call failure is
// reported as a Transient capability.Failure rather than silently falling
// back, since §4.7's fallback rule is about an empty or invalid *output*,
// not a failed call.
func (s *Selector) Select(ctx context.Context, title, body string) ([]entity.ComponentKind, error) {
	out, err := s.Capability.SelectComponents(ctx, capability.ComponentSelectInput{Title: title, Body: body})
	if err != nil {
		return nil, capability.NewFailure("component-select", capability.Transient, err)
	}
	return selectComponents(out), nil
}
