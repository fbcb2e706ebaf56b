package entity

// ComponentKind is one of the allowed optional article components. The
// allowed set is deliberately small and closed: a "geographic" kind is
// intentionally absent from this list so it can never be selected or
// rendered, even if a capability returns it.
type ComponentKind string

const (
	ComponentTimeline ComponentKind = "timeline"
	ComponentDetails  ComponentKind = "details"
	ComponentChart    ComponentKind = "chart"
)

// AllowedComponentKinds is the closed set of components the pipeline will
// ever select, generate or render.
var AllowedComponentKinds = map[ComponentKind]bool{
	ComponentTimeline: true,
	ComponentDetails:  true,
	ComponentChart:    true,
}

// TimelineEntry is one point in a timeline component.
type TimelineEntry struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

// ChartPoint is one point in a chart component.
type ChartPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// TimelinePayload is the rendered payload for a timeline component.
type TimelinePayload struct {
	Entries []TimelineEntry `json:"entries"`
}

// DetailsPayload is the rendered payload for a details component.
type DetailsPayload struct {
	Facts []string `json:"facts"` // exactly 3 "Label: Value" strings
}

// ChartPayload is the rendered payload for a chart component.
type ChartPayload struct {
	Points  []ChartPoint `json:"points"`
	XLabel  string       `json:"x_label"`
	YLabel  string       `json:"y_label"`
	Subtype string       `json:"subtype,omitempty"`
}

// ComponentSet holds the ordered list of selected components and the
// payload generated for each, keyed by kind. It is the tagged union
// referenced by the pipeline's re-architecture notes: a closed set of
// kinds, each with its own typed payload shape.
type ComponentSet struct {
	Order    []ComponentKind
	Timeline *TimelinePayload
	Details  *DetailsPayload
	Chart    *ChartPayload
}

// PayloadFor returns whether the given kind has a non-nil payload attached.
func (c *ComponentSet) PayloadFor(kind ComponentKind) bool {
	switch kind {
	case ComponentTimeline:
		return c.Timeline != nil
	case ComponentDetails:
		return c.Details != nil
	case ComponentChart:
		return c.Chart != nil
	default:
		return false
	}
}

// Drop removes a kind from the ordered list, used when a component's
// payload fails validation after generation.
func (c *ComponentSet) Drop(kind ComponentKind) {
	out := c.Order[:0]
	for _, k := range c.Order {
		if k != kind {
			out = append(out, k)
		}
	}
	c.Order = out
	switch kind {
	case ComponentTimeline:
		c.Timeline = nil
	case ComponentDetails:
		c.Details = nil
	case ComponentChart:
		c.Chart = nil
	}
}
