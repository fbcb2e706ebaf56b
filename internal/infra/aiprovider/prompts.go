package aiprovider

import (
	"encoding/json"
	"fmt"

	"newsloop/internal/domain/entity"
)

// Prompt templates shared by every provider adapter. Each instructs the
// model to answer with JSON only, matching the shape the corresponding
// capability's output type expects; extractJSON tolerates a surrounding
// markdown fence if the model adds one anyway.

const scorePromptTemplate = `You are scoring news items for a Japanese news aggregator. For each item below, assign a newsworthiness score from 0 to 1000, a short category label, a single representative emoji, and one sentence of reasoning in Japanese.

Items (JSON array):
%s

Respond with a JSON array of the same length and order, one object per item:
[{"score": int, "category": string, "emoji": string, "reasoning": string}, ...]
Respond with JSON only, no other text.`

const synthesisPromptTemplate = `You are writing a Japanese news article from the source excerpts below, in two parallel registers: "pro" (professional journalism style) and "simple" (short sentences, plain vocabulary). Both registers must cover the same facts and be internally consistent with each other.

Sources (JSON array, ordered by relevance):
%s

Respond with a single JSON object:
{
  "title_pro": string,
  "title_simple": string,
  "bullets_pro": [string, string, string],
  "bullets_simple": [string, string, string],
  "body_pro": string,
  "body_simple": string,
  "category": string,
  "emoji": string
}
Respond with JSON only, no other text.`

const componentSelectPromptTemplate = `You are deciding which optional display components should accompany this article. The only allowed kinds are "timeline", "details", and "chart" — never propose any other kind. Select components in order of usefulness; omit any that would not add value.

Title: %s
Body: %s

Respond with a single JSON object:
{"components": [string, ...], "emoji": string, "chart_subtype": string}
"chart_subtype" may be empty if no chart was selected. Respond with JSON only, no other text.`

const componentRenderPromptTemplate = `You are rendering the "%s" component for this article from the supplied fact bundle. Use only facts present in the bundle; do not invent data.

Article title: %s
Article body: %s
Fact bundle (JSON):
%s

Respond with JSON only, matching one of these shapes depending on the component kind:
timeline: {"entries": [{"date": string, "event": string}, ...]}
details: {"facts": [string, string, string]}
chart: {"points": [{"date": string, "value": number, "label": string}, ...], "x_label": string, "y_label": string, "subtype": string}
Respond with JSON only, no other text.`

const searchPromptTemplate = `You are gathering supplementary facts to support the given article's optional components. Requested component kinds: %[3]s

Article title: %[1]s
Article excerpt: %[2]s

Respond with a single JSON object keyed by component kind, containing only the keys that were requested:
{
  "timeline": [{"date": string, "event": string}, ...],
  "details": [string, ...],
  "chart": {"points": [{"date": string, "value": number, "label": string}], "xlabel": string, "ylabel": string}
}
Respond with JSON only, no other text.`

// parseComponentPayload unmarshals a component-render response into the
// concrete payload type its kind requires, the same type-per-kind contract
// capability.ComponentRenderer documents.
func parseComponentPayload(kind entity.ComponentKind, raw string) (any, error) {
	switch kind {
	case entity.ComponentTimeline:
		var payload entity.TimelinePayload
		if err := unmarshalResponse(raw, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case entity.ComponentDetails:
		var payload entity.DetailsPayload
		if err := unmarshalResponse(raw, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case entity.ComponentChart:
		var payload entity.ChartPayload
		if err := unmarshalResponse(raw, &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	default:
		return nil, fmt.Errorf("component render: unsupported kind %q", kind)
	}
}

// marshalComponents is a small helper so both provider adapters format the
// requested-component list identically in the search prompt.
func marshalComponents(kinds []entity.ComponentKind) (string, error) {
	b, err := json.Marshal(kinds)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
