// Package imagesel implements the representative-image selection stage
// (§4.5): scoring every member's candidate image and picking the best one
// per affected cluster.
package imagesel

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"newsloop/internal/domain/entity"
)

// dimensionPattern matches the common CDN "WxH" URL convention, e.g.
// "...-1200x800.jpg"; the "...?w=1200&h=800" query form is read by
// dimensionsFromQuery instead. Dimensions aren't persisted on
// SourceItem past ingest, so by the time this stage runs, the URL itself is
// the only place a size hint can still come from.
var dimensionPattern = regexp.MustCompile(`(\d{2,5})[xX](\d{2,5})`)

// Selection is the winning image candidate for one cluster.
type Selection struct {
	URL         string
	Attribution string
	SourceTier  entity.FeedTier
}

// tierScore implements the §4.5 source-reputation term.
func tierScore(tier entity.FeedTier) int {
	switch tier {
	case entity.Tier1:
		return 30
	case entity.Tier2:
		return 20
	case entity.Tier3:
		return 10
	default:
		return 0
	}
}

func dimensionScore(width, height int) int {
	area := width * height
	switch {
	case area <= 0:
		return 10
	case area >= 800*600:
		return 30
	case area >= 400*300:
		return 20
	default:
		return 10
	}
}

func aspectScore(width, height int) int {
	if width <= 0 || height <= 0 {
		return 10
	}
	ratio := float64(width) / float64(height)
	if ratio >= 1.3 && ratio <= 2.0 {
		return 20
	}
	return 10
}

func sourceItemScoreNormalized(item *entity.SourceItem) int {
	if item.Score == nil {
		return 0
	}
	// 0-1000 -> 0-20.
	return (*item.Score * 20) / 1000
}

func formatScore(imageURL string) int {
	lower := strings.ToLower(imageURL)
	if idx := strings.IndexAny(lower, "?#"); idx >= 0 {
		lower = lower[:idx]
	}
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"), strings.HasSuffix(lower, ".webp"):
		return 5
	case strings.HasSuffix(lower, ".png"):
		return 3
	default:
		return 0
	}
}

// candidateScore sums the §4.5 terms for one candidate.
func candidateScore(item *entity.SourceItem) int {
	width, height := inferDimensions(item.ImageURL)
	return tierScore(item.Tier) +
		dimensionScore(width, height) +
		aspectScore(width, height) +
		sourceItemScoreNormalized(item) +
		formatScore(item.ImageURL)
}

// inferDimensions attempts to read width/height from the image URL's path
// segments or query parameters. Returns (0, 0) if neither is present.
func inferDimensions(imageURL string) (int, int) {
	if w, h, ok := dimensionsFromQuery(imageURL); ok {
		return w, h
	}
	if m := dimensionPattern.FindStringSubmatch(imageURL); m != nil {
		w, errW := strconv.Atoi(m[1])
		h, errH := strconv.Atoi(m[2])
		if errW == nil && errH == nil {
			return w, h
		}
	}
	return 0, 0
}

func dimensionsFromQuery(imageURL string) (int, int, bool) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return 0, 0, false
	}
	q := parsed.Query()
	w, errW := strconv.Atoi(firstNonEmpty(q.Get("w"), q.Get("width")))
	h, errH := strconv.Atoi(firstNonEmpty(q.Get("h"), q.Get("height")))
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	return w, h, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
