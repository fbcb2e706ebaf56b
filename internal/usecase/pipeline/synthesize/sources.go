// Package synthesize implements the synthesis stage (§4.6): packaging a
// cluster's members into a prompt, calling the synthesis capability, and
// validating the structured result before it's accepted.
package synthesize

import (
	"sort"
	"strings"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
)

const (
	maxSources       = 10   // M
	maxExcerptChars  = 1500 // P
	minSourcesWanted = 2
)

// PackageSources orders members by descending score, truncates to
// maxSources, excerpts each to maxExcerptChars, and includes low_text
// members only when needed to reach minSourcesWanted.
func PackageSources(members []*entity.SourceItem) []capability.SourcePackage {
	sorted := make([]*entity.SourceItem, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]) > scoreOf(sorted[j])
	})

	var withText, lowText []*entity.SourceItem
	for _, m := range sorted {
		if m.LowText {
			lowText = append(lowText, m)
		} else {
			withText = append(withText, m)
		}
	}

	selected := withText
	for _, m := range lowText {
		if len(selected) >= minSourcesWanted {
			break
		}
		selected = append(selected, m)
	}
	if len(selected) > maxSources {
		selected = selected[:maxSources]
	}

	packages := make([]capability.SourcePackage, 0, len(selected))
	for _, m := range selected {
		text := m.FullText
		if text == "" {
			text = m.Description
		}
		packages = append(packages, capability.SourcePackage{
			Publisher:   m.Source,
			Title:       m.Title,
			PublishedAt: m.PublishedAt.Format("2006-01-02T15:04:05Z07:00"),
			Excerpt:     excerpt(text, maxExcerptChars),
			LowText:     m.LowText,
		})
	}
	return packages
}

func scoreOf(item *entity.SourceItem) int {
	if item.Score == nil {
		return 0
	}
	return *item.Score
}

func excerpt(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
