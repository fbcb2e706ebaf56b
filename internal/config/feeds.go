package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// feedsFile is the on-disk shape of the static feed list: a flat array of
// publisher/URL/tier entries, grouped under a top-level "feeds" key so the
// file reads naturally next to an operator's other YAML config.
type feedsFile struct {
	Feeds []FeedDescriptor `yaml:"feeds"`
}

// LoadFeeds reads the static feed list from a YAML file. PipelineConfig.Feeds
// is deliberately not populated by LoadFromEnv (§6 calls feeds an operator
// interface concern, not a runtime tuning knob), so callers load it
// separately with this and assign it after LoadFromEnv returns.
func LoadFeeds(path string) ([]FeedDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file %s: %w", path, err)
	}

	var parsed feedsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse feeds file %s: %w", path, err)
	}

	for i, f := range parsed.Feeds {
		if f.Name == "" {
			return nil, fmt.Errorf("feeds file %s: entry %d is missing a name", path, i)
		}
		if f.FeedURL == "" {
			return nil, fmt.Errorf("feeds file %s: entry %q is missing a feed_url", path, f.Name)
		}
		if f.Tier < 1 || f.Tier > 3 {
			return nil, fmt.Errorf("feeds file %s: entry %q has tier %d, want 1-3", path, f.Name, f.Tier)
		}
	}

	return parsed.Feeds, nil
}
