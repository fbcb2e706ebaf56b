package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var trackingParamPrefixes = []string{"utm_", "gclid", "fbclid", "mc_cid", "mc_eid", "ref", "igshid"}

// CanonicalizeURL applies the ingest stage's URL canonicalisation rules:
// strip tracking query parameters and the fragment, resolve protocol-relative
// forms to https, and lower-case the host. It does not attempt to resolve
// relative URLs; callers must pass an absolute or protocol-relative URL.
func CanonicalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := splitURL(raw)
	if err != nil {
		return "", err
	}

	u.host = strings.ToLower(u.host)
	u.fragment = ""

	if u.rawQuery != "" {
		kept := make([]string, 0)
		for _, pair := range strings.Split(u.rawQuery, "&") {
			if pair == "" {
				continue
			}
			key := pair
			if idx := strings.IndexByte(pair, '='); idx >= 0 {
				key = pair[:idx]
			}
			key = strings.ToLower(key)
			if isTrackingParam(key) {
				continue
			}
			kept = append(kept, pair)
		}
		sort.Strings(kept)
		u.rawQuery = strings.Join(kept, "&")
	}

	return u.String(), nil
}

func isTrackingParam(key string) bool {
	for _, prefix := range trackingParamPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// minimal URL splitter kept local to avoid importing net/url's fragment
// re-escaping quirks for query params we want to preserve verbatim.
type splitURLParts struct {
	scheme, host, path, rawQuery, fragment string
}

func splitURL(raw string) (*splitURLParts, error) {
	if err := ValidateURL(raw); err != nil {
		return nil, err
	}
	u := &splitURLParts{}
	rest := raw
	if idx := strings.Index(rest, "://"); idx >= 0 {
		u.scheme = rest[:idx]
		rest = rest[idx+3:]
	}
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		u.fragment = rest[idx+1:]
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		u.rawQuery = rest[idx+1:]
		rest = rest[:idx]
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		u.host = rest[:idx]
		u.path = rest[idx:]
	} else {
		u.host = rest
		u.path = "/"
	}
	return u, nil
}

func (u *splitURLParts) String() string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteString("://")
	b.WriteString(u.host)
	b.WriteString(u.path)
	if u.rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.rawQuery)
	}
	return b.String()
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Fingerprint computes the ingest stage's duplicate-detection hash: SHA-256
// of the lower-cased, whitespace-collapsed title concatenated with the
// lower-cased source name.
func Fingerprint(title, source string) string {
	normTitle := whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	normSource := strings.ToLower(strings.TrimSpace(source))
	sum := sha256.Sum256([]byte(normTitle + normSource))
	return hex.EncodeToString(sum[:])
}
