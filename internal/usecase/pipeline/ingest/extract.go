package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectImageURL applies the §4.1 priority order over a feed entry's media
// candidates: media:content, then media:thumbnail, then an image
// enclosure, then the first <img> found in the entry's description HTML.
// Returns "" if none is present.
func SelectImageURL(entry FeedEntry) string {
	if len(entry.MediaContent) > 0 {
		return entry.MediaContent[0].URL
	}
	if len(entry.MediaThumbnail) > 0 {
		return entry.MediaThumbnail[0].URL
	}
	if len(entry.ImageEnclosures) > 0 {
		return entry.ImageEnclosures[0].URL
	}
	return firstImgSrc(entry.Description)
}

// firstImgSrc parses the given HTML fragment and returns the src attribute
// of the first <img> element, or "" if there is none or the fragment
// doesn't parse.
func firstImgSrc(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}
