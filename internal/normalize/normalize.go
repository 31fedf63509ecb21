// Package normalize extracts canonical video URLs from free-form text.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/famomatic/ytcourier/internal/types"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	wsPattern  = regexp.MustCompile(`\s+`)

	idPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

	// One recognizer per URL shape the inbound text may carry.
	recognizers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://(?:www\.)?youtube\.com/watch\?(?:[^"\s]*&)?v=([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?youtu\.be/([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?youtube\.com/embed/([0-9A-Za-z_-]{11})`),
	}

	urlOrIDPattern = regexp.MustCompile(`(?:v=|/shorts/|/embed/|youtu\.be/)([0-9A-Za-z_-]{11})`)
)

// CanonicalURL reconstructs the canonical watch URL for a video id.
func CanonicalURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}

// ExtractVideoID accepts a raw 11-char id or any recognized URL shape.
// Used by the HTTP surface to validate a single explicit url parameter.
func ExtractVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", types.ErrInvalidInput
	}
	if idPattern.MatchString(s) {
		return s, nil
	}
	if m := urlOrIDPattern.FindStringSubmatch(s); len(m) == 2 {
		return m[1], nil
	}
	return "", types.ErrInvalidInput
}

// Extract returns canonical watch URLs for every video id found in text,
// ordered by first occurrence and deduplicated by id. It never fails:
// malformed or empty input yields an empty slice.
func Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	clean := wsPattern.ReplaceAllString(tagPattern.ReplaceAllString(text, " "), " ")

	type hit struct {
		pos int
		id  string
	}
	var hits []hit
	for _, re := range recognizers {
		for _, m := range re.FindAllStringSubmatchIndex(clean, -1) {
			if len(m) < 4 {
				continue
			}
			hits = append(hits, hit{pos: m[0], id: clean[m[2]:m[3]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]struct{}, len(hits))
	urls := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.id]; dup {
			continue
		}
		seen[h.id] = struct{}{}
		urls = append(urls, CanonicalURL(h.id))
	}
	return urls
}
