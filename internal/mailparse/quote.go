// Package mailparse splits semi-structured email bodies into new content and
// quoted prior history. It is heuristic line-anchored matching, not a MIME
// parser: a ">" that legitimately starts a line of new content will be taken
// for a quote marker.
package mailparse

import (
	"regexp"
	"strings"
)

// Boundary patterns, each anchored to the start of a line. The earliest match
// across all patterns is the quote boundary.
var boundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^On .+wrote:`),
	regexp.MustCompile(`(?m)^---- ?Forwarded message`),
	regexp.MustCompile(`(?m)^(>|&gt;)`),
}

// Split divides body into the author's new content and the quoted segment
// from the first boundary onward. quoted is empty when no boundary exists.
//
// The input is whitespace-trimmed before scanning, so re-running Split on a
// returned main body finds no further boundary: everything before the first
// boundary is boundary-free by construction, and trimming cannot promote a
// mid-line marker to the start of a line.
func Split(body string) (main, quoted string) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", ""
	}

	idx := -1
	for _, pattern := range boundaryPatterns {
		loc := pattern.FindStringIndex(trimmed)
		if loc == nil {
			continue
		}
		if idx == -1 || loc[0] < idx {
			idx = loc[0]
		}
	}
	if idx < 0 {
		return trimmed, ""
	}
	return strings.TrimSpace(trimmed[:idx]), trimmed[idx:]
}
