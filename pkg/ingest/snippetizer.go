package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/truthledger/truthledger/pkg/models"
)

const (
	minParagraphLen = 50
	sentenceSplitAt = 1000
	subSplitAt      = 2000
)

// paragraph is an intermediate snippet before hashing (spec §4.1
// "Snippetization").
type paragraph struct {
	Locator string
	Text    string
	Type    string
}

var blankLineRun = regexp.MustCompile(`\n\s*\n+`)

// sentenceBoundary matches a sentence terminator followed by whitespace
// and an uppercase letter (spec §4.1 "secondary split on sentence-boundary").
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// Snippetize implements the Snippetizer (spec §4.1): blank-line paragraph
// split, sentence-boundary secondary split for long blocks, type
// detection, deterministic locators, and >2000-char sub-splitting.
func Snippetize(urlPath string, content string) []paragraph {
	var out []paragraph
	index := 0

	for _, block := range blankLineRun.Split(content, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if len(block) > subSplitAt {
			out = append(out, buildParagraphs(urlPath, &index, block)...)
			continue
		}
		for _, chunk := range splitLong(block, sentenceSplitAt) {
			chunk = strings.TrimSpace(chunk)
			if len(chunk) < minParagraphLen {
				continue
			}
			out = append(out, buildParagraphs(urlPath, &index, chunk)...)
		}
	}
	return out
}

// buildParagraphs emits one paragraph, or several suffixed sub-snippets
// when chunk exceeds subSplitAt (spec §4.1 "Paragraphs exceeding ~2000
// chars are split ... into sub-snippets :<i> suffixes").
func buildParagraphs(urlPath string, index *int, chunk string) []paragraph {
	base := locatorFor(urlPath, *index, chunk)
	*index++

	if len(chunk) <= subSplitAt {
		return []paragraph{{Locator: base, Text: chunk, Type: detectType(chunk)}}
	}

	var out []paragraph
	for i, sub := range splitLong(chunk, subSplitAt) {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		out = append(out, paragraph{
			Locator: fmt.Sprintf("%s:%d", base, i),
			Text:    sub,
			Type:    detectType(sub),
		})
	}
	return out
}

// splitLong splits text at sentence boundaries when it exceeds limit,
// otherwise returns it whole (spec §4.1 both split thresholds share this
// sentence-boundary mechanism).
func splitLong(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var parts []string
	start := 0
	for _, loc := range locs {
		breakAt := loc[0] + 1 // keep the terminator with the preceding sentence
		if breakAt-start >= limit/2 {
			parts = append(parts, text[start:breakAt])
			start = breakAt
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

var (
	tableRe    = regexp.MustCompile(`([|\t].*){2,}`)
	bulletRe   = regexp.MustCompile(`^\s*([-*•]|\d+[.)])\s+`)
	equationRe = regexp.MustCompile(`(?i)[=<>≤≥].*\d|\d.*[=<>≤≥]|\b(sin|cos|tan|log|ln|sqrt)\b`)
)

// detectType classifies a paragraph's shape (spec §4.1 "Type detection").
func detectType(text string) string {
	switch {
	case tableRe.MatchString(text):
		return models.SnippetTypeTable
	case bulletRe.MatchString(text):
		return models.SnippetTypeList
	case equationRe.MatchString(text):
		return models.SnippetTypeEquation
	default:
		return models.SnippetTypeText
	}
}

// locatorFor builds the deterministic locator (spec §4.1 "Locator"):
// <url-path>#p<index>:<first-20-chars-of-text>.
func locatorFor(urlPath string, index int, text string) string {
	prefix := text
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}
	return fmt.Sprintf("%s#p%d:%s", urlPath, index, prefix)
}
