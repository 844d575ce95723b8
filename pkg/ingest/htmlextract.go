package ingest

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
)

// extracted is the result of the HTML fetch protocol (spec §4.1 "Fetch
// protocol (HTML variant)").
type extracted struct {
	Title       string
	Content     string
	PublishedAt *time.Time
}

var noisySelectors = []string{"script", "style", "nav", "header", "footer", "aside"}

// extractHTML implements spec §4.1 steps 2-6: title with URL-segment
// fallback, noisy-tag removal, main/article/content preference with a
// readability fallback, and published-date resolution from the first
// parseable of the documented meta sources.
func extractHTML(rawURL, html string) (*extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = titleFromURL(rawURL)
	}

	for _, sel := range noisySelectors {
		doc.Find(sel).Remove()
	}

	content := firstNonEmpty(
		blockText(doc.Find("main").First()),
		blockText(doc.Find("article").First()),
		blockText(doc.Find("div[class*='content']").First()),
	)
	if content == "" {
		content = readabilityFallback(rawURL, html)
	}
	if content == "" {
		content = blockText(doc.Find("body").First())
	}

	return &extracted{
		Title:       title,
		Content:     content,
		PublishedAt: extractPublishedAt(doc),
	}, nil
}

// readabilityFallback hands the raw document to go-shiori/go-readability
// when none of the preferred selectors produced usable content — pages
// that bury their article body in unpredictable wrapper markup.
func readabilityFallback(rawURL, html string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return ""
	}
	return collapseWhitespace(article.TextContent)
}

// blockText joins the text of a container's block-level descendants with
// blank-line separators, giving the Snippetizer's blank-line-run split
// (spec §4.1 step 3/§4.1 Snippetization) something real to split on —
// goquery's plain Text() concatenates text nodes with no such boundary.
func blockText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var blocks []string
	found := sel.Find("p, li, tr, td, h1, h2, h3, h4, h5, h6")
	if found.Length() == 0 {
		return collapseWhitespace(sel.Text())
	}
	found.Each(func(_ int, s *goquery.Selection) {
		if t := collapseWhitespace(s.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	return strings.Join(blocks, "\n\n")
}

func titleFromURL(rawURL string) string {
	segment := path.Base(rawURL)
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	return strings.ReplaceAll(segment, "-", " ")
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// extractPublishedAt tries, in order, article:published_time, date/DC.date
// meta tags, then the first <time datetime> attribute (spec §4.1 step 6).
func extractPublishedAt(doc *goquery.Document) *time.Time {
	candidates := []string{}

	if v, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find(`meta[name="date"]`).First().Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find(`meta[name="DC.date"]`).First().Attr("content"); ok {
		candidates = append(candidates, v)
	}
	doc.Find("time[datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if v, ok := sel.Attr("datetime"); ok {
			candidates = append(candidates, v)
		}
		return len(candidates) < 10
	})

	for _, c := range candidates {
		if t, err := dateparse.ParseAny(c); err == nil {
			return &t
		}
	}
	return nil
}
