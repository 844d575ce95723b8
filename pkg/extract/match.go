package extract

import (
	"regexp"
	"strings"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
)

// match is a single regex hit after unit conversion and confidence
// scoring (spec §4.3 step 5).
type match struct {
	Value      float64
	Confidence float64
	Quote      string
}

const (
	baseConfidence      = 0.70
	aliasProximityBonus = 0.15
	tableBonus          = 0.10
	maxConfidence       = 0.95
	aliasProximityChars = 200
	quoteRadiusChars    = 150
)

// findMatches runs every regex in extractorCfg against snippet text and
// returns one match per regex hit (spec §4.3 step 5). aliases drives the
// proximity bonus; snippetType drives the table bonus.
func findMatches(extractorCfg *config.ExtractorConfig, entity *models.Entity, snippetType, text string) []match {
	var out []match
	for _, pattern := range extractorCfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			m, ok := buildMatch(extractorCfg, entity, snippetType, text, loc)
			if ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func buildMatch(extractorCfg *config.ExtractorConfig, entity *models.Entity, snippetType, text string, loc []int) (match, bool) {
	if len(loc) < 4 || loc[2] < 0 || loc[3] < 0 {
		return match{}, false
	}
	valueRaw := text[loc[2]:loc[3]]
	value, ok := parseNumber(valueRaw)
	if !ok {
		return match{}, false
	}

	unit := extractorCfg.TargetUnit
	if len(loc) >= 6 && loc[4] >= 0 && loc[5] >= 0 {
		unit = strings.ToLower(text[loc[4]:loc[5]])
	}
	factor, ok := extractorCfg.UnitFactors[unit]
	if !ok {
		factor = 1.0
	}
	value *= factor

	matchStart, matchEnd := loc[0], loc[1]
	confidence := confidenceFor(text, matchStart, matchEnd, entity, snippetType)

	return match{
		Value:      value,
		Confidence: confidence,
		Quote:      quoteAround(text, matchStart, matchEnd),
	}, true
}

// confidenceFor implements spec §4.3 step 5 "Confidence": base 0.70,
// +0.15 if an entity alias appears within ±200 chars of the match, +0.10
// if the snippet is a table, capped at 0.95.
func confidenceFor(text string, start, end int, entity *models.Entity, snippetType string) float64 {
	confidence := baseConfidence

	windowStart := start - aliasProximityChars
	if windowStart < 0 {
		windowStart = 0
	}
	windowEnd := end + aliasProximityChars
	if windowEnd > len(text) {
		windowEnd = len(text)
	}
	window := strings.ToLower(text[windowStart:windowEnd])

	if aliasNearby(window, entity) {
		confidence += aliasProximityBonus
	}
	if snippetType == models.SnippetTypeTable {
		confidence += tableBonus
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

func aliasNearby(lowerWindow string, entity *models.Entity) bool {
	if entity == nil {
		return false
	}
	if strings.Contains(lowerWindow, strings.ToLower(entity.CanonicalName)) {
		return true
	}
	for _, alias := range entity.Aliases {
		if strings.Contains(lowerWindow, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// quoteAround extracts ±150 chars around the match, ellipsis-trimmed and
// whitespace-collapsed (spec §4.3 step 5 "Quote").
func quoteAround(text string, start, end int) string {
	lo := start - quoteRadiusChars
	prefix := ""
	if lo < 0 {
		lo = 0
	} else {
		prefix = "…"
	}
	hi := end + quoteRadiusChars
	suffix := ""
	if hi > len(text) {
		hi = len(text)
	} else {
		suffix = "…"
	}
	return prefix + collapseSpaces(text[lo:hi]) + suffix
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

var (
	vacuumRe   = regexp.MustCompile(`vacuum|\bvac\b`)
	seaLevelRe = regexp.MustCompile(`sea level|\bsl\b`)
	throttleRe = regexp.MustCompile(`(\d{1,3})%\s*throttle`)
)

// inferScope scans the snippet for altitude/throttle cues (spec §4.3
// step 5 "Scope inference").
func inferScope(text string) models.Scope {
	lower := strings.ToLower(text)
	scope := models.Scope{}

	switch {
	case vacuumRe.MatchString(lower):
		scope["altitude"] = "vac"
	case seaLevelRe.MatchString(lower):
		scope["altitude"] = "sl"
	}

	if m := throttleRe.FindStringSubmatch(lower); m != nil {
		scope["throttle"] = m[1] + "%"
	}

	return scope
}
