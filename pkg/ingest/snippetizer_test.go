package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truthledger/truthledger/pkg/models"
)

func TestSnippetize_DropsShortParagraphs(t *testing.T) {
	content := "too short\n\nThis paragraph is long enough to survive the fifty character minimum length check easily."
	paras := Snippetize("/engines/raptor", content)

	assert.Len(t, paras, 1)
	assert.Contains(t, paras[0].Text, "fifty character minimum")
}

func TestSnippetize_DetectsTableType(t *testing.T) {
	content := "Engine | Thrust | Isp\nRaptor | 2300kN | 350s\nThis row has enough columns to read as tabular data for sure."
	paras := Snippetize("/engines/raptor", content)

	require_ := assert.New(t)
	require_.NotEmpty(paras)
	assert.Equal(t, models.SnippetTypeTable, paras[0].Type)
}

func TestSnippetize_DetectsListType(t *testing.T) {
	content := "1. First bullet item that is long enough to clear the minimum paragraph length threshold for sure."
	paras := Snippetize("/engines/raptor", content)

	assert.NotEmpty(t, paras)
	assert.Equal(t, models.SnippetTypeList, paras[0].Type)
}

func TestSnippetize_LocatorIsDeterministic(t *testing.T) {
	content := "This is a perfectly ordinary paragraph of text describing an engine's specifications in prose."
	a := Snippetize("/engines/raptor", content)
	b := Snippetize("/engines/raptor", content)

	assert.Equal(t, a[0].Locator, b[0].Locator)
	assert.Contains(t, a[0].Locator, "/engines/raptor#p0:")
}

func TestSnippetize_SplitsOversizedParagraphIntoSubSnippets(t *testing.T) {
	sentence := "The Raptor engine produces substantial thrust. "
	long := strings.Repeat(sentence, 60) // well over 2000 chars
	paras := Snippetize("/engines/raptor", long)

	assert.Greater(t, len(paras), 1)
	assert.Contains(t, paras[1].Locator, ":1")
}

func TestDetectType_Equation(t *testing.T) {
	assert.Equal(t, models.SnippetTypeEquation, detectType("Isp = thrust / (mass_flow * g0) for this particular configuration entirely."))
}
