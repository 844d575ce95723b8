package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

func testPolicy() *config.ScorerPolicy {
	return config.DefaultScorerPolicy()
}

func TestRecencyScore_SupersededIsZero(t *testing.T) {
	now := time.Now()
	published := now.Add(-24 * time.Hour)
	got := recencyScore(&published, true, now, testPolicy())
	assert.Equal(t, 0.0, got)
}

func TestRecencyScore_NilPublishedUsesFloor(t *testing.T) {
	policy := testPolicy()
	got := recencyScore(nil, false, time.Now(), policy)
	assert.Equal(t, policy.RecencyFloor, got)
}

func TestRecencyScore_DecaysWithAge(t *testing.T) {
	policy := testPolicy()
	now := time.Now()
	recent := now.Add(-1 * 24 * time.Hour)
	old := now.Add(-1000 * 24 * time.Hour)

	recentScore := recencyScore(&recent, false, now, policy)
	oldScore := recencyScore(&old, false, now, policy)

	assert.Greater(t, recentScore, oldScore)
	assert.InDelta(t, 1.0, recentScore, 0.01)
}

func TestRecencyScore_FloorClampsVeryOldDocuments(t *testing.T) {
	policy := testPolicy()
	now := time.Now()
	ancient := now.Add(-50 * 365 * 24 * time.Hour)
	got := recencyScore(&ancient, false, now, policy)
	assert.Equal(t, policy.RecencyFloor, got)
}

func TestClusterWeight_HarmonicSchedule(t *testing.T) {
	assert.Equal(t, 1.0, clusterWeight(1))
	assert.Equal(t, 0.5, clusterWeight(2))
	assert.InDelta(t, 1.0/3.0, clusterWeight(3), 0.0001)
}

func TestClusterWeight_BelowOneTreatedAsFirst(t *testing.T) {
	assert.Equal(t, 1.0, clusterWeight(0))
}

func evidenceRow(stance string, effective float64, lowQuality bool) weighted {
	return weighted{
		detail: &store.EvidenceDetail{
			Evidence: &models.Evidence{Stance: stance},
		},
		effective:    effective,
		isLowQuality: lowQuality,
	}
}

func TestAggregateStances_SplitsSupportContradictionAndLowQuality(t *testing.T) {
	rows := []weighted{
		evidenceRow(models.StanceSupport, 1.0, false),
		evidenceRow(models.StanceSupport, 0.4, true),
		evidenceRow(models.StanceContradict, 0.3, false),
		evidenceRow(models.StanceNeutral, 5.0, false),
	}

	support, contradiction, lowQ := aggregateStances(rows)
	assert.InDelta(t, 1.4, support, 0.0001)
	assert.InDelta(t, 0.3, contradiction, 0.0001)
	assert.InDelta(t, 0.4, lowQ, 0.0001)
}

func TestClamp01_ClampsBothEnds(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.42, clamp01(0.42))
}

func TestCountIndependentSources_UsesClusterThenSourceID(t *testing.T) {
	evidence := []*store.EvidenceDetail{
		{SourceIndependenceClusterID: "cluster-a", SourceID: "src-1"},
		{SourceIndependenceClusterID: "cluster-a", SourceID: "src-2"},
		{SourceIndependenceClusterID: "", SourceID: "src-3"},
	}
	assert.Equal(t, 2, countIndependentSources(evidence))
}

func TestBuildFactors_TopContributorsCappedAtFive(t *testing.T) {
	policy := testPolicy()
	var rows []weighted
	for i := 0; i < 8; i++ {
		rows = append(rows, weighted{
			detail: &store.EvidenceDetail{
				SourceName: "source",
				Evidence:   &models.Evidence{Stance: models.StanceSupport},
			},
			effective: float64(i),
		})
	}

	factors := buildFactors(rows, policy, false)
	top, ok := factors["top_contributors"].([]map[string]any)
	assert.True(t, ok)
	assert.Len(t, top, 5)
	// highest effective weight (7) must be first
	assert.InDelta(t, 7.0, top[0]["effective_weight"].(float64), 0.0001)
	assert.Equal(t, 8, factors["evidence_count"])
	assert.Equal(t, false, factors["low_quality_capped"])
}
