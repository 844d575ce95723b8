package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/config"
	"github.com/truthledger/truthledger/pkg/models"
)

func claimAt(id string, value float64, createdAt time.Time) *models.Claim {
	return &models.Claim{ID: id, Value: models.ClaimValue{Value: value, Type: "number"}, CreatedAt: createdAt}
}

func TestSelectCandidate_BestSupportedTakesTop(t *testing.T) {
	now := time.Now()
	candidates := []candidate{
		{claim: claimAt("a", 100, now)},
		{claim: claimAt("b", 200, now)},
	}
	chosen, err := selectCandidate(candidates, config.AggregationBestSupported)
	require.NoError(t, err)
	assert.Equal(t, "a", chosen.ID)
}

func TestSelectCandidate_LatestPicksNewestCreatedAt(t *testing.T) {
	now := time.Now()
	candidates := []candidate{
		{claim: claimAt("a", 100, now.Add(-time.Hour))},
		{claim: claimAt("b", 200, now)},
	}
	chosen, err := selectCandidate(candidates, config.AggregationLatest)
	require.NoError(t, err)
	assert.Equal(t, "b", chosen.ID)
}

func TestSelectCandidate_MaxPicksExtremeValue(t *testing.T) {
	now := time.Now()
	candidates := []candidate{
		{claim: claimAt("a", 100, now)},
		{claim: claimAt("b", 350, now)},
		{claim: claimAt("c", 200, now)},
	}
	chosen, err := selectCandidate(candidates, config.AggregationMax)
	require.NoError(t, err)
	assert.Equal(t, "b", chosen.ID)
}

func TestSelectCandidate_MinPicksExtremeValue(t *testing.T) {
	now := time.Now()
	candidates := []candidate{
		{claim: claimAt("a", 100, now)},
		{claim: claimAt("b", 350, now)},
		{claim: claimAt("c", 200, now)},
	}
	chosen, err := selectCandidate(candidates, config.AggregationMin)
	require.NoError(t, err)
	assert.Equal(t, "a", chosen.ID)
}

func TestSelectCandidate_AverageComputesMean(t *testing.T) {
	now := time.Now()
	candidates := []candidate{
		{claim: claimAt("a", 100, now)},
		{claim: claimAt("b", 200, now)},
	}
	chosen, err := selectCandidate(candidates, config.AggregationAverage)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, chosen.Value.Value, 0.001)
	assert.Equal(t, "a", chosen.ID) // synthetic copy keeps candidates[0]'s identity fields
}

func TestSelectCandidate_UnknownAggregationErrors(t *testing.T) {
	candidates := []candidate{{claim: claimAt("a", 100, time.Now())}}
	_, err := selectCandidate(candidates, config.AggregationType("bogus"))
	assert.Error(t, err)
}
