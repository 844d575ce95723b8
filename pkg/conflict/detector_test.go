package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/truthledger/truthledger/pkg/models"
	"github.com/truthledger/truthledger/pkg/store"
)

func engineAttr() *models.Attribute {
	return &models.Attribute{ID: "attr-1", ValueType: "number", ToleranceRel: 0.02}
}

func detailAt(value float64, evidence int, published time.Time) *store.ClaimDetail {
	return &store.ClaimDetail{
		Claim:           &models.Claim{Value: models.ClaimValue{Value: value, Type: "number"}},
		EvidenceCount:   evidence,
		LatestPublished: &published,
	}
}

func TestValuesEqual_WithinTolerance(t *testing.T) {
	attr := engineAttr()
	a := models.ClaimValue{Value: 350.0, Type: "number"}
	b := models.ClaimValue{Value: 351.0, Type: "number"}
	assert.True(t, valuesEqual(a, b, attr))
}

func TestValuesEqual_OutsideTolerance(t *testing.T) {
	attr := engineAttr()
	a := models.ClaimValue{Value: 350.0, Type: "number"}
	b := models.ClaimValue{Value: 400.0, Type: "number"}
	assert.False(t, valuesEqual(a, b, attr))
}

func TestValuesEqual_TypeMismatchNeverEqual(t *testing.T) {
	attr := engineAttr()
	a := models.ClaimValue{Value: 350.0, Type: "number"}
	b := models.ClaimValue{Value: "350", Type: "string"}
	assert.False(t, valuesEqual(a, b, attr))
}

func TestGroupByValue_SingleClassWhenAllAgree(t *testing.T) {
	now := time.Now()
	attr := engineAttr()
	details := []*store.ClaimDetail{
		detailAt(350.0, 2, now),
		detailAt(351.0, 1, now.Add(-time.Hour)),
	}
	classes := groupByValue(details, attr)
	assert.Len(t, classes, 1)
	assert.Equal(t, 3, classes[0].evidenceCount)
}

func TestGroupByValue_MultipleClassesWhenDisagreeing(t *testing.T) {
	now := time.Now()
	attr := engineAttr()
	details := []*store.ClaimDetail{
		detailAt(350.0, 2, now),
		detailAt(500.0, 1, now),
	}
	classes := groupByValue(details, attr)
	assert.Len(t, classes, 2)
}

func TestGapAtLeast_RequiresBothTimes(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-200 * 24 * time.Hour)
	assert.True(t, gapAtLeast(&now, &earlier, versioningWindow))
	assert.False(t, gapAtLeast(nil, &earlier, versioningWindow))
}

func TestLaterThan_NilTreatedAsEarliest(t *testing.T) {
	now := time.Now()
	assert.True(t, laterThan(&now, nil))
	assert.False(t, laterThan(nil, &now))
}
