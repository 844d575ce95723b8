package claimkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthledger/truthledger/pkg/models"
)

func TestCompute_StableAcrossKeyOrderAndCase(t *testing.T) {
	a, err := Compute("engine-1", "attr-isp", models.Scope{"altitude": "VAC", "throttle": 100.0})
	require.NoError(t, err)

	b, err := Compute("engine-1", "attr-isp", models.Scope{"throttle": 100.0, "altitude": "vac"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompute_DifferentScopeDifferentHash(t *testing.T) {
	a, err := Compute("engine-1", "attr-isp", models.Scope{"altitude": "vac"})
	require.NoError(t, err)

	b, err := Compute("engine-1", "attr-isp", models.Scope{"altitude": "sl"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCompute_RejectsNaN(t *testing.T) {
	_, err := Compute("engine-1", "attr-isp", models.Scope{"x": nanFloat()})
	assert.Error(t, err)
}

func TestCompute_DropsNullKeys(t *testing.T) {
	a, err := Compute("engine-1", "attr-isp", models.Scope{"altitude": "vac", "ignored": nil})
	require.NoError(t, err)

	b, err := Compute("engine-1", "attr-isp", models.Scope{"altitude": "vac"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDomainScope_IncludesSourceScope(t *testing.T) {
	src := models.Scope{"altitude": "vac"}
	ds := DomainScope("engines.isp_s", src)

	assert.Equal(t, "domain_default_v1", ds["profile"])
	assert.Equal(t, "engines.isp_s", ds["field"])
	assert.Equal(t, src, ds["derived_from_scope"])
}

func nanFloat() float64 {
	var zero float64
	return zero / zero
}
