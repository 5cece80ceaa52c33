package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBiasType(t *testing.T) {
	assert.Equal(t, BiasTypeGender, ParseBiasType("gender"))
	assert.Equal(t, BiasTypePolitical, ParseBiasType("  Political "))
	assert.Equal(t, BiasTypeAnchoring, ParseBiasType("ANCHORING"))
	assert.Equal(t, BiasTypeOther, ParseBiasType("other"))

	// Anything outside the taxonomy folds into the catch-all bucket.
	assert.Equal(t, BiasTypeOther, ParseBiasType("recency"))
	assert.Equal(t, BiasTypeOther, ParseBiasType(""))
}

func TestBiasInstancesValueScanRoundTrip(t *testing.T) {
	original := BiasInstances{
		{
			Type:          BiasTypeGender,
			Text:          "biased passage",
			Explanation:   "stereotype",
			Severity:      0.8,
			StartPosition: 4,
			EndPosition:   19,
			Suggestions:   "rephrase",
		},
	}

	value, err := original.Value()
	assert.NoError(t, err)

	var decoded BiasInstances
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, original, decoded)
}

func TestBiasInstancesScanNil(t *testing.T) {
	var decoded BiasInstances
	assert.NoError(t, decoded.Scan(nil))
	assert.Empty(t, decoded)
}
