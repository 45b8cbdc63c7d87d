package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func paramIDs(specs []ParamSpec) []string {
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	return ids
}

func TestParamSpecs(t *testing.T) {
	assert.Equal(t, []string{"i_0", "beta", "gamma"}, paramIDs(ParamSpecs(SIR)))
	assert.Equal(t, []string{"i_0", "beta", "sigma", "gamma"}, paramIDs(ParamSpecs(SEIR)))
	assert.Equal(t, []string{"i_0", "beta", "sigma", "gamma", "aa"}, paramIDs(ParamSpecs(SEIRS)))
}

func TestParamSpec_Clamp(t *testing.T) {
	spec, ok := LookupParamSpec("beta")
	assert.True(t, ok)
	assert.Equal(t, 0.1, spec.Clamp(-3))
	assert.Equal(t, 10.0, spec.Clamp(42))
	assert.Equal(t, 2.5, spec.Clamp(2.5))

	_, ok = LookupParamSpec("nope")
	assert.False(t, ok)
}
