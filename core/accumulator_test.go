package core

import (
	"testing"

	"github.com/huangsam/covmap/schema"
	"github.com/stretchr/testify/assert"
)

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()
	assert.NotNil(t, acc.Records())
	assert.Equal(t, 0, acc.Len())

	acc.Add(schema.CoverageRecord{FunctionName: "a"}, schema.CoverageRecord{FunctionName: "b"})
	acc.Add()
	acc.Add(schema.CoverageRecord{FunctionName: "c"})

	assert.Equal(t, 3, acc.Len())
	names := make([]string, 0, acc.Len())
	for _, r := range acc.Records() {
		names = append(names, r.FunctionName)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestAccumulatorZeroValue(t *testing.T) {
	var acc Accumulator
	assert.NotNil(t, acc.Records())
	assert.Empty(t, acc.Records())
}
