package core

import "github.com/huangsam/covmap/schema"

// Accumulator collects coverage records in the order they are produced.
// It is owned by a single walk and is never shared between runs.
type Accumulator struct {
	records []schema.CoverageRecord
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{records: make([]schema.CoverageRecord, 0)}
}

// Add appends records, keeping their relative order.
func (a *Accumulator) Add(records ...schema.CoverageRecord) {
	a.records = append(a.records, records...)
}

// Len returns the number of accumulated records.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Records returns the accumulated records. The result is never nil,
// so an empty run still serializes as an empty JSON array.
func (a *Accumulator) Records() []schema.CoverageRecord {
	if a.records == nil {
		return []schema.CoverageRecord{}
	}
	return a.records
}
