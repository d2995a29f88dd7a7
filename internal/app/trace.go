package app

import "time"

// Trace records how one run went: row counts, cache use and stage timings.
type Trace struct {
	RunID        string       `json:"run_id"`
	Rows         int          `json:"rows"`
	RowsAnalyzed int          `json:"rows_analyzed"`
	Sessions     int          `json:"sessions"`
	CacheHit     bool         `json:"cache_hit"`
	Stages       []StageTrace `json:"stages"`
}

type StageTrace struct {
	Stage          string `json:"stage"`
	DurationMicros int64  `json:"duration_micros"`
}

// Stage names reported to observers and traces.
const (
	StageFilter    = "filter"
	StageNormalize = "normalize"
	StageSequence  = "sequence"
	StageAggregate = "aggregate"
	StageWeight    = "weight"
	StageEmit      = "emit"
	StageConnect   = "connectivity"
)

func (t *Trace) record(stage string, d time.Duration) {
	if t == nil {
		return
	}
	t.Stages = append(t.Stages, StageTrace{Stage: stage, DurationMicros: d.Microseconds()})
}
