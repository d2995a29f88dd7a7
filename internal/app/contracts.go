package app

import (
	"context"

	"github.com/awmpietro/path-analysis/internal/pathgraph"
)

// Analyzer is what transports need from the service.
type Analyzer interface {
	Analyze(ctx context.Context, rows []pathgraph.EventRow, req Request) (*Result, error)
	AnalyzeWithTrace(ctx context.Context, rows []pathgraph.EventRow, req Request) (*Result, *Trace, error)
}

// Request tunes one analysis run. Zero values fall back to the service
// defaults where noted.
type Request struct {
	IncludeSelfLoops bool `json:"include_self_loops,omitempty"`
	// TopN caps the ranked list; 0 uses the default.
	TopN           int    `json:"top_n,omitempty"`
	MinSequenceLen int    `json:"min_sequence_len,omitempty"`
	Filter         string `json:"filter,omitempty"`
	DropAutofilled bool   `json:"drop_autofilled,omitempty"`
	// Policy is "count" or "ratio"; empty uses the default.
	Policy string `json:"policy,omitempty"`
	// MaxThickness of 0 uses the default.
	MaxThickness float64 `json:"max_thickness,omitempty"`
	// Threshold and MinVisits of 0 use the defaults.
	Threshold float64 `json:"threshold,omitempty"`
	MinVisits int     `json:"min_visits,omitempty"`
	ErrorMode bool    `json:"error_mode,omitempty"`
	// UniqueStudents measures edges in distinct students instead of
	// traversals, for thickness, MinVisits and the connectivity search.
	UniqueStudents bool `json:"unique_students,omitempty"`
	ReferenceOnly  bool `json:"reference_only,omitempty"`
	// Reference overrides the most frequent sequence as the reference path.
	Reference []string `json:"reference,omitempty"`
}

type Result struct {
	DOT                   string                     `json:"dot"`
	Ranked                []pathgraph.RankedSequence `json:"ranked"`
	Reference             []string                   `json:"reference"`
	MaxCount              int                        `json:"max_count"`
	MaxThreshold          int                        `json:"max_threshold"`
	MaxConnectedThreshold int                        `json:"max_connected_threshold"`
	SessionCount          int                        `json:"session_count"`
	NodeCount             int                        `json:"node_count"`
	EdgeCount             int                        `json:"edge_count"`
	// UniqueStudents reports which measure the counts above use.
	UniqueStudents bool `json:"unique_students"`
}
