// internal/app/service.go
package app

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/awmpietro/path-analysis/internal/apperr"
	"github.com/awmpietro/path-analysis/internal/config"
	"github.com/awmpietro/path-analysis/internal/pathgraph"
	"github.com/awmpietro/path-analysis/internal/rowfilter"
)

type Cache interface {
	GetOrCompute(fingerprint string, fn func() (*pathgraph.Transitions, error)) (*pathgraph.Transitions, error)
}

type Service struct {
	cache    Cache
	logger   *log.Logger
	observer RunObserver
	defaults config.Analysis
}

type Option func(*Service)

// WithCache memoizes aggregation per dataset and build options.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRunObserver reports stage timings and run summaries to o.
func WithRunObserver(o RunObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithDefaults sets the values used for unset request fields.
func WithDefaults(d config.Analysis) Option {
	return func(s *Service) { s.defaults = d }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		logger:   log.New(io.Discard),
		defaults: config.Default().Analysis,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the whole pipeline over rows. rows is not modified.
func (s *Service) Analyze(ctx context.Context, rows []pathgraph.EventRow, req Request) (*Result, error) {
	return s.run(ctx, rows, req, nil)
}

// AnalyzeWithTrace is Analyze plus a record of the run. The trace is
// returned even when the run fails part way.
func (s *Service) AnalyzeWithTrace(ctx context.Context, rows []pathgraph.EventRow, req Request) (*Result, *Trace, error) {
	tr := &Trace{}
	res, err := s.run(ctx, rows, req, tr)
	return res, tr, err
}

// run wraps analyze with a run id and the closing RunEvent.
func (s *Service) run(ctx context.Context, rows []pathgraph.EventRow, req Request, tr *Trace) (*Result, error) {
	rc := &runContext{id: uuid.NewString(), trace: tr}
	if tr != nil {
		tr.RunID = rc.id
	}
	start := time.Now()
	res, err := s.analyze(ctx, rows, req, rc)
	if s.observer != nil {
		ev := RunEvent{RunID: rc.id, Duration: time.Since(start), CacheHit: rc.cacheHit, Err: err}
		if res != nil {
			ev.Sessions, ev.Edges = res.SessionCount, res.EdgeCount
		}
		s.observer.ObserveRun(ev)
	}
	return res, err
}

// runContext is the per-run state shared by the stages.
type runContext struct {
	id       string
	trace    *Trace
	cacheHit bool
}

type plan struct {
	filter       *rowfilter.Filter
	policy       pathgraph.ThicknessPolicy
	rank         pathgraph.RankOptions
	maxThickness float64
	threshold    float64
	minVisits    int
	dropAuto     bool
	perStudent   bool
}

func (s *Service) plan(req Request) (plan, error) {
	d := s.defaults
	p := plan{
		rank:         pathgraph.RankOptions{TopN: req.TopN, MinLength: req.MinSequenceLen},
		maxThickness: req.MaxThickness,
		threshold:    req.Threshold,
		minVisits:    req.MinVisits,
		dropAuto:     req.DropAutofilled || d.DropAutofilled,
		perStudent:   req.UniqueStudents || d.UniqueStudents,
	}

	switch {
	case req.TopN < 0:
		return plan{}, apperr.New(apperr.CodeInvalidInput, "top_n must be >= 0 (got %d)", req.TopN)
	case req.MinSequenceLen < 0:
		return plan{}, apperr.New(apperr.CodeInvalidInput, "min_sequence_len must be >= 0 (got %d)", req.MinSequenceLen)
	case req.MaxThickness < 0:
		return plan{}, apperr.New(apperr.CodeInvalidInput, "max_thickness must be >= 0 (got %g)", req.MaxThickness)
	case req.Threshold < 0:
		return plan{}, apperr.New(apperr.CodeInvalidInput, "threshold must be >= 0 (got %g)", req.Threshold)
	case req.MinVisits < 0:
		return plan{}, apperr.New(apperr.CodeInvalidInput, "min_visits must be >= 0 (got %d)", req.MinVisits)
	}

	if p.rank.TopN == 0 {
		p.rank.TopN = d.TopN
	}
	if p.rank.MinLength == 0 {
		p.rank.MinLength = d.MinSequenceLen
	}
	if p.maxThickness == 0 {
		p.maxThickness = d.MaxThickness
	}
	if p.threshold == 0 {
		p.threshold = d.Threshold
	}
	if p.minVisits == 0 {
		p.minVisits = d.MinVisits
	}

	policy := req.Policy
	if policy == "" {
		policy = d.Policy
	}
	var err error
	if p.policy, err = pathgraph.ParseThicknessPolicy(policy); err != nil {
		return plan{}, apperr.Wrap(apperr.CodeInvalidInput, err, "policy")
	}

	if p.filter, err = rowfilter.Compile(req.Filter); err != nil {
		return plan{}, apperr.Wrap(apperr.CodeInvalidFilter, err, "filter %q", req.Filter)
	}
	return p, nil
}

func (s *Service) analyze(ctx context.Context, rows []pathgraph.EventRow, req Request, rc *runContext) (*Result, error) {
	p, err := s.plan(req)
	if err != nil {
		return nil, err
	}
	tr := rc.trace
	if tr != nil {
		tr.Rows = len(rows)
	}

	var selected []pathgraph.EventRow
	if err := s.stage(ctx, rc, StageFilter, func() error {
		var err error
		if selected, err = p.filter.Apply(rows); err != nil {
			return apperr.Wrap(apperr.CodeInvalidFilter, err, "filter %q", p.filter)
		}
		if p.dropAuto {
			selected = pathgraph.DropAutofilled(selected)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.stage(ctx, rc, StageNormalize, func() error {
		selected = pathgraph.NormalizeRows(selected)
		return nil
	}); err != nil {
		return nil, err
	}
	if tr != nil {
		tr.RowsAnalyzed = len(selected)
	}

	var seqs pathgraph.Sequences
	if err := s.stage(ctx, rc, StageSequence, func() error {
		seqs = pathgraph.BuildSequences(selected, req.IncludeSelfLoops)
		return nil
	}); err != nil {
		return nil, err
	}

	var transitions *pathgraph.Transitions
	computed := false
	if err := s.stage(ctx, rc, StageAggregate, func() error {
		compute := func() (*pathgraph.Transitions, error) {
			computed = true
			t := pathgraph.Aggregate(seqs, p.rank)
			return &t, nil
		}
		if s.cache == nil {
			transitions, _ = compute()
			return nil
		}
		var err error
		transitions, err = s.cache.GetOrCompute(fingerprint(selected, req.IncludeSelfLoops, p.rank), compute)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "aggregate transitions")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	rc.cacheHit = !computed
	if tr != nil {
		tr.Sessions = len(seqs.Steps)
		tr.CacheHit = rc.cacheHit
	}

	// The cached value is shared between runs; only read from it below.
	measured := *transitions
	if p.perStudent {
		measured = transitions.ByStudent()
	}

	ref := pathgraph.NoReference
	if req.Reference != nil {
		ref = pathgraph.ReferenceOf(req.Reference)
	} else if len(measured.Ranked) > 0 {
		ref = pathgraph.ReferenceOf(measured.Ranked[0].Sequence)
	}

	var thickness map[pathgraph.EdgeKey]float64
	if err := s.stage(ctx, rc, StageWeight, func() error {
		thickness = pathgraph.Thickness(p.policy, measured, p.maxThickness)
		return nil
	}); err != nil {
		return nil, err
	}

	res := &Result{
		Ranked:         cloneRanked(measured.Ranked),
		Reference:      ref.Steps,
		MaxCount:       measured.MaxCount,
		MaxThreshold:   measured.MaxThreshold(),
		SessionCount:   len(seqs.Steps),
		NodeCount:      countNodes(measured),
		EdgeCount:      len(measured.Edges),
		UniqueStudents: p.perStudent,
	}

	if err := s.stage(ctx, rc, StageEmit, func() error {
		res.DOT = pathgraph.Emit(pathgraph.EmitInput{
			Thickness:     thickness,
			Transitions:   measured,
			Threshold:     p.threshold,
			MinVisits:     p.minVisits,
			Reference:     ref,
			ErrorMode:     req.ErrorMode,
			ReferenceOnly: req.ReferenceOnly,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.stage(ctx, rc, StageConnect, func() error {
		res.MaxConnectedThreshold = pathgraph.MaxConnectedThreshold(measured, ref)
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Debug("analysis complete",
		"run_id", rc.id,
		"rows", len(rows),
		"sessions", res.SessionCount,
		"edges", res.EdgeCount,
		"reference_len", len(res.Reference),
	)
	return res, nil
}

// stage runs fn unless ctx is done, timing it for the observer and trace.
func (s *Service) stage(ctx context.Context, rc *runContext, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	rc.trace.record(name, d)
	if s.observer != nil {
		s.observer.ObserveStage(StageEvent{RunID: rc.id, Stage: name, Duration: d, Failed: err != nil})
	}
	return err
}

// cloneRanked copies ranked down to the step slices so callers cannot
// reach cached data. It never returns nil.
func cloneRanked(ranked []pathgraph.RankedSequence) []pathgraph.RankedSequence {
	out := make([]pathgraph.RankedSequence, len(ranked))
	for i, r := range ranked {
		out[i] = pathgraph.RankedSequence{Sequence: slices.Clone(r.Sequence), Count: r.Count}
	}
	return out
}

// fingerprint identifies the aggregation inputs: the selected rows and the
// options that shape sequences and ranking.
func fingerprint(rows []pathgraph.EventRow, selfLoops bool, rank pathgraph.RankOptions) string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeStr := func(v string) {
		writeInt(int64(len(v)))
		io.WriteString(h, v)
	}

	if selfLoops {
		writeInt(1)
	} else {
		writeInt(0)
	}
	writeInt(int64(rank.TopN))
	writeInt(int64(rank.MinLength))
	writeInt(int64(len(rows)))
	for _, r := range rows {
		writeStr(r.SessionID)
		writeStr(r.StudentID)
		writeInt(r.Timestamp.UnixNano())
		writeStr(r.StepName)
		writeStr(r.Outcome)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func countNodes(t pathgraph.Transitions) int {
	seen := make(map[string]struct{}, len(t.NodeTotals))
	for k := range t.Edges {
		seen[k.From] = struct{}{}
		seen[k.To] = struct{}{}
	}
	return len(seen)
}
