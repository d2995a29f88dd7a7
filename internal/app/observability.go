package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// StageEvent is one timed pipeline stage of a run.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Failed   bool
}

// RunEvent closes a run.
type RunEvent struct {
	RunID    string
	Duration time.Duration
	CacheHit bool
	Sessions int
	Edges    int
	Err      error
}

// RunObserver receives stage timings as they happen and one RunEvent when
// the run ends. Stage events of a run always precede its RunEvent.
type RunObserver interface {
	ObserveStage(StageEvent)
	ObserveRun(RunEvent)
}

// RunLogger logs stage timings at debug level and a per-run summary naming
// the slowest stage.
type RunLogger struct {
	logger *log.Logger

	mu   sync.Mutex
	runs map[string]*runTotals
}

type runTotals struct {
	stages  int
	slowest string
	slowDur time.Duration
}

func NewRunLogger(logger *log.Logger) *RunLogger {
	return &RunLogger{logger: logger, runs: map[string]*runTotals{}}
}

func (l *RunLogger) ObserveStage(ev StageEvent) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Debug("analysis_stage",
		"run_id", ev.RunID,
		"stage", ev.Stage,
		"duration_ms", millis(ev.Duration),
		"failed", ev.Failed,
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	rt, ok := l.runs[ev.RunID]
	if !ok {
		rt = &runTotals{}
		l.runs[ev.RunID] = rt
	}
	rt.stages++
	if ev.Duration >= rt.slowDur {
		rt.slowest, rt.slowDur = ev.Stage, ev.Duration
	}
}

func (l *RunLogger) ObserveRun(ev RunEvent) {
	if l == nil || l.logger == nil {
		return
	}
	l.mu.Lock()
	rt := l.runs[ev.RunID]
	delete(l.runs, ev.RunID)
	l.mu.Unlock()
	if rt == nil {
		rt = &runTotals{}
	}

	kv := []any{
		"run_id", ev.RunID,
		"duration_ms", millis(ev.Duration),
		"stages", rt.stages,
		"slowest_stage", rt.slowest,
		"slowest_ms", millis(rt.slowDur),
		"cache_hit", ev.CacheHit,
		"sessions", ev.Sessions,
		"edges", ev.Edges,
	}
	if ev.Err != nil {
		l.logger.Warn("analysis_run", append(kv, "err", ev.Err)...)
		return
	}
	l.logger.Info("analysis_run", kv...)
}

// Pending is the number of runs with stage events but no RunEvent yet.
func (l *RunLogger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.runs)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// observation carries exactly one of stage or run.
type observation struct {
	stage *StageEvent
	run   *RunEvent
}

// AsyncRunObserver hands events to next on its own goroutine. When the
// buffer is full, or after Close, events are counted as dropped instead.
type AsyncRunObserver struct {
	next    RunObserver
	events  chan observation
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
	stopped atomic.Bool
	dropped atomic.Uint64
}

func NewAsyncRunObserver(next RunObserver, buffer int) *AsyncRunObserver {
	o := &AsyncRunObserver{
		next:   next,
		events: make(chan observation, max(buffer, 1)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go o.forward()
	return o
}

func (o *AsyncRunObserver) forward() {
	defer close(o.done)
	for {
		select {
		case ev := <-o.events:
			o.deliver(ev)
		case <-o.quit:
			for {
				select {
				case ev := <-o.events:
					o.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (o *AsyncRunObserver) deliver(ev observation) {
	if o.next == nil {
		return
	}
	switch {
	case ev.stage != nil:
		o.next.ObserveStage(*ev.stage)
	case ev.run != nil:
		o.next.ObserveRun(*ev.run)
	}
}

func (o *AsyncRunObserver) ObserveStage(ev StageEvent) {
	o.offer(observation{stage: &ev})
}

func (o *AsyncRunObserver) ObserveRun(ev RunEvent) {
	o.offer(observation{run: &ev})
}

func (o *AsyncRunObserver) offer(ev observation) {
	if o == nil {
		return
	}
	if o.stopped.Load() {
		o.dropped.Add(1)
		return
	}
	select {
	case o.events <- ev:
	default:
		o.dropped.Add(1)
	}
}

func (o *AsyncRunObserver) Dropped() uint64 {
	if o == nil {
		return 0
	}
	return o.dropped.Load()
}

// Close delivers what is buffered and stops the forwarder.
func (o *AsyncRunObserver) Close() {
	if o == nil {
		return
	}
	o.stop.Do(func() {
		o.stopped.Store(true)
		close(o.quit)
	})
	<-o.done
}
