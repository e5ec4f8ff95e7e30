// Package live runs the analysis pipeline incrementally while a user
// types.
//
// The analyzer owns one session's append-only window buffer. Incoming
// event batches are handed to an offload runner so the interactive
// input path is never blocked by aggregation or entropy computation:
// normally a dedicated worker goroutine, with a deferred timer-based
// fallback when the worker cannot run. Both runners call the identical
// pure functions that the batch certifier calls, so the live preview
// and the final certificate agree exactly.
//
// Staleness: every appended batch bumps a generation counter. A pass
// computed for an older generation is discarded on commit; there is no
// mid-computation cancellation because each pass is a pure function of
// its input slice.
package live

import (
	"log/slog"
	"sync"
	"time"

	"keywitness/internal/anomaly"
	"keywitness/internal/event"
	"keywitness/internal/features"
	"keywitness/internal/scoring"
	"keywitness/internal/window"
)

// Config configures a live session analyzer.
type Config struct {
	// WindowSizeMs is the aggregation window width.
	WindowSizeMs int64

	// RecentWindowCount is how many trailing windows each anomaly
	// detection pass sees.
	RecentWindowCount int

	// OnWindow receives each completed window vector, fire-and-forget.
	OnWindow func(window.Vector)

	// OnAlert receives each anomaly alert, fire-and-forget.
	OnAlert func(anomaly.Alert)

	// Logger receives diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// job is one analysis pass request: a snapshot of the session's
// keystrokes tagged with the generation that produced it.
type job struct {
	gen        uint64
	keystrokes []event.Keystroke
	pasteRatio float64
}

// runner executes analysis passes off the interactive path.
type runner interface {
	submit(j job)
	stop()
}

// Analyzer is one live session's analysis engine. Concurrent sessions
// use independent analyzers; there is no cross-session state.
type Analyzer struct {
	cfg Config

	mu         sync.Mutex
	keystrokes []event.Keystroke
	edits      []event.Edit
	gen        uint64
	windows    []window.Vector // append-only committed buffer
	emitted    int             // windows already pushed to OnWindow
	closed     bool

	runner runner
}

// New creates an analyzer and starts its offload worker. If the worker
// cannot be established the analyzer degrades to deferred computation
// on a short timer; callers see an identical callback interface either
// way.
func New(cfg Config) *Analyzer {
	return newAnalyzer(cfg, true)
}

// newAnalyzer lets tests force the deferred fallback path.
func newAnalyzer(cfg Config, useWorker bool) *Analyzer {
	if cfg.WindowSizeMs <= 0 {
		cfg.WindowSizeMs = window.DefaultSizeMs
	}
	if cfg.RecentWindowCount < anomaly.MinWindows {
		cfg.RecentWindowCount = 12
	}

	a := &Analyzer{cfg: cfg}
	if useWorker {
		a.runner = newWorkerRunner(a)
	} else {
		a.runner = newDeferredRunner(a)
	}
	return a
}

// Append feeds a batch of events to the session and schedules an
// analysis pass. It never blocks on the analysis itself.
func (a *Analyzer) Append(keystrokes []event.Keystroke, edits []event.Edit) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.keystrokes = append(a.keystrokes, keystrokes...)
	a.edits = append(a.edits, edits...)
	a.gen++

	snapshot := make([]event.Keystroke, len(a.keystrokes))
	copy(snapshot, a.keystrokes)
	j := job{
		gen:        a.gen,
		keystrokes: snapshot,
		pasteRatio: event.PasteRatio(a.edits),
	}
	r := a.runner
	a.mu.Unlock()

	// A job handed to a runner that dies before draining it is not
	// replayed; the next append carries the full history anyway.
	r.submit(j)
}

// process runs one analysis pass. It is called from whichever runner is
// active, commits the result if it is still current, and fires the
// listener callbacks.
func (a *Analyzer) process(j job) {
	vectors := window.Aggregate(j.keystrokes, a.cfg.WindowSizeMs)

	a.mu.Lock()
	if j.gen != a.gen || a.closed {
		// A newer batch superseded this pass; drop the stale result.
		a.mu.Unlock()
		return
	}
	a.windows = vectors

	// The final window may still be filling; everything before it is
	// complete.
	completed := len(vectors) - 1
	var newWindows []window.Vector
	if completed > a.emitted {
		newWindows = make([]window.Vector, completed-a.emitted)
		copy(newWindows, vectors[a.emitted:completed])
		a.emitted = completed
	}

	var alerts []anomaly.Alert
	if len(newWindows) > 0 {
		recent := vectors[:completed]
		if len(recent) > a.cfg.RecentWindowCount {
			recent = recent[len(recent)-a.cfg.RecentWindowCount:]
		}
		alerts = anomaly.Detect(recent, j.pasteRatio)
	}
	onWindow := a.cfg.OnWindow
	onAlert := a.cfg.OnAlert
	a.mu.Unlock()

	if onWindow != nil {
		for _, v := range newWindows {
			onWindow(v)
		}
	}
	if onAlert != nil {
		for _, al := range alerts {
			onAlert(al)
		}
	}
}

// Windows returns a snapshot of the committed window buffer.
func (a *Analyzer) Windows() []window.Vector {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]window.Vector, len(a.windows))
	copy(out, a.windows)
	return out
}

// PasteRatio returns the session's current paste ratio.
func (a *Analyzer) PasteRatio() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return event.PasteRatio(a.edits)
}

// Features extracts the session-level feature set from the full event
// history. The aggregation is rerun synchronously from the raw events
// so the result reflects everything appended so far, not just passes
// the runner has finished.
func (a *Analyzer) Features() features.Features {
	a.mu.Lock()
	snapshot := make([]event.Keystroke, len(a.keystrokes))
	copy(snapshot, a.keystrokes)
	a.mu.Unlock()

	return features.Extract(window.Aggregate(snapshot, a.cfg.WindowSizeMs))
}

// Preview scores the session as it stands. This is the live-feedback
// twin of the batch certifier and produces identical numbers for
// identical input.
func (a *Analyzer) Preview(cfg scoring.Config) scoring.Result {
	return scoring.Score(a.Features(), cfg)
}

// Close stops the runner. Appended events remain readable via Windows
// and Features.
func (a *Analyzer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	r := a.runner
	a.mu.Unlock()

	r.stop()
}

// fallbackToDeferred swaps the worker runner for the timer-based one
// after a worker failure. Behavior degrades gracefully rather than
// silently stopping.
func (a *Analyzer) fallbackToDeferred() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.runner = newDeferredRunner(a)
	logger := a.cfg.Logger
	a.mu.Unlock()

	if logger != nil {
		logger.Warn("analysis worker unavailable, using deferred fallback")
	}
}

// workerRunner runs passes on a dedicated goroutine. Its queue holds a
// single job: a newer submission replaces an unstarted older one, which
// is exactly the stale-result semantic the pipeline wants.
type workerRunner struct {
	a    *Analyzer
	jobs chan job
	done chan struct{}
}

func newWorkerRunner(a *Analyzer) *workerRunner {
	w := &workerRunner{
		a:    a,
		jobs: make(chan job, 1),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *workerRunner) loop() {
	defer func() {
		if r := recover(); r != nil {
			// A crashed worker must not end analysis for the session.
			w.a.fallbackToDeferred()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case j := <-w.jobs:
			w.a.process(j)
		}
	}
}

func (w *workerRunner) submit(j job) {
	for {
		select {
		case w.jobs <- j:
			return
		default:
		}
		// Queue full: displace the older pending job.
		select {
		case <-w.jobs:
		default:
		}
	}
}

func (w *workerRunner) stop() {
	close(w.done)
}

// deferredRunner schedules each pass on a short timer on whatever
// goroutine the timer fires on. A newer submission cancels a pending
// older one.
type deferredRunner struct {
	a     *Analyzer
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
}

func newDeferredRunner(a *Analyzer) *deferredRunner {
	return &deferredRunner{a: a, delay: time.Millisecond}
}

func (d *deferredRunner) submit(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.a.process(j)
	})
}

func (d *deferredRunner) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
