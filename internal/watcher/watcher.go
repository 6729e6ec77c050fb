// Package watcher polls a workspace for changes and calls back once the
// changes have settled.
package watcher

import (
	"context"
	"sync"
	"time"

	"scriptpack/internal/logger"
	"scriptpack/internal/model"

	"go.uber.org/zap"
)

// ScanFunc returns the current filtered state of the workspace. Per-file
// problems are the scanner's business; an error here skips the tick.
type ScanFunc func() (model.Snapshot, error)

// SettleFunc is invoked from the watcher goroutine once a change has held
// still for the debounce window.
type SettleFunc func(ctx context.Context, changes []model.Change) (*model.PackResult, error)

// Handler receives watcher events on the watcher goroutine.
type Handler func(model.WatchEvent)

type Config struct {
	Interval      time.Duration
	DebounceTicks int
	Scan          ScanFunc
	OnSettle      SettleFunc
	OnEvent       Handler
}

type Watcher struct {
	cfg Config

	mu      sync.RWMutex
	state   model.WatchState
	ticks   int
	packs   int
	failed  int
	files   int
	last    *time.Time
	lastErr string
	waiting bool

	// Only touched by the tick goroutine.
	settled model.Snapshot
	pending model.Snapshot
	dirty   bool
	quiet   int

	doneCh   chan struct{}
	exitCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

// New creates a stopped watcher whose first comparison is against baseline.
func New(cfg Config, baseline model.Snapshot) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.DebounceTicks < 0 {
		cfg.DebounceTicks = 0
	}

	return &Watcher{
		cfg:     cfg,
		state:   model.WatchStopped,
		settled: baseline,
		files:   baseline.Len(),
		doneCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.state = model.WatchIdle
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop ends the loop. A tick already in progress finishes first, but no
// callback runs after Stop returns. Stop must not be called from OnSettle or
// OnEvent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
	})

	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	if started {
		<-w.exitCh
	}

	w.setState(model.WatchStopped)
}

// Done is closed when the loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.exitCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.exitCh)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	logger.Log.Info("watcher started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("debounce_ticks", w.cfg.DebounceTicks))

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping")
			return
		case <-ctx.Done():
			logger.Log.Info("watcher stopping", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) stopping() bool {
	select {
	case <-w.doneCh:
		return true
	default:
		return false
	}
}

// tick runs one scan and advances the debounce state.
//
// The first scan that differs from the settled snapshot opens a window. Any
// later scan that differs from the previous one restarts it. After
// DebounceTicks scans in a row without a difference the workspace counts as
// settled.
func (w *Watcher) tick(ctx context.Context) {
	w.mu.Lock()
	w.ticks++
	w.state = model.WatchScanning
	w.mu.Unlock()

	defer w.setState(model.WatchIdle)

	candidate, err := w.cfg.Scan()
	if err != nil {
		logger.Log.Warn("workspace scan failed", zap.Error(err))
		w.emit(model.WatchEvent{Type: model.WatchScanError, Err: err})
		return
	}

	if !w.dirty {
		if candidate.Equal(w.settled) {
			return
		}

		logger.Log.Debug("change detected",
			zap.Int("changes", len(model.Diff(w.settled, candidate))))

		w.dirty = true
		w.pending = candidate
		w.quiet = 0
		w.setWaiting(true)
	} else if !candidate.Equal(w.pending) {
		w.pending = candidate
		w.quiet = 0
		return
	} else {
		w.quiet++
	}

	if w.quiet < w.cfg.DebounceTicks {
		return
	}

	w.settle(ctx, candidate)
}

func (w *Watcher) settle(ctx context.Context, candidate model.Snapshot) {
	changes := model.Diff(w.settled, candidate)
	w.dirty = false
	w.quiet = 0
	w.setWaiting(false)

	if len(changes) == 0 {
		logger.Log.Debug("changes reverted before settling, nothing to pack")
		w.settled = candidate
		return
	}

	if w.stopping() {
		return
	}

	w.setState(model.WatchSettling)
	w.emit(model.WatchEvent{Type: model.WatchSettled, Changes: changes})

	result, err := w.cfg.OnSettle(ctx, changes)

	// Replaced even on failure so a file that cannot be packed does not
	// trigger a pack on every tick.
	w.settled = candidate

	now := time.Now()
	w.mu.Lock()
	w.files = candidate.Len()
	if err != nil {
		w.failed++
		w.lastErr = err.Error()
	} else {
		w.packs++
		w.last = &now
		w.lastErr = ""
	}
	w.mu.Unlock()

	if err != nil {
		logger.Log.Error("pack after change failed",
			zap.Int("changes", len(changes)),
			zap.Error(err))
		w.emit(model.WatchEvent{Type: model.WatchPackFailed, Changes: changes, Err: err})
		return
	}

	w.emit(model.WatchEvent{Type: model.WatchPacked, Changes: changes, Result: result})
}

func (w *Watcher) emit(ev model.WatchEvent) {
	if w.cfg.OnEvent == nil || w.stopping() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	w.cfg.OnEvent(ev)
}

func (w *Watcher) setState(s model.WatchState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

func (w *Watcher) setWaiting(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waiting = v
}

// Status fills the watcher-owned fields of a status report.
func (w *Watcher) Status() model.WatchStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return model.WatchStatus{
		State:     w.state,
		Interval:  w.cfg.Interval,
		Debounce:  w.cfg.DebounceTicks,
		Ticks:     w.ticks,
		Pending:   w.waiting,
		Packs:     w.packs,
		Failed:    w.failed,
		Files:     w.files,
		LastPack:  w.last,
		LastError: w.lastErr,
	}
}
