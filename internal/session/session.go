// Package session ties the matcher, codec, backup guard and watcher together
// for one workspace and its archive.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scriptpack/internal/archive"
	"scriptpack/internal/config"
	"scriptpack/internal/ignore"
	"scriptpack/internal/logger"
	"scriptpack/internal/model"
	"scriptpack/internal/util"
	"scriptpack/internal/watcher"
	"scriptpack/internal/workspace"

	"go.uber.org/zap"
)

var (
	ErrWatchAlreadyActive  = errors.New("a watch is already active")
	ErrDestinationNotEmpty = errors.New("destination directory is not empty")
	ErrNoWorkspace         = errors.New("no workspace loaded")
)

// Guarder backs up an archive before it is overwritten.
type Guarder interface {
	Guard(dest string) (*model.BackupRecord, error)
}

// Recorder keeps a history of completed operations.
type Recorder interface {
	SavePack(workspace, archive string, trigger model.Trigger, result *model.PackResult, err error) error
	SaveExtract(archive, workspace string, report model.ExtractReport, err error) error
}

type ExtractOptions struct {
	RequireEmpty bool
}

type Option func(*Session)

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithEventHandler registers the single handler for watcher events.
func WithEventHandler(h watcher.Handler) Option {
	return func(s *Session) { s.onEvent = h }
}

type Session struct {
	cfg      *config.Config
	codec    *archive.Codec
	guard    Guarder
	recorder Recorder
	onEvent  watcher.Handler

	mu        sync.RWMutex
	matcher   *ignore.Matcher
	workspace string
	fromFile  bool

	packMu sync.Mutex

	watchMu    sync.Mutex
	watch      *watcher.Watcher
	cancel     context.CancelFunc
	watchRoot  string
	watchDest  string
	watchStart time.Time
}

func New(cfg *config.Config, guard Guarder, opts ...Option) *Session {
	s := &Session{
		cfg:   cfg,
		codec: archive.New(cfg.Archive),
		guard: guard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadPatterns reads the ignore file of root, falling back to the configured
// defaults when there is none. On any error the current set is kept.
func (s *Session) LoadPatterns(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	patterns, found, err := ignore.Load(abs, s.cfg.IgnoreFile, s.cfg.DefaultIgnore)
	if err != nil {
		return err
	}

	m, err := ignore.Compile(patterns)
	if err != nil {
		logger.Log.Warn("ignore patterns rejected, keeping previous set",
			zap.String("workspace", abs),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.matcher = m
	s.workspace = abs
	s.fromFile = found
	s.mu.Unlock()

	logger.Log.Info("ignore patterns loaded",
		zap.String("workspace", abs),
		zap.Int("rules", len(patterns)),
		zap.Bool("from_file", found))

	return nil
}

// ReloadPatterns re-reads the ignore file of the loaded workspace.
func (s *Session) ReloadPatterns() error {
	s.mu.RLock()
	root := s.workspace
	s.mu.RUnlock()

	if root == "" {
		return ErrNoWorkspace
	}
	return s.LoadPatterns(root)
}

// Patterns returns the active patterns and whether they came from the
// workspace's ignore file.
func (s *Session) Patterns() ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher.Patterns(), s.fromFile
}

func (s *Session) matcherFor(root string) (*ignore.Matcher, error) {
	s.mu.RLock()
	m, loaded := s.matcher, s.workspace
	s.mu.RUnlock()

	if m != nil && loaded == root {
		return m, nil
	}

	// A one-off pack of another workspace compiles its own set and leaves the
	// loaded workspace alone.
	if m != nil {
		return ignore.LoadMatcher(root, s.cfg.IgnoreFile, s.cfg.DefaultIgnore)
	}

	if err := s.LoadPatterns(root); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher, nil
}

// Extract unpacks archivePath into root.
func (s *Session) Extract(ctx context.Context, archivePath, root string, opts ExtractOptions) (model.ExtractReport, error) {
	report, err := s.extract(ctx, archivePath, root, opts)

	if s.recorder != nil {
		if recErr := s.recorder.SaveExtract(archivePath, root, report, err); recErr != nil {
			logger.Log.Warn("failed to record history", zap.Error(recErr))
		}
	}

	return report, err
}

func (s *Session) extract(ctx context.Context, archivePath, root string, opts ExtractOptions) (model.ExtractReport, error) {
	if opts.RequireEmpty {
		empty, err := util.IsEmptyDir(root)
		if err != nil {
			return model.ExtractReport{}, fmt.Errorf("failed to inspect destination: %w", err)
		}
		if !empty {
			return model.ExtractReport{}, ErrDestinationNotEmpty
		}
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return model.ExtractReport{}, fmt.Errorf("failed to read archive: %w", err)
	}

	s.packMu.Lock()
	defer s.packMu.Unlock()

	report, err := s.codec.Unpack(ctx, data, root)
	if err != nil {
		return report, err
	}

	logger.Log.Info("archive extracted",
		zap.String("archive", archivePath),
		zap.String("workspace", root),
		zap.Int("files", report.Files),
		zap.Int("overwritten", report.Overwritten))

	return report, nil
}

// Pack writes the filtered contents of root to archivePath. An existing
// archive is backed up first; if that fails the archive is not touched.
func (s *Session) Pack(ctx context.Context, root, archivePath string) (*model.PackResult, error) {
	return s.pack(ctx, root, archivePath, model.TriggerManual)
}

func (s *Session) pack(ctx context.Context, root, archivePath string, trigger model.Trigger) (*model.PackResult, error) {
	result, err := s.doPack(ctx, root, archivePath, trigger)

	if s.recorder != nil {
		if recErr := s.recorder.SavePack(root, archivePath, trigger, result, err); recErr != nil {
			logger.Log.Warn("failed to record history", zap.Error(recErr))
		}
	}

	return result, err
}

func (s *Session) doPack(ctx context.Context, root, archivePath string, trigger model.Trigger) (*model.PackResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}
	absDest, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, fmt.Errorf("invalid archive path: %w", err)
	}

	s.packMu.Lock()
	defer s.packMu.Unlock()

	m, err := s.matcherFor(absRoot)
	if err != nil {
		return nil, err
	}

	snap, err := s.scanner(m, absRoot, absDest).Scan(absRoot)
	if err != nil {
		return nil, err
	}

	plan := workspace.Plan(snap)

	data, err := s.codec.Pack(ctx, absRoot, plan)
	if err != nil {
		return nil, err
	}

	rec, err := s.guard.Guard(absDest)
	if err != nil {
		return nil, err
	}

	if err := util.AtomicWrite(absDest, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}

	sum, err := util.Checksum(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	result := &model.PackResult{
		Workspace: absRoot,
		Archive:   absDest,
		Files:     len(plan.Files()),
		Bytes:     int64(len(data)),
		Checksum:  sum,
		Backup:    rec,
		Trigger:   trigger,
	}

	logger.Log.Info("archive packed",
		zap.String("archive", absDest),
		zap.Int("files", result.Files),
		zap.Int64("bytes", result.Bytes),
		zap.String("sha256", sum),
		zap.String("trigger", string(trigger)))

	return result, nil
}

func (s *Session) scanner(m *ignore.Matcher, root, archivePath string) *workspace.Scanner {
	return &workspace.Scanner{
		Matcher:           m,
		PreserveEmptyDirs: s.cfg.Archive.PreserveEmptyDirs,
		Skip:              archiveArtifacts(root, archivePath),
	}
}

// archiveArtifacts excludes the archive, its temp files and its backups when
// the archive lives inside the workspace it is built from.
func archiveArtifacts(root, archivePath string) func(rel string, isDir bool) bool {
	rel, err := filepath.Rel(root, archivePath)
	if err != nil || !filepath.IsLocal(rel) {
		return nil
	}
	rel = filepath.ToSlash(rel)

	dir := path.Dir(rel)
	base := path.Base(rel)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return func(p string, isDir bool) bool {
		if isDir || path.Dir(p) != dir {
			return false
		}
		name := path.Base(p)
		switch {
		case name == base:
			return true
		case strings.HasPrefix(name, "."+base+".") && strings.HasSuffix(name, util.TempSuffix):
			return true
		case strings.HasPrefix(name, stem+".bak_") && strings.HasSuffix(name, ext):
			return true
		}
		return false
	}
}

// StartWatch packs archivePath whenever root changes and then settles. Only
// one watch runs per session.
func (s *Session) StartWatch(root, archivePath string, interval time.Duration, debounceTicks int) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watch != nil {
		return ErrWatchAlreadyActive
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}
	absDest, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("invalid archive path: %w", err)
	}

	if err := s.LoadPatterns(absRoot); err != nil {
		return err
	}

	scan := func() (model.Snapshot, error) {
		s.mu.RLock()
		m := s.matcher
		s.mu.RUnlock()
		return s.scanner(m, absRoot, absDest).Scan(absRoot)
	}

	baseline, err := scan()
	if err != nil {
		return err
	}

	if s.cfg.Watch.InitialPack {
		if _, err := s.pack(context.Background(), absRoot, absDest, model.TriggerWatch); err != nil {
			logger.Log.Error("initial pack failed", zap.Error(err))
		}
	}

	w := watcher.New(watcher.Config{
		Interval:      interval,
		DebounceTicks: debounceTicks,
		Scan:          scan,
		OnSettle: func(ctx context.Context, changes []model.Change) (*model.PackResult, error) {
			return s.pack(ctx, absRoot, absDest, model.TriggerWatch)
		},
		OnEvent: s.onEvent,
	}, baseline)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	s.watch = w
	s.cancel = cancel
	s.watchRoot = absRoot
	s.watchDest = absDest
	s.watchStart = time.Now()

	logger.Log.Info("watch started",
		zap.String("workspace", absRoot),
		zap.String("archive", absDest))

	return nil
}

// StopWatch stops the active watch, if any. It returns after the last tick
// has finished. It must not be called from the event handler.
func (s *Session) StopWatch() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watch == nil {
		return
	}

	s.watch.Stop()
	s.cancel()

	logger.Log.Info("watch stopped", zap.String("workspace", s.watchRoot))

	s.watch = nil
	s.cancel = nil
}

func (s *Session) Watching() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watch != nil
}

func (s *Session) Status() model.WatchStatus {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watch == nil {
		return model.WatchStatus{State: model.WatchStopped}
	}

	st := s.watch.Status()
	st.Workspace = s.watchRoot
	st.Archive = s.watchDest
	st.StartedAt = s.watchStart
	return st
}

// Target returns the workspace and archive of the active watch.
func (s *Session) Target() (string, string, bool) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watchRoot, s.watchDest, s.watch != nil
}
