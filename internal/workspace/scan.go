// Package workspace walks a workspace directory under an ignore policy and
// turns the result into an archive plan.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"scriptpack/internal/ignore"
	"scriptpack/internal/logger"
	"scriptpack/internal/model"

	"go.uber.org/zap"
)

type Scanner struct {
	Matcher           *ignore.Matcher
	PreserveEmptyDirs bool

	// Skip excludes extra paths regardless of the matcher, e.g. an archive
	// that lives inside its own workspace.
	Skip func(rel string, isDir bool) bool

	// OnError receives per-entry failures. When nil they are logged. The
	// entry is left out of the snapshot either way.
	OnError func(rel string, err error)
}

// Scan walks root and returns every file that is not ignored. Ignored
// directories are pruned without visiting their contents. Only a failure to
// read root itself is returned as an error.
func (s *Scanner) Scan(root string) (model.Snapshot, error) {
	snap := model.NewSnapshot()

	info, err := os.Stat(root)
	if err != nil {
		return snap, fmt.Errorf("failed to stat workspace: %w", err)
	}
	if !info.IsDir() {
		return snap, fmt.Errorf("workspace %s is not a directory", root)
	}

	// kept counts packed descendants per directory, for empty-dir detection.
	kept := make(map[string]int)
	// Only the deepest empty directories get entries; their parents are
	// implied by having a walked subdirectory.
	subdirs := make(map[string]int)
	unreadable := make(map[string]bool)
	var dirs []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if rel == "." {
				return err
			}
			s.report(rel, err)
			if d != nil && d.IsDir() {
				unreadable[rel] = true
				return fs.SkipDir
			}
			return nil
		}

		if rel == "." {
			return nil
		}

		isDir := d.IsDir()
		if s.excluded(rel, isDir) {
			if isDir {
				return fs.SkipDir
			}
			return nil
		}

		if isDir {
			dirs = append(dirs, rel)
			subdirs[parentOf(rel)]++
			return nil
		}

		entry, ok := s.entry(path, rel, d)
		if !ok {
			return nil
		}

		snap.Entries[rel] = entry
		for dir := parentOf(rel); dir != ""; dir = parentOf(dir) {
			kept[dir]++
		}
		return nil
	})
	if err != nil {
		return snap, fmt.Errorf("failed to walk workspace: %w", err)
	}

	if s.PreserveEmptyDirs {
		for _, dir := range dirs {
			if kept[dir] == 0 && !unreadable[dir] && subdirs[dir] == 0 {
				snap.EmptyDirs = append(snap.EmptyDirs, dir)
			}
		}
		slices.Sort(snap.EmptyDirs)
	}

	return snap, nil
}

func (s *Scanner) excluded(rel string, isDir bool) bool {
	if s.Skip != nil && s.Skip(rel, isDir) {
		return true
	}
	_, ok := s.Matcher.Match(rel, isDir)
	return ok
}

// entry stats a walked file. Symlinks are followed when they point at regular
// files; anything else that is not a regular file is skipped.
func (s *Scanner) entry(path, rel string, d fs.DirEntry) (model.WorkspaceEntry, bool) {
	info, err := d.Info()
	if err != nil {
		s.report(rel, err)
		return model.WorkspaceEntry{}, false
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
		if err != nil {
			s.report(rel, err)
			return model.WorkspaceEntry{}, false
		}
	}

	if !info.Mode().IsRegular() {
		logger.Log.Debug("skipping non-regular file",
			zap.String("path", rel),
			zap.String("mode", info.Mode().String()))
		return model.WorkspaceEntry{}, false
	}

	return model.WorkspaceEntry{
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}

func (s *Scanner) report(rel string, err error) {
	if s.OnError != nil {
		s.OnError(rel, err)
		return
	}

	logger.Log.Warn("scan error, treating entry as absent",
		zap.String("path", rel),
		zap.Error(err))
}

func parentOf(rel string) string {
	i := strings.LastIndexByte(rel, '/')
	if i < 0 {
		return ""
	}
	return rel[:i]
}
