// Package backup keeps a copy of an archive before it is overwritten.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scriptpack/internal/logger"
	"scriptpack/internal/model"
	"scriptpack/internal/util"

	"go.uber.org/zap"
)

const timestampLayout = "20060102_150405"

// WriteError means the backup copy could not be completed. The overwrite it
// was guarding must not happen.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to back up %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type Guard struct {
	now  func() time.Time
	copy func(dst string, r io.Reader) error
}

func NewGuard() *Guard {
	return &Guard{now: time.Now, copy: util.AtomicWrite}
}

// Guard copies the file at dest to a timestamped sibling and returns the
// record. It returns nil, nil when dest does not exist. Backups are never
// removed here.
func (g *Guard) Guard(dest string) (*model.BackupRecord, error) {
	src, err := os.Open(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &WriteError{Path: dest, Err: err}
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(src)

	info, err := src.Stat()
	if err != nil {
		return nil, &WriteError{Path: dest, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &WriteError{Path: dest, Err: fmt.Errorf("%s is not a regular file", dest)}
	}

	now := g.now()
	backupPath, err := freeName(dest, now)
	if err != nil {
		return nil, &WriteError{Path: dest, Err: err}
	}

	if err := g.copy(backupPath, src); err != nil {
		_ = os.Remove(backupPath)
		return nil, &WriteError{Path: dest, Err: err}
	}

	logger.Log.Info("archive backup created",
		zap.String("original", dest),
		zap.String("backup", backupPath))

	return &model.BackupRecord{
		Original:  dest,
		Path:      backupPath,
		Size:      info.Size(),
		CreatedAt: now,
	}, nil
}

// Name returns the backup path for dest at t, before collision handling:
// "mod.ts4script" becomes "mod.bak_20240501_101500.ts4script".
func Name(dest string, t time.Time) string {
	ext := filepath.Ext(dest)
	base := dest[:len(dest)-len(ext)]
	return fmt.Sprintf("%s.bak_%s%s", base, t.Format(timestampLayout), ext)
}

// freeName reserves a backup name by creating it empty, appending _1, _2,
// ... to the timestamp when several backups land in the same second. The
// copy then replaces the placeholder.
func freeName(dest string, t time.Time) (string, error) {
	name := Name(dest, t)
	ext := filepath.Ext(dest)
	stem := name[:len(name)-len(ext)]

	for i := 1; ; i++ {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return name, f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		name = stem + "_" + strconv.Itoa(i) + ext
	}
}
