package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"scriptpack/internal/logger"
	"scriptpack/internal/model"

	"go.uber.org/zap"
)

type member struct {
	file   *zip.File
	rel    string
	isDir  bool
	staged string
}

// stagingPattern names the scratch directory Unpack creates inside the
// destination. Staging there keeps every rename on one filesystem.
const stagingPattern = ".scriptpack-unpack-*"

// Unpack extracts data into dest in three passes: every member name is
// validated, every file is decompressed into a staging directory inside
// dest, and only then are files moved into place. A bad name or a corrupt
// member therefore leaves dest untouched.
//
// Existing files are overwritten. Files in dest that are not in the archive
// are left alone. If placing a file fails, the files already placed are
// removed, overwritten files are restored and the directories created for
// the archive are removed again.
func (c *Codec) Unpack(ctx context.Context, data []byte, dest string) (report model.ExtractReport, err error) {
	zr, zerr := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zerr != nil && !(errors.Is(zerr, zip.ErrInsecurePath) && zr != nil) {
		return report, &FormatError{Err: zerr}
	}
	zr.RegisterDecompressor(zip.Deflate, decompressor)

	members, err := collect(zr.File)
	if err != nil {
		return report, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return report, fmt.Errorf("invalid destination: %w", err)
	}

	if err := checkTargets(absDest, members); err != nil {
		return report, err
	}

	created, err := mkdirAll(absDest)
	if err != nil {
		return report, fmt.Errorf("failed to create destination: %w", err)
	}

	defer func() {
		if err != nil {
			removeDirs(created)
		}
	}()

	staging, err := os.MkdirTemp(absDest, stagingPattern)
	if err != nil {
		return report, fmt.Errorf("failed to create staging dir: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(staging)
	}()

	stagingName := filepath.Base(staging)
	for i := range members {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		m := &members[i]
		if top, _, _ := strings.Cut(m.rel, "/"); top == stagingName {
			return report, &FormatError{Name: m.file.Name, Err: errors.New("entry collides with the staging directory")}
		}
		if m.isDir {
			continue
		}

		m.staged = filepath.Join(staging, strconv.Itoa(i))
		n, err := stage(m.file, m.staged)
		if err != nil {
			return report, err
		}
		report.Bytes += n
	}

	j := &journal{staging: staging, rename: c.rename}
	defer func() {
		if err != nil {
			j.rollback()
		}
	}()

	for _, m := range members {
		target := filepath.Join(absDest, filepath.FromSlash(m.rel))

		if m.isDir {
			if err := j.ensureDir(absDest, m.rel); err != nil {
				return report, err
			}
			report.Dirs++
			continue
		}

		if err := j.ensureDir(absDest, path.Dir(m.rel)); err != nil {
			return report, err
		}

		if _, err := os.Lstat(target); err == nil {
			if err := j.moveAside(target); err != nil {
				return report, err
			}
			report.Overwritten++
		}

		if err := j.place(m.staged, target); err != nil {
			return report, fmt.Errorf("failed to place %s: %w", m.rel, err)
		}
		report.Files++
	}

	logger.Log.Debug("archive unpacked",
		zap.String("dest", absDest),
		zap.Int("files", report.Files),
		zap.Int("dirs", report.Dirs))

	return report, nil
}

// mkdirAll creates dir and any missing parents, returning the directories it
// created from the outermost in.
func mkdirAll(dir string) ([]string, error) {
	var missing []string
	for cur := dir; ; {
		if _, err := os.Lstat(cur); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, cur)
		next := filepath.Dir(cur)
		if next == cur {
			break
		}
		cur = next
	}

	created := make([]string, 0, len(missing))
	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], dirMode); err != nil && !errors.Is(err, fs.ErrExist) {
			removeDirs(created)
			return nil, err
		}
		created = append(created, missing[i])
	}
	return created, nil
}

// removeDirs removes dirs innermost first. Directories that are no longer
// empty are kept.
func removeDirs(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
}

type movedFile struct {
	orig  string
	saved string
}

// journal records every change the placement pass makes to the destination
// so a failed extraction can be undone.
type journal struct {
	staging string
	rename  func(oldpath, newpath string) error
	placed  []string
	created []string
	aside   []movedFile
}

func (j *journal) place(staged, target string) error {
	if err := j.rename(staged, target); err != nil {
		return err
	}
	j.placed = append(j.placed, target)
	return nil
}

// moveAside parks an existing file in the staging directory.
func (j *journal) moveAside(target string) error {
	saved := filepath.Join(j.staging, "old-"+strconv.Itoa(len(j.aside)))
	if err := os.Rename(target, saved); err != nil {
		return fmt.Errorf("failed to move %s aside: %w", target, err)
	}
	j.aside = append(j.aside, movedFile{orig: target, saved: saved})
	return nil
}

// ensureDir creates dest/rel. A regular file standing where a directory is
// needed is replaced by the directory.
func (j *journal) ensureDir(dest, rel string) error {
	if rel == "." || rel == "" {
		return nil
	}

	cur := dest
	for _, part := range strings.Split(rel, "/") {
		cur = filepath.Join(cur, part)

		info, err := os.Lstat(cur)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			logger.Log.Warn("replacing file with directory",
				zap.String("path", cur))
			if err := j.moveAside(cur); err != nil {
				return err
			}
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to stat %s: %w", cur, err)
		}

		if err := os.Mkdir(cur, dirMode); err != nil {
			return fmt.Errorf("failed to create %s: %w", cur, err)
		}
		j.created = append(j.created, cur)
	}

	return nil
}

func (j *journal) rollback() {
	for i := len(j.placed) - 1; i >= 0; i-- {
		_ = os.Remove(j.placed[i])
	}
	removeDirs(j.created)
	for i := len(j.aside) - 1; i >= 0; i-- {
		a := j.aside[i]
		if err := os.Rename(a.saved, a.orig); err != nil {
			logger.Log.Error("failed to restore file",
				zap.String("path", a.orig),
				zap.Error(err))
		}
	}

	logger.Log.Warn("extraction rolled back",
		zap.Int("removed", len(j.placed)),
		zap.Int("restored", len(j.aside)))
}

// collect validates every member name before anything touches the disk.
func collect(files []*zip.File) ([]member, error) {
	members := make([]member, 0, len(files))
	kinds := make(map[string]bool)

	for _, f := range files {
		rel, isDir, err := memberPath(f.Name)
		if err != nil {
			return nil, err
		}
		if rel == "" {
			continue
		}

		mode := f.Mode()
		if mode&fs.ModeDir != 0 {
			isDir = true
		}
		if mode&fs.ModeSymlink != 0 {
			logger.Log.Warn("skipping symlink entry",
				zap.String("name", f.Name))
			continue
		}

		if prev, ok := kinds[rel]; ok && prev != isDir {
			return nil, &FormatError{Name: f.Name, Err: errors.New("entry is both a file and a directory")}
		}
		kinds[rel] = isDir

		members = append(members, member{file: f, rel: rel, isDir: isDir})
	}

	for rel := range kinds {
		for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
			if isDir, ok := kinds[dir]; ok && !isDir {
				return nil, &FormatError{Name: dir, Err: errors.New("entry is both a file and a directory")}
			}
		}
	}

	return members, nil
}

// memberPath turns a member name into a clean slash-separated relative path.
// An empty result means the member names the archive root and is skipped.
func memberPath(name string) (string, bool, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	isDir := strings.HasSuffix(n, "/")

	if n == "" {
		return "", false, &FormatError{Name: name, Err: errors.New("empty entry name")}
	}
	if strings.HasPrefix(n, "/") || filepath.VolumeName(n) != "" || (len(n) >= 2 && n[1] == ':') {
		return "", false, &PathEscapeError{Name: name}
	}

	clean := path.Clean(n)
	if clean == "." {
		return "", isDir, nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", false, &PathEscapeError{Name: name}
	}

	return clean, isDir, nil
}

// checkTargets refuses to replace a directory with a file. It runs before
// staging so the failure leaves the destination untouched.
func checkTargets(dest string, members []member) error {
	for _, m := range members {
		if m.isDir {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(m.rel))
		if info, err := os.Lstat(target); err == nil && info.IsDir() {
			return fmt.Errorf("cannot extract %s: a directory exists at %s", m.rel, target)
		}
	}
	return nil
}

// stage decompresses f into dst and returns the number of bytes written.
// Reading to EOF makes the zip reader verify the member checksum.
func stage(f *zip.File, dst string) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, &FormatError{Name: f.Name, Err: err}
	}

	defer func(rc io.ReadCloser) {
		_ = rc.Close()
	}(rc)

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		return 0, fmt.Errorf("failed to stage %s: %w", f.Name, err)
	}

	n, err := io.Copy(out, rc)
	if err != nil {
		_ = out.Close()
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return n, fmt.Errorf("failed to stage %s: %w", f.Name, err)
		}
		return n, &FormatError{Name: f.Name, Err: err}
	}

	if err := out.Close(); err != nil {
		return n, fmt.Errorf("failed to stage %s: %w", f.Name, err)
	}

	return n, nil
}
