// Package archive converts between a workspace and a zip archive.
//
// Packing is deterministic: members are written in plan order, every header
// carries the same modification time and mode, and the compressor is fixed by
// configuration. Packing unchanged content twice gives identical bytes.
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
	"path/filepath"
	"time"

	"scriptpack/internal/config"
	"scriptpack/internal/model"

	"github.com/klauspost/compress/flate"
)

// Epoch is the modification time written into every member header. It is
// the earliest time an MS-DOS timestamp can hold.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	fileMode fs.FileMode = 0644
	dirMode  fs.FileMode = 0755
)

var errNotRegular = errors.New("not a regular file")

type Codec struct {
	method uint16
	level  int
	rename func(oldpath, newpath string) error
}

func New(cfg config.ArchiveConfig) *Codec {
	c := &Codec{method: zip.Deflate, level: cfg.CompressionLevel, rename: os.Rename}
	if cfg.Compression == config.CompressionStore {
		c.method = zip.Store
	}
	return c
}

// Pack reads every planned file under root and returns the archive bytes.
// Any file that disappeared or changed type since the scan fails the whole
// pack with a ReadError.
func (c *Codec) Pack(ctx context.Context, root string, plan model.ArchivePlan) ([]byte, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, c.compressor)

	for _, e := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		if e.Dir {
			err = c.writeDir(zw, e)
		} else {
			err = c.writeFile(zw, root, e)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Codec) writeDir(zw *zip.Writer, e model.PlanEntry) error {
	hdr := &zip.FileHeader{
		Name:     e.Name(),
		Method:   zip.Store,
		Modified: Epoch,
	}
	hdr.SetMode(fs.ModeDir | dirMode)

	if _, err := zw.CreateHeader(hdr); err != nil {
		return fmt.Errorf("failed to add %s: %w", e.Name(), err)
	}
	return nil
}

func (c *Codec) writeFile(zw *zip.Writer, root string, e model.PlanEntry) error {
	path := filepath.Join(root, filepath.FromSlash(e.Path))

	info, err := os.Stat(path)
	if err != nil {
		return &ReadError{Path: e.Path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &ReadError{Path: e.Path, Err: errNotRegular}
	}

	f, err := os.Open(path)
	if err != nil {
		return &ReadError{Path: e.Path, Err: err}
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	hdr := &zip.FileHeader{
		Name:     e.Name(),
		Method:   c.method,
		Modified: Epoch,
	}
	hdr.SetMode(fileMode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", e.Path, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		return &ReadError{Path: e.Path, Err: err}
	}

	return nil
}

func (c *Codec) compressor(out io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(out, c.level)
}

func decompressor(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
