package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"scriptpack/internal/util"
)

// Parse reads one pattern per line. Blank lines and lines starting with '#'
// are skipped; surrounding whitespace is trimmed.
func Parse(r io.Reader) ([]string, error) {
	var patterns []string

	sc := bufio.NewScanner(r)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}

	return patterns, nil
}

// Load returns the patterns of the ignore file in workspace, or a copy of
// defaults when the file does not exist.
func Load(workspace, name string, defaults []string) ([]string, bool, error) {
	path := filepath.Join(workspace, name)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return append([]string(nil), defaults...), false, nil
		}
		return nil, false, fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	patterns, err := Parse(f)
	if err != nil {
		return nil, false, err
	}

	return patterns, true, nil
}

// LoadMatcher is Load followed by Compile.
func LoadMatcher(workspace, name string, defaults []string) (*Matcher, error) {
	patterns, _, err := Load(workspace, name, defaults)
	if err != nil {
		return nil, err
	}

	return Compile(patterns)
}

// Write replaces the ignore file in workspace. Patterns are validated first so
// a file that could not be loaded back is never written.
func Write(workspace, name string, patterns []string) error {
	if _, err := Compile(patterns); err != nil {
		return err
	}

	var b strings.Builder
	for _, p := range patterns {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	return util.AtomicWrite(filepath.Join(workspace, name), strings.NewReader(b.String()))
}
