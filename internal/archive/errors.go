package archive

import "fmt"

// ReadError aborts a pack when a planned file cannot be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// FormatError reports an archive that is not a readable zip or has a member
// that cannot be decoded.
type FormatError struct {
	Name string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("malformed archive entry %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("malformed archive: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// PathEscapeError reports a member whose name resolves outside the
// destination directory.
type PathEscapeError struct {
	Name string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("archive entry %q escapes the destination directory", e.Name)
}
