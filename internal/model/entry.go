package model

import "time"

// WorkspaceEntry is one regular file seen during a scan.
type WorkspaceEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

func (e WorkspaceEntry) Same(o WorkspaceEntry) bool {
	return e.Path == o.Path && e.Size == o.Size && e.ModTime.Equal(o.ModTime)
}
