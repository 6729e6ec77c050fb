package model

import (
	"maps"
	"slices"
	"strings"
)

// Snapshot is the filtered state of a workspace at one point in time. Keys are
// slash-separated paths relative to the workspace root.
type Snapshot struct {
	Entries   map[string]WorkspaceEntry
	EmptyDirs []string
}

func NewSnapshot() Snapshot {
	return Snapshot{Entries: make(map[string]WorkspaceEntry)}
}

func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Paths returns the entry paths in byte order.
func (s Snapshot) Paths() []string {
	return slices.Sorted(maps.Keys(s.Entries))
}

func (s Snapshot) Equal(o Snapshot) bool {
	return len(Diff(s, o)) == 0
}

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeRemoved  ChangeKind = "REMOVED"
	ChangeModified ChangeKind = "MODIFIED"
)

type Change struct {
	Kind ChangeKind `json:"kind"`
	Path string     `json:"path"`
}

// Diff compares two snapshots by path presence, size and modification time.
// Empty directories count as entries of their own. The result is sorted by
// path.
func Diff(prev, next Snapshot) []Change {
	var changes []Change

	for path, n := range next.Entries {
		p, ok := prev.Entries[path]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeAdded, Path: path})
		case !p.Same(n):
			changes = append(changes, Change{Kind: ChangeModified, Path: path})
		}
	}

	for path := range prev.Entries {
		if _, ok := next.Entries[path]; !ok {
			changes = append(changes, Change{Kind: ChangeRemoved, Path: path})
		}
	}

	for _, dir := range next.EmptyDirs {
		if !slices.Contains(prev.EmptyDirs, dir) {
			changes = append(changes, Change{Kind: ChangeAdded, Path: dir + "/"})
		}
	}

	for _, dir := range prev.EmptyDirs {
		if !slices.Contains(next.EmptyDirs, dir) {
			changes = append(changes, Change{Kind: ChangeRemoved, Path: dir + "/"})
		}
	}

	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Path, b.Path)
	})

	return changes
}
