package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	prev := NewSnapshot()
	prev.Entries["a.py"] = WorkspaceEntry{Path: "a.py", Size: 10, ModTime: t0}
	prev.Entries["b.py"] = WorkspaceEntry{Path: "b.py", Size: 20, ModTime: t0}
	prev.Entries["c.py"] = WorkspaceEntry{Path: "c.py", Size: 30, ModTime: t0}

	next := NewSnapshot()
	next.Entries["a.py"] = WorkspaceEntry{Path: "a.py", Size: 10, ModTime: t0}
	next.Entries["b.py"] = WorkspaceEntry{Path: "b.py", Size: 20, ModTime: t0.Add(time.Second)}
	next.Entries["d.py"] = WorkspaceEntry{Path: "d.py", Size: 1, ModTime: t0}
	next.EmptyDirs = []string{"assets"}

	assert.Equal(t, []Change{
		{Kind: ChangeAdded, Path: "assets/"},
		{Kind: ChangeModified, Path: "b.py"},
		{Kind: ChangeRemoved, Path: "c.py"},
		{Kind: ChangeAdded, Path: "d.py"},
	}, Diff(prev, next))

	assert.True(t, prev.Equal(prev))
	assert.False(t, prev.Equal(next))
	assert.Equal(t, []string{"a.py", "b.py", "d.py"}, next.Paths())
}

func TestDiffSizeOnly(t *testing.T) {
	t0 := time.Now()

	prev := NewSnapshot()
	prev.Entries["x"] = WorkspaceEntry{Path: "x", Size: 1, ModTime: t0}
	next := NewSnapshot()
	next.Entries["x"] = WorkspaceEntry{Path: "x", Size: 2, ModTime: t0}

	assert.Equal(t, []Change{{Kind: ChangeModified, Path: "x"}}, Diff(prev, next))
}

func TestPlanNames(t *testing.T) {
	p := ArchivePlan{Entries: []PlanEntry{
		{Path: "a.py"},
		{Path: "empty", Dir: true},
		{Path: "pkg/b.py"},
	}}

	assert.Equal(t, []string{"a.py", "empty/", "pkg/b.py"}, p.Names())
	assert.Equal(t, []string{"a.py", "pkg/b.py"}, p.Files())
}
