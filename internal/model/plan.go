package model

import "strings"

// PlanEntry is one archive member. Dir entries only appear when empty
// directories are preserved; their Path has no trailing slash.
type PlanEntry struct {
	Path string
	Dir  bool
}

// Name is the zip member name for the entry.
func (e PlanEntry) Name() string {
	if e.Dir {
		return e.Path + "/"
	}
	return e.Path
}

// ArchivePlan lists archive members sorted by Name, without duplicates.
type ArchivePlan struct {
	Entries []PlanEntry
}

func (p ArchivePlan) Files() []string {
	files := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		if !e.Dir {
			files = append(files, e.Path)
		}
	}
	return files
}

func (p ArchivePlan) Names() []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Name()
	}
	return names
}

func (p ArchivePlan) String() string {
	return strings.Join(p.Names(), ", ")
}
