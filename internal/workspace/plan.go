package workspace

import (
	"slices"
	"strings"

	"scriptpack/internal/model"
)

// Plan turns a snapshot into the sorted member list of an archive.
func Plan(snap model.Snapshot) model.ArchivePlan {
	entries := make([]model.PlanEntry, 0, len(snap.Entries)+len(snap.EmptyDirs))

	for path := range snap.Entries {
		entries = append(entries, model.PlanEntry{Path: path})
	}
	for _, dir := range snap.EmptyDirs {
		if _, ok := snap.Entries[dir]; ok {
			continue
		}
		entries = append(entries, model.PlanEntry{Path: dir, Dir: true})
	}

	slices.SortFunc(entries, func(a, b model.PlanEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	entries = slices.CompactFunc(entries, func(a, b model.PlanEntry) bool {
		return a.Name() == b.Name()
	})

	return model.ArchivePlan{Entries: entries}
}
