package daemon

import (
	"sync"

	"scriptpack/internal/model"
)

const maxEvents = 50

// EventEntry is the JSON form of a watcher event.
type EventEntry struct {
	Type      model.WatchEventType `json:"type"`
	Changes   int                  `json:"changes"`
	Files     int                  `json:"files,omitempty"`
	Backup    string               `json:"backup,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp string               `json:"timestamp"`
}

// EventLog keeps the most recent watcher events for the status endpoint.
type EventLog struct {
	mu     sync.RWMutex
	events []EventEntry
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Record(ev model.WatchEvent) {
	entry := EventEntry{
		Type:      ev.Type,
		Changes:   len(ev.Changes),
		Timestamp: ev.Timestamp.Format("2006-01-02 15:04:05"),
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if ev.Result != nil {
		entry.Files = ev.Result.Files
		if ev.Result.Backup != nil {
			entry.Backup = ev.Result.Backup.Path
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, entry)
	if len(l.events) > maxEvents {
		l.events = l.events[len(l.events)-maxEvents:]
	}
}

// Snapshot returns the recorded events, newest last.
func (l *EventLog) Snapshot() []EventEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]EventEntry(nil), l.events...)
}
