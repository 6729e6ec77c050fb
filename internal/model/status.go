package model

import "time"

type WatchState string

const (
	WatchStopped  WatchState = "STOPPED"
	WatchIdle     WatchState = "IDLE"
	WatchScanning WatchState = "SCANNING"
	WatchSettling WatchState = "SETTLING"
)

type WatchStatus struct {
	State     WatchState    `json:"state"`
	Workspace string        `json:"workspace"`
	Archive   string        `json:"archive"`
	Interval  time.Duration `json:"interval"`
	Debounce  int           `json:"debounce_ticks"`
	StartedAt time.Time     `json:"started_at"`
	Ticks     int           `json:"ticks"`
	Pending   bool          `json:"pending"`
	Packs     int           `json:"packs"`
	Failed    int           `json:"failed"`
	Files     int           `json:"files"`
	LastPack  *time.Time    `json:"last_pack"`
	LastError string        `json:"last_error,omitempty"`
}
