package model

import "time"

type WatchEventType string

const (
	WatchSettled    WatchEventType = "SETTLED"
	WatchPacked     WatchEventType = "PACKED"
	WatchPackFailed WatchEventType = "PACK_FAILED"
	WatchScanError  WatchEventType = "SCAN_ERROR"
)

type WatchEvent struct {
	Type      WatchEventType
	Changes   []Change
	Result    *PackResult
	Err       error
	Timestamp time.Time
}
