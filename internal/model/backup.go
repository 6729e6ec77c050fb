package model

import "time"

type BackupRecord struct {
	Original  string    `json:"original"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
