package model

import (
	"time"

	"gorm.io/gorm"
)

type Operation string

const (
	OperationPack    Operation = "PACK"
	OperationExtract Operation = "EXTRACT"
)

type Trigger string

const (
	TriggerManual Trigger = "MANUAL"
	TriggerWatch  Trigger = "WATCH"
)

type OpStatus string

const (
	StatusSuccess OpStatus = "SUCCESS"
	StatusFailed  OpStatus = "FAILED"
)

type History struct {
	gorm.Model
	Operation  Operation `gorm:"not null"`
	Trigger    Trigger   `gorm:"not null"`
	Status     OpStatus  `gorm:"not null"`
	Workspace  string    `gorm:"not null"`
	Archive    string    `gorm:"not null"`
	Files      int
	Bytes      int64
	Checksum   string
	BackupPath string
	ErrMsg     string
	FinishedAt time.Time `gorm:"not null"`
}

// PackResult describes one completed pack.
type PackResult struct {
	Workspace string        `json:"workspace"`
	Archive   string        `json:"archive"`
	Files     int           `json:"files"`
	Bytes     int64         `json:"bytes"`
	Checksum  string        `json:"checksum"`
	Backup    *BackupRecord `json:"backup,omitempty"`
	Trigger   Trigger       `json:"trigger"`
}

// ExtractReport describes one completed extraction.
type ExtractReport struct {
	Files       int   `json:"files"`
	Dirs        int   `json:"dirs"`
	Bytes       int64 `json:"bytes"`
	Overwritten int   `json:"overwritten"`
}
