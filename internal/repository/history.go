package repository

import (
	"time"

	"scriptpack/internal/db"
	"scriptpack/internal/model"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) SavePack(workspace, archive string, trigger model.Trigger, result *model.PackResult, err error) error {
	history := model.History{
		Operation:  model.OperationPack,
		Trigger:    trigger,
		Status:     model.StatusSuccess,
		Workspace:  workspace,
		Archive:    archive,
		FinishedAt: time.Now(),
	}

	if result != nil {
		history.Files = result.Files
		history.Bytes = result.Bytes
		history.Checksum = result.Checksum
		if result.Backup != nil {
			history.BackupPath = result.Backup.Path
		}
	}

	if err != nil {
		history.Status = model.StatusFailed
		history.ErrMsg = err.Error()
	}

	return db.DB.Create(&history).Error
}

func (r *HistoryRepository) SaveExtract(archive, workspace string, report model.ExtractReport, err error) error {
	history := model.History{
		Operation:  model.OperationExtract,
		Trigger:    model.TriggerManual,
		Status:     model.StatusSuccess,
		Workspace:  workspace,
		Archive:    archive,
		Files:      report.Files,
		Bytes:      report.Bytes,
		FinishedAt: time.Now(),
	}

	if err != nil {
		history.Status = model.StatusFailed
		history.ErrMsg = err.Error()
	}

	return db.DB.Create(&history).Error
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Packs   int64 `json:"packs"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := db.DB.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	if err := db.DB.Model(&model.History{}).
		Where("operation = ? AND status = ?", model.OperationPack, model.StatusSuccess).
		Count(&stats.Packs).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Order("finished_at desc, id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed() ([]model.History, error) {
	var histories []model.History
	result := db.DB.
		Where("status = ?", model.StatusFailed).
		Order("finished_at desc, id desc").
		Find(&histories)

	return histories, result.Error
}
