package repository

import (
	"errors"
	"path/filepath"
	"testing"

	"scriptpack/internal/db"
	"scriptpack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() {
		_ = db.Close()
	})
}

func TestSaveAndQueryHistory(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	result := &model.PackResult{
		Files:  3,
		Bytes:  120,
		Backup: &model.BackupRecord{Path: "/mods/a.bak_20240101_000000.ts4script"},
	}
	require.NoError(t, repo.SavePack("/ws", "/mods/a.ts4script", model.TriggerWatch, result, nil))
	require.NoError(t, repo.SavePack("/ws", "/mods/a.ts4script", model.TriggerManual, nil, errors.New("read failed")))
	require.NoError(t, repo.SaveExtract("/mods/a.ts4script", "/ws", model.ExtractReport{Files: 3, Bytes: 120}, nil))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Success: 2, Failed: 1, Packs: 1}, stats)

	recent, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, model.OperationExtract, recent[0].Operation)

	failed, err := repo.GetFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "read failed", failed[0].ErrMsg)
	assert.Equal(t, model.TriggerManual, failed[0].Trigger)

	all, err := repo.GetRecent(10)
	require.NoError(t, err)
	var packed model.History
	for _, h := range all {
		if h.Operation == model.OperationPack && h.Status == model.StatusSuccess {
			packed = h
		}
	}
	assert.Equal(t, 3, packed.Files)
	assert.Equal(t, "/mods/a.bak_20240101_000000.ts4script", packed.BackupPath)
}
