package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scriptpack/internal/backup"
	"scriptpack/internal/config"
	"scriptpack/internal/db"
	"scriptpack/internal/model"
	"scriptpack/internal/repository"
	"scriptpack/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv  *Server
	sess *session.Session
	root string
	dest string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() {
		_ = db.Close()
	})

	cfg := config.Default
	cfg.Watch.InitialPack = false

	events := NewEventLog()
	sess := session.New(&cfg, backup.NewGuard(),
		session.WithRecorder(repository.NewHistoryRepository()),
		session.WithEventHandler(events.Record))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("a"), 0644))

	return &fixture{
		srv:  NewServer(sess, events, cfg.DaemonPort),
		sess: sess,
		root: root,
		dest: filepath.Join(t.TempDir(), "mod.ts4script"),
	}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStatusWithoutWatch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.WatchStopped, resp.Watch.State)
	assert.Empty(t, resp.Events)
}

func TestPackRequiresWatch(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/pack").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/reload").Code)
}

func TestPackReloadAndHistory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sess.StartWatch(f.root, f.dest, time.Hour, 0))
	t.Cleanup(f.sess.StopWatch)

	rec := f.do(t, http.MethodPost, "/pack")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result model.PackResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Files)
	assert.Equal(t, model.TriggerManual, result.Trigger)

	var status StatusResponse
	rec = f.do(t, http.MethodGet, "/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, f.root, status.Watch.Workspace)
	assert.Equal(t, config.Default.DefaultIgnore, status.Patterns)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, ".ts4ignore"), []byte("*.md\n"), 0644))
	rec = f.do(t, http.MethodPost, "/reload")
	require.Equal(t, http.StatusOK, rec.Code)

	var reload ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reload))
	assert.True(t, reload.FromFile)
	assert.Equal(t, []string{"*.md"}, reload.Patterns)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, ".ts4ignore"), []byte("[bad\n"), 0644))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/reload").Code)

	rec = f.do(t, http.MethodGet, "/history?n=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var histories []model.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &histories))
	require.Len(t, histories, 1)
	assert.Equal(t, model.OperationPack, histories[0].Operation)
	assert.Equal(t, model.StatusSuccess, histories[0].Status)
}

func TestStopSignals(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/stop").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/stop").Code)

	select {
	case <-f.srv.StopCh():
	default:
		t.Fatal("stop was not signalled")
	}
}

func TestEventLogKeepsRecentEvents(t *testing.T) {
	log := NewEventLog()
	for i := range maxEvents + 5 {
		ev := model.WatchEvent{Type: model.WatchPacked, Timestamp: time.Now()}
		if i == maxEvents+4 {
			ev = model.WatchEvent{Type: model.WatchPackFailed, Err: errors.New("boom"), Timestamp: time.Now()}
		}
		log.Record(ev)
	}

	events := log.Snapshot()
	require.Len(t, events, maxEvents)
	assert.Equal(t, model.WatchPackFailed, events[len(events)-1].Type)
	assert.Equal(t, "boom", events[len(events)-1].Error)
}
