package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashsync/adapters/excel"
	"dashsync/app"
	"dashsync/domain/grid"
	"dashsync/internal/config"
	"dashsync/internal/synclog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func localConfig(t *testing.T, workbook string) *config.Config {
	t.Helper()
	return &config.Config{
		Google:   config.GoogleConfig{Timeout: 5 * time.Second},
		Storage:  config.StorageConfig{LogKey: "sync-log.json", Timeout: 5 * time.Second},
		Notify:   config.NotifyConfig{Timeout: time.Second},
		Sync:     config.SyncConfig{PriorityTopN: 100, HistoryLimit: 20},
		Local:    config.LocalConfig{Workbook: workbook, StoreDir: t.TempDir()},
		Datasets: config.DefaultDatasets("traffic", "revenue"),
	}
}

func TestRunSyncLocalMode(t *testing.T) {
	workbook := filepath.Join(t.TempDir(), "sheets.xlsx")
	require.NoError(t, excel.WriteWorkbook(workbook, []excel.Sheet{
		{Name: "Revenue", Rows: [][]string{{"#", "Website", "Jan 2024"}, {"1", "a.com", "$10"}}},
		{Name: "Traffic Monthly", Rows: [][]string{{"Website", "Jan 2024"}, {"a.com", "100"}, {"b.com", "7"}}},
		{Name: "Traffic Average", Rows: [][]string{{"Website", "Avg"}, {"a.com", "90"}}},
		{Name: "DR", Rows: [][]string{{"Website", "Jan 1 - 2024"}, {"a.com", "40"}}},
		{Name: "RD", Rows: [][]string{{"Website", "Jan 1 - 2024"}, {"a.com", "900"}}},
	}))
	cfg := localConfig(t, workbook)

	result := runSync(context.Background(), cfg, zap.NewNop())

	require.Equal(t, http.StatusOK, result.StatusCode, result.Errors)
	assert.Equal(t, 1, result.PriorityDomains)

	data, err := os.ReadFile(filepath.Join(cfg.Local.StoreDir, "traffic-data-priority.csv"))
	require.NoError(t, err)
	priority, err := grid.DecodeCSV(data)
	require.NoError(t, err)
	assert.Equal(t, grid.Grid{{"Website", "Jan 2024"}, {"a.com", "100"}}, priority)

	data, err = os.ReadFile(filepath.Join(cfg.Local.StoreDir, "sync-log.json"))
	require.NoError(t, err)
	log, err := synclog.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, synclog.StatusSuccess, log.Status)
	assert.Equal(t, result.RunID, log.RunID)
}

func TestRunSyncMissingTabIsPartial(t *testing.T) {
	workbook := filepath.Join(t.TempDir(), "sheets.xlsx")
	require.NoError(t, excel.WriteWorkbook(workbook, []excel.Sheet{
		{Name: "Revenue", Rows: [][]string{{"#", "Website", "Jan 2024"}, {"1", "a.com", "$10"}}},
	}))

	result := runSync(context.Background(), localConfig(t, workbook), zap.NewNop())

	assert.Equal(t, http.StatusMultiStatus, result.StatusCode)
	assert.True(t, result.Results[config.DatasetRevenue])
	assert.False(t, result.Results[config.DatasetDR])
	assert.Len(t, result.Errors, 4)
}

func TestRunSyncWithoutSheetSourceIsSetupFailure(t *testing.T) {
	cfg := localConfig(t, "")

	result := runSync(context.Background(), cfg, zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, "Sync failed", result.Message)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "GOOGLE_SERVICE_ACCOUNT_KEY")
}

func TestSyncCommandInvalidConfigPrintsSetupFailure(t *testing.T) {
	alerts := make(chan string, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		alerts <- string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	t.Setenv("HISTORY_LIMIT", "-1")
	t.Setenv("NOTIFY_TIMEOUT", "")
	t.Setenv("SLACK_WEBHOOK_URL", webhook.URL)

	var out bytes.Buffer
	cmd := newSyncCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)

	var result app.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result), out.String())
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.Equal(t, "Sync failed", result.Message)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "HISTORY_LIMIT must be positive")

	select {
	case alert := <-alerts:
		assert.Contains(t, alert, "Sync failed with critical error")
	case <-time.After(5 * time.Second):
		t.Fatal("no alert was posted")
	}
}
