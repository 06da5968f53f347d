package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"dashsync/internal/migration"
	"dashsync/internal/synclog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunArchiveLive(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("Skipping live test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, databaseURL)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migration.NewRunner().Run(ctx, db))

	archive := NewRunArchive(db)
	run := synclog.RunLog{
		RunID:               uuid.NewString(),
		LastSync:            time.Now().UTC().Add(time.Hour),
		Status:              synclog.StatusPartial,
		DurationSeconds:     12.5,
		PriorityDomainCount: 180,
		Errors:              []string{"RD: timeout"},
		Changes:             []synclog.DataChange{{File: "DR History.csv", RowDelta: 2}},
	}
	require.NoError(t, archive.Record(ctx, run))
	require.NoError(t, archive.Record(ctx, run), "recording twice is a no-op")

	records, err := archive.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, run.RunID, records[0].RunID)
	assert.Equal(t, "partial", records[0].Status)
	assert.True(t, records[0].DataChanged)
	assert.Equal(t, 1, records[0].ErrorCount)
}
