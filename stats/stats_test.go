package stats

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geobatch/tilepyramid/batch"
)

func TestRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2024, 3, 17, 9, 30, 0, 0, time.UTC)
	require.NoError(t, db.Record(batch.Outcome{
		FileName:          "dem.tif",
		TranslateDuration: 1500 * time.Millisecond,
		TilingDuration:    42 * time.Second,
		MaxZoom:           14,
		Timestamp:         ts,
	}))
	require.NoError(t, db.Record(batch.Outcome{
		FileName:  "broken.tif",
		MaxZoom:   -1,
		Clamped:   false,
		Err:       "no affine georeferencing",
		Timestamp: ts,
	}))

	handle, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer handle.Close()

	var (
		translateMS, tilingMS int64
		maxZoom, clamped      int
		errText               sql.NullString
		createdAt             string
	)
	row := handle.QueryRow(`SELECT translate_ms, tiling_ms, max_zoom, clamped, error, created_at
		FROM tiling_outcomes WHERE file_name = ?`, "dem.tif")
	require.NoError(t, row.Scan(&translateMS, &tilingMS, &maxZoom, &clamped, &errText, &createdAt))
	require.Equal(t, int64(1500), translateMS)
	require.Equal(t, int64(42000), tilingMS)
	require.Equal(t, 14, maxZoom)
	require.Equal(t, 0, clamped)
	require.False(t, errText.Valid)
	require.Equal(t, "2024-03-17 09:30:00", createdAt)

	row = handle.QueryRow(`SELECT error FROM tiling_outcomes WHERE file_name = ?`, "broken.tif")
	require.NoError(t, row.Scan(&errText))
	require.True(t, errText.Valid)
	require.Equal(t, "no affine georeferencing", errText.String)

	var count int
	require.NoError(t, handle.QueryRow(`SELECT count(*) FROM tiling_outcomes`).Scan(&count))
	require.Equal(t, 2, count)
}

func TestOpenCreatesSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(batch.Outcome{FileName: "a.tif", Timestamp: time.Now()}))
	require.NoError(t, db.Close())

	// Reopening appends to the existing table.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Record(batch.Outcome{FileName: "b.tif", Timestamp: time.Now()}))
	defer db.Close()

	handle, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer handle.Close()

	var count int
	require.NoError(t, handle.QueryRow(`SELECT count(*) FROM tiling_outcomes`).Scan(&count))
	require.Equal(t, 2, count)
}
