package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/procurelab/reqnotify/internal/requests"
)

func TestBuildXLSX(t *testing.T) {
	sentAt := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	rows := []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "2024-06-01T00:00"},
		{ID: "R2", StatusID: "20", ChangeDateTime: "2024-06-10T00:00"},
	}

	buf, err := BuildXLSX(rows, sentAt)
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cells, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, cells, 3)

	assert.Equal(t, []string{"Request ID", "Status", "Last Change", "Notified At"}, cells[0])
	assert.Equal(t, "R1", cells[1][0])
	assert.Equal(t, "20", cells[2][1])
	assert.Equal(t, sentAt.Format(time.RFC3339), cells[1][3])
}

func TestBuildXLSX_Empty(t *testing.T) {
	buf, err := BuildXLSX(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cells, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, cells, 1, "header row only")
}

func TestFileName(t *testing.T) {
	sentAt := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "approval-2024-06-15.xlsx", FileName("approval", sentAt))
}
