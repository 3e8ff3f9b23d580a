package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certgen/internal/models"
)

func TestDeviceProcess_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	processedAt := time.Date(2025, 12, 2, 8, 0, 0, 0, time.UTC)
	f.devices.now = func() time.Time { return processedAt }

	report := f.devices.Process(context.Background(), rawEntries(t,
		`{"device_id":"SN-1","Operating System":"Windows 11","files_deleted":["C:/tmp/a","C:/tmp/b"],"size_removed":"1.2 GB","action_type":"PURGE","timestamp":"2025-12-01 10:00"}`,
		`{"device":{"device_id":"SN-2","os":"Ubuntu","files_deleted":[],"size_removed":512,"action_type":"clear","timestamp":"2025-12-01 11:00"}}`,
		`{"os":"Ubuntu","files_deleted":[],"size_removed":"1 GB","action_type":"clear","timestamp":"2025-12-01"}`,
		`{"device_id":"SN-4","files_deleted":"not-a-list","size_removed":"1 GB","action_type":"clear","timestamp":"2025-12-01"}`,
		`{"device_id":"SN-5","files_deleted":[],"size_removed":"1 GB","action_type":"shred","timestamp":"2025-12-01"}`,
		`{"device_id":"SN-6","size_removed":"1 GB","action_type":"clear","timestamp":"2025-12-01"}`,
	))

	require.Len(t, report.Items, 6)
	assert.Equal(t, 2, report.Succeeded())
	for _, item := range report.Failures() {
		assert.ErrorIs(t, item.Err, ErrInvalidInput, item.Label)
	}

	all, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	first := all[0].DeviceCleanup
	require.NotNil(t, first)
	assert.Equal(t, models.RecordTypeDeviceCleanup, first.RecordType)
	assert.Equal(t, "SN-1", first.DeviceID)
	assert.Equal(t, "Windows 11", first.OS)
	assert.Equal(t, models.ActionPurge, first.ActionType)
	assert.Equal(t, 2, first.FilesDeletedCount)
	assert.True(t, processedAt.Equal(first.ProcessedAt))

	second := all[1].DeviceCleanup
	require.NotNil(t, second)
	assert.Equal(t, "SN-2", second.DeviceID)
	assert.Equal(t, "Ubuntu", second.OS)
	assert.Equal(t, "512", second.SizeRemoved)
	assert.Equal(t, 0, second.FilesDeletedCount)

	assert.Equal(t, 2, f.metrics.BatchItems["device/ok"])
	assert.Equal(t, 4, f.metrics.BatchItems["device/failed"])
}

func TestDeviceProcess_SharesStoreWithCertificates(t *testing.T) {
	f := newFixture(t)
	issued := f.issue(t, "John Doe", "Python Programming", "December 02, 2025")

	report := f.devices.Process(context.Background(), rawEntries(t,
		`{"device_id":"SN-1","files_deleted":["/a"],"size_removed":"1 GB","action_type":"clear","timestamp":"2025-12-01"}`,
	))
	require.Equal(t, 1, report.Succeeded())

	res, err := f.verifier.Verify(context.Background(), issued.Record.CertificateID, "John Doe", "Python Programming", issued.Token)
	require.NoError(t, err)
	assert.True(t, res.Valid())
}
