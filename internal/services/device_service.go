package services

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gookit/validate"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/store"
)

type DeviceServiceInterface interface {
	Process(ctx context.Context, entries []json.RawMessage) *models.BatchReport
}

type DeviceService struct {
	store   store.RecordStore
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
	now     func() time.Time
}

func NewDeviceService(recordStore store.RecordStore, metrics providers.MetricsProviderInterface, logger providers.Logger) *DeviceService {
	return &DeviceService{
		store:   recordStore,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Process stores each device cleanup entry on its own. Malformed entries are
// reported and skipped.
func (s *DeviceService) Process(ctx context.Context, entries []json.RawMessage) *models.BatchReport {
	report := &models.BatchReport{RunID: uuid.NewString()}

	for i, raw := range entries {
		item := models.BatchItem{Index: i, Label: fmt.Sprintf("entry %d", i+1)}

		rec, err := s.parse(raw)
		if err == nil {
			item.Label = rec.DeviceID
			err = s.store.Append(ctx, models.NewDeviceCleanupEntry(rec))
		}
		item.Err = err

		if item.Succeeded() {
			s.metrics.IncBatchItems("device", "ok")
			s.logger.Infof(providers.TypeBatch, "Stored cleanup record for device %s", rec.DeviceID)
		} else {
			s.metrics.IncBatchItems("device", "failed")
			s.logger.Warnf(providers.TypeBatch, "Run %s: %s rejected: %v", report.RunID, item.Label, item.Err)
		}
		report.Add(item)
	}
	return report
}

func (s *DeviceService) parse(raw json.RawMessage) (*models.DeviceCleanupRecord, error) {
	var wrapped struct {
		Device json.RawMessage `json:"device"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, invalidInput("%v", err)
	}
	if len(wrapped.Device) > 0 && string(wrapped.Device) != "null" {
		raw = wrapped.Device
	}

	var in models.DeviceCleanupInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, invalidInput("%v", err)
	}

	v := validate.Struct(&in)
	if !v.Validate() {
		return nil, invalidInput("%s", v.Errors.One())
	}
	if in.FilesDeleted == nil {
		return nil, invalidInput("files_deleted is required and must be a list")
	}
	action, err := models.ParseActionType(in.ActionType)
	if err != nil {
		return nil, invalidInput("%v", err)
	}

	osName := in.OperatingSystem
	if osName == "" {
		osName = in.OS
	}

	return &models.DeviceCleanupRecord{
		DeviceID:          in.DeviceID,
		OS:                osName,
		ActionType:        action,
		SizeRemoved:       string(in.SizeRemoved),
		Timestamp:         in.Timestamp,
		FilesDeletedCount: len(in.FilesDeleted),
		FilesDeleted:      in.FilesDeleted,
		ProcessedAt:       s.now().UTC(),
	}, nil
}
