package models

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

type ActionType string

const (
	ActionClear ActionType = "clear"
	ActionPurge ActionType = "purge"
)

func ParseActionType(s string) (ActionType, error) {
	switch a := ActionType(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionClear, ActionPurge:
		return a, nil
	}
	return "", fmt.Errorf("invalid action_type %q, use 'purge' or 'clear'", s)
}

// Phrase describes the operation in certificate prose.
func (a ActionType) Phrase() string {
	switch a {
	case ActionPurge:
		return "a secure purge operation"
	case ActionClear:
		return "a standard clean operation"
	}
	return "a data cleaning operation"
}

// FlexString accepts either a JSON string or a bare number ("2.5 GB" or 1024).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case nil:
		*f = ""
		return nil
	case string, float64:
		s, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	return fmt.Errorf("expected string or number, got %s", data)
}

// DeviceInfo is the optional device section printed on a sanitization certificate.
type DeviceInfo struct {
	DeviceID        string     `json:"device_id,omitempty"`
	OperatingSystem string     `json:"Operating System,omitempty"`
	OS              string     `json:"os,omitempty"`
	SizeRemoved     FlexString `json:"size_removed,omitempty"`
	ActionType      string     `json:"action_type,omitempty"`
	Timestamp       string     `json:"timestamp,omitempty"`
	FilesDeleted    []string   `json:"files_deleted,omitempty"`
}

func (d *DeviceInfo) OSName() string {
	if d.OperatingSystem != "" {
		return d.OperatingSystem
	}
	return d.OS
}

// DeviceCleanupInput is one entry of process-device input.
type DeviceCleanupInput struct {
	DeviceID        string     `json:"device_id" validate:"required"`
	OperatingSystem string     `json:"Operating System"`
	OS              string     `json:"os"`
	FilesDeleted    []string   `json:"files_deleted"`
	SizeRemoved     FlexString `json:"size_removed" validate:"required"`
	ActionType      string     `json:"action_type" validate:"required"`
	Timestamp       string     `json:"timestamp" validate:"required"`
}

type DeviceCleanupRecord struct {
	RecordType        RecordType `json:"record_type"`
	DeviceID          string     `json:"device_id"`
	OS                string     `json:"os"`
	ActionType        ActionType `json:"action_type"`
	SizeRemoved       string     `json:"size_removed"`
	Timestamp         string     `json:"timestamp"`
	FilesDeletedCount int        `json:"files_deleted_count"`
	FilesDeleted      []string   `json:"files_deleted"`
	ProcessedAt       time.Time  `json:"processed_at"`
}
