package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCertificate() *CertificateRecord {
	return &CertificateRecord{
		CertificateID: "CERT-20251202-0123456789ABCDEF01234567",
		RecipientName: "John Doe",
		CourseName:    "Python Programming",
		IssueDate:     "December 02, 2025",
		Issuer:        "Device Sanitization Authority",
		Credentials:   Credentials{TokenHash: "aa", Checksum: "bb"},
		CreatedAt:     time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecord_CertificateRoundtrip(t *testing.T) {
	entry := NewCertificateEntry(sampleCertificate())

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"record_type":"certificate"`)
	assert.Contains(t, string(data), `"credentials":{"token_hash":"aa","checksum":"bb"}`)

	var restored Record
	require.NoError(t, json.Unmarshal(data, &restored))
	require.True(t, restored.IsCertificate())
	assert.Equal(t, "John Doe", restored.Certificate.RecipientName)
	assert.Equal(t, "bb", restored.Certificate.Credentials.Checksum)
}

func TestRecord_DeviceCleanup(t *testing.T) {
	raw := `{"record_type":"device_cleanup","device_id":"dev-1","action_type":"purge","files_deleted":["/a","/b"],"files_deleted_count":2,"size_removed":"1 GB","timestamp":"2025-12-02 10:00"}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.True(t, r.IsDeviceCleanup())
	assert.Equal(t, ActionPurge, r.DeviceCleanup.ActionType)
	assert.Equal(t, []string{"/a", "/b"}, r.DeviceCleanup.FilesDeleted)
}

func TestRecord_LegacyCertificateWithoutDiscriminator(t *testing.T) {
	raw := `{"certificate_id":"CERT-1","recipient_name":"Alice"}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	require.True(t, r.IsCertificate())
	assert.Equal(t, "Alice", r.Certificate.RecipientName)
}

func TestRecord_UnknownTypePreservedVerbatim(t *testing.T) {
	raw := `{"record_type":"audit","who":"bob","extra":{"nested":[1,2,3]}}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.False(t, r.Known())
	assert.Equal(t, RecordType("audit"), r.Type)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestRecord_ExtraFieldsSurviveRewrite(t *testing.T) {
	raw := `{"record_type":"certificate","certificate_id":"CERT-2","recipient_name":"Bob","custom":"kept"}`
	var list []*Record
	require.NoError(t, json.Unmarshal([]byte("["+raw+"]"), &list))
	require.Len(t, list, 1)

	out, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"custom":"kept"`)
}

func TestRecord_MarshalWithoutPayload(t *testing.T) {
	_, err := json.Marshal(Record{Type: RecordTypeCertificate})
	assert.Error(t, err)
}

func TestCertificateRecord_Canonical(t *testing.T) {
	c := sampleCertificate()
	f := c.Canonical()
	assert.Equal(t, c.CertificateID, f.CertificateID)
	assert.Equal(t, c.RecipientName, f.RecipientName)
	assert.Equal(t, c.CourseName, f.CourseName)
	assert.Equal(t, c.IssueDate, f.IssueDate)

	m := c.Metadata()
	assert.Equal(t, EmbeddedMetadata{CertificateID: c.CertificateID, TokenHash: "aa", Checksum: "bb"}, m)
}
