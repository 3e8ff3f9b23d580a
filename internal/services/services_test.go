package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"certgen/internal/integrity"
	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/render"
	"certgen/internal/store"
	"certgen/internal/structures"
	"certgen/internal/testutil"
)

const testSecret = "test-secret"

type fixture struct {
	dir       string
	storePath string
	conf      *structures.Config
	store     *store.FileStore
	engine    *integrity.Engine
	renderer  *testutil.MockRenderer
	metrics   *testutil.MockMetrics
	logger    *testutil.MockLogger
	certs     *CertificateService
	verifier  *VerificationService
	devices   *DeviceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:       dir,
		storePath: filepath.Join(dir, "credentials.json"),
		renderer:  &testutil.MockRenderer{},
		metrics:   testutil.NewMockMetrics(),
		logger:    &testutil.MockLogger{},
		engine:    integrity.NewEngine(testSecret, 16),
	}
	f.conf = &structures.Config{
		Store:  structures.StoreConfig{FilePath: f.storePath, LockTimeout: time.Second},
		Render: structures.RenderConfig{Enabled: true, OutputDir: filepath.Join(dir, "certificates")},
	}
	cache := providers.NewCacheProvider(f.conf, f.logger)
	f.store = store.NewFileStore(f.conf, store.PlainCompression{}, cache, f.metrics, f.logger)
	f.certs = NewCertificateService(f.conf, f.store, f.engine, integrity.NewIdentifierGenerator(), f.renderer, render.DefaultTemplate(), f.metrics, f.logger)
	f.verifier = NewVerificationService(f.store, f.engine, f.metrics, f.logger)
	f.devices = NewDeviceService(f.store, f.metrics, f.logger)
	return f
}

// withRenderer swaps the mock renderer for the real PDF renderer.
func (f *fixture) withRenderer() *fixture {
	r := render.NewPdfRenderer(render.DefaultTemplate(), f.logger)
	f.certs = NewCertificateService(f.conf, f.store, f.engine, integrity.NewIdentifierGenerator(), r, render.DefaultTemplate(), f.metrics, f.logger)
	return f
}

func (f *fixture) issue(t *testing.T, name, course, date string) *models.IssuedCertificate {
	t.Helper()
	issued, err := f.certs.Issue(context.Background(), &models.CertificateRequest{
		RecipientName: name,
		CourseName:    course,
		IssueDate:     date,
	})
	require.NoError(t, err)
	return issued
}

// mutateStore edits the raw store file the way an attacker with disk access would.
func (f *fixture) mutateStore(t *testing.T, mutate func(entry map[string]interface{})) {
	t.Helper()
	data, err := os.ReadFile(f.storePath)
	require.NoError(t, err)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entries))
	for _, e := range entries {
		mutate(e)
	}

	out, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.storePath, out, 0o644))
}

func rawEntries(t *testing.T, entries ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, json.RawMessage(e))
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sequenceReader replays fixed bytes so generated ids are predictable.
func sequenceReader(chunks ...[]byte) *bytes.Reader {
	return bytes.NewReader(bytes.Join(chunks, nil))
}

func readStore(f *fixture) (string, error) {
	data, err := os.ReadFile(f.storePath)
	return string(data), err
}
