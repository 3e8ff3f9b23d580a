package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gookit/validate"

	"certgen/internal/integrity"
	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/render"
	"certgen/internal/store"
	"certgen/internal/structures"
)

const (
	DefaultDateLayout = "January 02, 2006"
	maxIDAttempts     = 3
)

var ErrInvalidInput = errors.New("invalid input")

type CertificateServiceInterface interface {
	Issue(ctx context.Context, req *models.CertificateRequest) (*models.IssuedCertificate, error)
	IssueBatch(ctx context.Context, entries []json.RawMessage) *models.BatchReport
}

type CertificateService struct {
	store     store.RecordStore
	engine    *integrity.Engine
	ids       *integrity.IdentifierGenerator
	renderer  render.RendererInterface
	tpl       *render.Template
	outputDir string
	metrics   providers.MetricsProviderInterface
	logger    providers.Logger
	now       func() time.Time
}

func NewCertificateService(
	conf *structures.Config,
	recordStore store.RecordStore,
	engine *integrity.Engine,
	ids *integrity.IdentifierGenerator,
	renderer render.RendererInterface,
	tpl *render.Template,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) *CertificateService {
	return &CertificateService{
		store:     recordStore,
		engine:    engine,
		ids:       ids,
		renderer:  renderer,
		tpl:       tpl,
		outputDir: conf.Render.OutputDir,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *CertificateService) validate(req *models.CertificateRequest) error {
	req.RecipientName = strings.TrimSpace(req.RecipientName)
	req.CourseName = strings.TrimSpace(req.CourseName)
	req.IssueDate = strings.TrimSpace(req.IssueDate)

	v := validate.Struct(req)
	if !v.Validate() {
		return invalidInput("%s", v.Errors.One())
	}

	if req.Device != nil {
		action, err := models.ParseActionType(req.Device.ActionType)
		if err != nil {
			return invalidInput("%v", err)
		}
		req.Device.ActionType = string(action)
	}
	return nil
}

// outputPath keeps the artifact inside the output directory whatever the
// requested name looks like. When the name is taken by an earlier artifact the
// random part of the certificate ID is appended.
func (s *CertificateService) outputPath(req *models.CertificateRequest, certificateID string) string {
	name := req.Output
	if name == "" {
		name = strings.ReplaceAll(req.RecipientName, " ", "_")
	}
	name = filepath.Base(filepath.Clean("/" + name))
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".pdf") {
		name += ".pdf"
		ext = ".pdf"
	}

	path := filepath.Join(s.outputDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	suffix := certificateID[strings.LastIndex(certificateID, "-")+1:]
	return filepath.Join(s.outputDir, strings.TrimSuffix(name, ext)+"_"+suffix+ext)
}

// Issue persists a new certificate and renders it. The returned token is the
// only copy. When rendering fails after the record was stored, the issued
// certificate is returned together with the error.
func (s *CertificateService) Issue(ctx context.Context, req *models.CertificateRequest) (*models.IssuedCertificate, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	issueDate := req.IssueDate
	if issueDate == "" {
		issueDate = now.Format(DefaultDateLayout)
	}
	issuer := strings.TrimSpace(req.Issuer)
	if issuer == "" {
		issuer = s.tpl.Issuer
	}

	token, err := s.ids.NewVerificationToken()
	if err != nil {
		return nil, err
	}

	rec := &models.CertificateRecord{
		RecipientName: req.RecipientName,
		CourseName:    req.CourseName,
		IssueDate:     issueDate,
		Issuer:        issuer,
		Title:         s.tpl.Title,
		Credentials:   models.Credentials{TokenHash: integrity.HashToken(token)},
		CreatedAt:     now.UTC(),
		DeviceInfo:    req.Device,
	}

	if err := s.persist(ctx, req, rec, now); err != nil {
		return nil, err
	}
	s.metrics.IncCertificatesIssued()
	s.logger.Infof(providers.TypeApp, "Issued certificate %s for %s", rec.CertificateID, rec.RecipientName)

	issued := &models.IssuedCertificate{Record: rec, Token: token}
	path, err := s.renderer.Render(ctx, rec)
	if err != nil {
		s.logger.Errorf(providers.TypeRender, "Certificate %s is stored but rendering failed: %v", rec.CertificateID, err)
		return issued, fmt.Errorf("render certificate %s: %w", rec.CertificateID, err)
	}
	issued.FilePath = path
	return issued, nil
}

func (s *CertificateService) persist(ctx context.Context, req *models.CertificateRequest, rec *models.CertificateRecord, now time.Time) error {
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.ids.NewCertificateID(now)
		if err != nil {
			return err
		}
		rec.CertificateID = id
		rec.FilePath = s.outputPath(req, id)
		rec.Credentials.Checksum = s.engine.ComputeChecksum(rec.Canonical())

		err = s.store.Append(ctx, models.NewCertificateEntry(rec))
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicateID) {
			return fmt.Errorf("store certificate: %w", err)
		}
		s.logger.Warnf(providers.TypeStore, "Certificate id %s already taken, regenerating (attempt %d)", id, attempt)
	}
	return fmt.Errorf("store certificate: %w after %d attempts", store.ErrDuplicateID, maxIDAttempts)
}

// IssueBatch issues every entry independently. A bad entry is reported and
// the rest of the batch continues.
func (s *CertificateService) IssueBatch(ctx context.Context, entries []json.RawMessage) *models.BatchReport {
	report := &models.BatchReport{RunID: uuid.NewString()}
	s.logger.Infof(providers.TypeBatch, "Batch %s: issuing %d certificates", report.RunID, len(entries))

	for i, raw := range entries {
		item := models.BatchItem{Index: i, Label: fmt.Sprintf("entry %d", i+1)}

		var req models.CertificateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			item.Err = invalidInput("entry %d: %v", i+1, err)
		} else {
			if req.RecipientName != "" {
				item.Label = req.RecipientName
			}
			issued, err := s.Issue(ctx, &req)
			if issued != nil {
				item.CertificateID = issued.Record.CertificateID
				item.Token = issued.Token
				item.FilePath = issued.FilePath
			}
			item.Err = err
		}

		if item.Succeeded() {
			s.metrics.IncBatchItems("certificate", "ok")
		} else {
			s.metrics.IncBatchItems("certificate", "failed")
			s.logger.Warnf(providers.TypeBatch, "Batch %s: %s failed: %v", report.RunID, item.Label, item.Err)
		}
		report.Add(item)
	}

	s.logger.Infof(providers.TypeBatch, "Batch %s: %d succeeded, %d failed", report.RunID, report.Succeeded(), report.Failed())
	return report
}

// ReadCreateInput reads a user_data file: {"user": {...}, "device": {...}}.
// A flat request object is accepted as well.
func ReadCreateInput(path string) (*models.CertificateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var wrapped struct {
		User   *models.CertificateRequest `json:"user"`
		Device *models.DeviceInfo         `json:"device"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, invalidInput("%s: %v", path, err)
	}
	if wrapped.User != nil {
		if wrapped.Device != nil {
			wrapped.User.Device = wrapped.Device
		}
		return wrapped.User, nil
	}

	var req models.CertificateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, invalidInput("%s: %v", path, err)
	}
	return &req, nil
}

// ReadInputEntries splits an input file holding one object or an array of
// objects into raw entries.
func ReadInputEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, invalidInput("%s is empty", path)
	}

	if data[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, invalidInput("%s: %v", path, err)
		}
		return entries, nil
	}
	if data[0] == '{' {
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, invalidInput("%s must hold a JSON object or array", path)
}
