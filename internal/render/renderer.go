package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/go-pdf/fpdf"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
)

const (
	inch        = 72.0
	qrPixels    = 300
	qrImageName = "verification-qr"
	bodyFont    = "Helvetica"
)

type RendererInterface interface {
	Render(ctx context.Context, rec *models.CertificateRecord) (string, error)
}

// PdfRenderer draws a certificate and embeds its verification metadata in the
// document Info dictionary.
type PdfRenderer struct {
	tpl    *Template
	logger providers.Logger
}

func NewPdfRenderer(tpl *Template, logger providers.Logger) *PdfRenderer {
	return &PdfRenderer{tpl: tpl, logger: logger}
}

func NewRendererProvider(conf *structures.Config, tpl *Template, logger providers.Logger) RendererInterface {
	if !conf.Render.Enabled {
		logger.Debugf(providers.TypeRender, "Rendering disabled")
		return &noopRenderer{}
	}
	return NewPdfRenderer(tpl, logger)
}

// QRPayload is the human-scannable summary printed in the corner of the page.
func QRPayload(rec *models.CertificateRecord) string {
	return fmt.Sprintf("Certificate:%s;Name:%s;Date:%s;Checksum:%s",
		rec.CertificateID, rec.RecipientName, rec.IssueDate, rec.Credentials.Checksum)
}

func (r *PdfRenderer) newDocument() *fpdf.Fpdf {
	switch r.tpl.PageSize {
	case PagePortrait:
		return fpdf.New("P", "pt", "Letter", "")
	case PageA4:
		return fpdf.New("P", "pt", "A4", "")
	}
	return fpdf.New("L", "pt", "A4", "")
}

// Render writes rec to rec.FilePath and returns that path.
func (r *PdfRenderer) Render(ctx context.Context, rec *models.CertificateRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if rec.FilePath == "" {
		return "", fmt.Errorf("certificate %s has no output path", rec.CertificateID)
	}

	creator, err := EncodeCreator(rec.Metadata())
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	doc := r.newDocument()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle("Certificate: "+rec.CertificateID, true)
	doc.SetAuthor(rec.Issuer, true)
	doc.SetSubject(r.title(rec), true)
	doc.SetCreator(creator, false)
	if !rec.CreatedAt.IsZero() {
		doc.SetCreationDate(rec.CreatedAt)
	}
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	w, h := doc.GetPageSize()
	tpl := r.tpl

	setFill(doc, tpl.BackgroundColor)
	doc.Rect(0, 0, w, h, "F")

	if tpl.Border {
		setDraw(doc, tpl.AccentColor)
		doc.SetLineWidth(tpl.BorderWidth)
		doc.Rect(0.3*inch, 0.3*inch, w-0.6*inch, h-0.6*inch, "D")
	}

	maxWidth := w - 1.2*inch

	setText(doc, tpl.TextColor)
	fitFont(doc, "B", 48, tr(r.title(rec)), maxWidth)
	centered(doc, w, 1.2*inch, tr(r.title(rec)))

	doc.SetFont(bodyFont, "", 24)
	centered(doc, w, 1.9*inch, tr(tpl.Subtitle))

	setText(doc, tpl.AccentColor)
	fitFont(doc, "B", 36, tr(rec.RecipientName), maxWidth)
	centered(doc, w, 2.7*inch, tr(rec.RecipientName))

	setText(doc, tpl.TextColor)
	if rec.CourseName != "" {
		line := tr("has successfully completed " + rec.CourseName)
		fitFont(doc, "", 18, line, maxWidth)
		centered(doc, w, 3.15*inch, line)
	}

	if rec.DeviceInfo != nil {
		r.drawDevice(doc, tr, rec.DeviceInfo, w)
	}

	doc.SetFont(bodyFont, "B", 14)
	doc.Text(0.8*inch, h-2.5*inch, tr("Issued by: "+rec.Issuer))
	doc.SetFont(bodyFont, "", 12)
	doc.Text(0.8*inch, h-1.1*inch, "Certificate Number: "+rec.CertificateID)
	doc.Text(0.8*inch, h-0.85*inch, tr("Issue Date: "+rec.IssueDate))

	if tpl.QR {
		if err := r.drawQR(doc, rec, w, h); err != nil {
			return "", err
		}
	}

	if err := doc.Error(); err != nil {
		return "", fmt.Errorf("render %s: %w", rec.CertificateID, err)
	}
	if err := os.MkdirAll(filepath.Dir(rec.FilePath), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	// never replace an artifact of another certificate
	out, err := os.OpenFile(rec.FilePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", rec.FilePath, err)
	}
	if err := doc.Output(out); err != nil {
		out.Close()
		os.Remove(rec.FilePath)
		return "", fmt.Errorf("write %s: %w", rec.FilePath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", rec.FilePath, err)
	}

	r.logger.Debugf(providers.TypeRender, "Rendered %s to %s", rec.CertificateID, rec.FilePath)
	return rec.FilePath, nil
}

func (r *PdfRenderer) title(rec *models.CertificateRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	return r.tpl.Title
}

func (r *PdfRenderer) drawDevice(doc *fpdf.Fpdf, tr func(string) string, d *models.DeviceInfo, w float64) {
	osName := d.OSName()
	if osName == "" {
		osName = "the specified operating system"
	}
	deviceID := d.DeviceID
	if deviceID == "" {
		deviceID = "the specified device"
	}
	size := string(d.SizeRemoved)
	if size == "" {
		size = "the specified amount of space"
	}
	when := "during the sanitization process"
	if d.Timestamp != "" {
		when = "on " + d.Timestamp
	}
	action, _ := models.ParseActionType(d.ActionType)

	doc.SetFont(bodyFont, "B", 20)
	centered(doc, w, 3.6*inch, "Device Sanitization Details")

	doc.SetFont(bodyFont, "", 14)
	left := 1.8 * inch
	width := w - 2*left
	doc.SetXY(left, 4.0*inch)
	doc.MultiCell(width, 20, tr(fmt.Sprintf("This certificate confirms that %s, device %s running %s underwent %s.",
		when, deviceID, osName, action.Phrase())), "", "L", false)
	doc.Ln(20)
	doc.SetX(left)
	doc.MultiCell(width, 20, tr(fmt.Sprintf("During this process, approximately %s of storage space was recovered from the device.",
		size)), "", "L", false)
}

func (r *PdfRenderer) drawQR(doc *fpdf.Fpdf, rec *models.CertificateRecord, w, h float64) error {
	code, err := qr.Encode(QRPayload(rec), qr.M, qr.Auto)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	code, err = barcode.Scale(code, qrPixels, qrPixels)
	if err != nil {
		return fmt.Errorf("scale qr: %w", err)
	}

	// fpdf only embeds 8-bit PNGs and the qr image is 16-bit gray
	gray := image.NewGray(code.Bounds())
	draw.Draw(gray, gray.Bounds(), code, code.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return fmt.Errorf("encode qr image: %w", err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(qrImageName, opts, &buf)

	size := r.tpl.QRSize * inch
	x, y := qrOrigin(r.tpl.QRPosition, w, h, size, r.tpl.QRMargin*inch)
	doc.ImageOptions(qrImageName, x, y, size, size, false, opts, 0, "")
	return nil
}

// qrOrigin returns the top-left corner of the QR image for a position such as
// "top-center". Unknown parts fall back to bottom and right.
func qrOrigin(position string, w, h, size, margin float64) (float64, float64) {
	vertical, horizontal, _ := strings.Cut(position, "-")

	y := h - margin - size
	if vertical == "top" {
		y = margin
	}
	x := w - margin - size
	switch horizontal {
	case "left":
		x = margin
	case "center":
		x = (w - size) / 2
	}
	return x, y
}

func centered(doc *fpdf.Fpdf, pageWidth, y float64, s string) {
	doc.Text((pageWidth-doc.GetStringWidth(s))/2, y, s)
}

// fitFont selects the largest size up to size at which s fits in maxWidth.
func fitFont(doc *fpdf.Fpdf, style string, size float64, s string, maxWidth float64) {
	doc.SetFont(bodyFont, style, size)
	for size > 10 && doc.GetStringWidth(s) > maxWidth {
		size -= 2
		doc.SetFont(bodyFont, style, size)
	}
}

func setFill(doc *fpdf.Fpdf, c []int) { doc.SetFillColor(c[0], c[1], c[2]) }
func setDraw(doc *fpdf.Fpdf, c []int) { doc.SetDrawColor(c[0], c[1], c[2]) }
func setText(doc *fpdf.Fpdf, c []int) { doc.SetTextColor(c[0], c[1], c[2]) }

type noopRenderer struct{}

func (n *noopRenderer) Render(_ context.Context, rec *models.CertificateRecord) (string, error) {
	return "", nil
}
