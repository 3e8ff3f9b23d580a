package render

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"certgen/internal/providers"
	"certgen/internal/structures"
)

const (
	PageLandscape = "landscape"
	PagePortrait  = "portrait"
	PageA4        = "a4"
)

var qrPositions = []string{"top-left", "top-center", "top-right", "bottom-left", "bottom-center", "bottom-right"}

// Template controls the look of a rendered certificate. Sizes are in inches,
// colors are RGB triplets.
type Template struct {
	PageSize        string  `json:"page_size" yaml:"page_size"`
	Title           string  `json:"title" yaml:"title"`
	Subtitle        string  `json:"subtitle" yaml:"subtitle"`
	Issuer          string  `json:"issuer" yaml:"issuer"`
	BackgroundColor []int   `json:"background_color" yaml:"background_color"`
	TextColor       []int   `json:"text_color" yaml:"text_color"`
	AccentColor     []int   `json:"accent_color" yaml:"accent_color"`
	Border          bool    `json:"border" yaml:"border"`
	BorderWidth     float64 `json:"border_width" yaml:"border_width"`
	QR              bool    `json:"qr" yaml:"qr"`
	QRSize          float64 `json:"qr_size" yaml:"qr_size"`
	QRMargin        float64 `json:"qr_margin" yaml:"qr_margin"`
	QRPosition      string  `json:"qr_position" yaml:"qr_position"`
}

func DefaultTemplate() *Template {
	return &Template{
		PageSize:        PageLandscape,
		Title:           "Data Sanitization Certificate",
		Subtitle:        "This is to certify that",
		Issuer:          "Device Sanitization Authority",
		BackgroundColor: []int{255, 255, 255},
		TextColor:       []int{0, 0, 0},
		AccentColor:     []int{70, 130, 180},
		Border:          true,
		BorderWidth:     3,
		QR:              true,
		QRSize:          1.5,
		QRMargin:        0.5,
		QRPosition:      "bottom-right",
	}
}

// LoadTemplate overlays a JSON or YAML file onto the defaults. Keys missing
// from the file keep their default values.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	tpl := DefaultTemplate()
	// JSON documents are valid YAML
	if err := yaml.Unmarshal(data, tpl); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return tpl, nil
}

func (t *Template) Validate() error {
	t.PageSize = strings.ToLower(strings.TrimSpace(t.PageSize))
	switch t.PageSize {
	case PageLandscape, PagePortrait, PageA4:
	default:
		return fmt.Errorf("unknown page_size %q", t.PageSize)
	}
	for name, c := range map[string][]int{
		"background_color": t.BackgroundColor,
		"text_color":       t.TextColor,
		"accent_color":     t.AccentColor,
	} {
		if len(c) != 3 {
			return fmt.Errorf("%s must have 3 components, got %d", name, len(c))
		}
		for _, v := range c {
			if v < 0 || v > 255 {
				return fmt.Errorf("%s component %d out of range", name, v)
			}
		}
	}
	if t.QR && t.QRSize <= 0 {
		return fmt.Errorf("qr_size must be positive")
	}
	t.QRPosition = strings.ToLower(strings.TrimSpace(t.QRPosition))
	if !slices.Contains(qrPositions, t.QRPosition) {
		return fmt.Errorf("unknown qr_position %q, want one of %s", t.QRPosition, strings.Join(qrPositions, ", "))
	}
	return nil
}

// NewTemplateProvider loads render.templatePath, or the defaults when unset.
func NewTemplateProvider(conf *structures.Config, logger providers.Logger) (*Template, error) {
	if conf.Render.TemplatePath == "" {
		return DefaultTemplate(), nil
	}
	tpl, err := LoadTemplate(conf.Render.TemplatePath)
	if err != nil {
		return nil, err
	}
	logger.Debugf(providers.TypeRender, "Loaded template %s", conf.Render.TemplatePath)
	return tpl, nil
}
