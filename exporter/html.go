package exporter

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/scipunch/pressbrief/config"
	"github.com/scipunch/pressbrief/metrics"
	"github.com/scipunch/pressbrief/news"
)

//go:embed templates
var templates embed.FS

var (
	briefTemplate = template.Must(template.ParseFS(templates, "templates/brief.html"))

	// Stylesheet is the screen layout embedded into every rendered document
	Stylesheet = mustRead("templates/brief.css")
	// PrintStylesheet fixes the page size and margins of the PDF
	PrintStylesheet = mustRead("templates/print.css")
)

const (
	linkArrow    = " ⟶ "
	svgURIPrefix = "data:image/svg+xml;charset=utf-8;base64,"
)

// Document is the rendering-time view of a brief
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// Section is one newspaper of the brief
type Section struct {
	Name      string
	FeedCount int
	Records   []news.Record
}

// ImageEncoder turns a link into an image, e.g. a QR code
type ImageEncoder interface {
	Encode(text string) ([]byte, error)
}

// HTMLRenderer turns a Document into markup
type HTMLRenderer struct {
	mode    config.LinkMode
	encoder ImageEncoder
	metrics *metrics.Run
	logger  *slog.Logger
}

// NewHTMLRenderer creates a renderer. encoder is only used in qr-code link
// mode and may be nil otherwise.
func NewHTMLRenderer(mode config.LinkMode, encoder ImageEncoder, m *metrics.Run, logger *slog.Logger) *HTMLRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLRenderer{
		mode:    mode,
		encoder: encoder,
		metrics: m,
		logger:  logger,
	}
}

type pageView struct {
	Title    string
	Subtitle string
	Style    template.CSS
	Sections []sectionView
}

type sectionView struct {
	Name      string
	FeedCount int
	Boxes     []boxView
}

type boxView struct {
	Title  string
	Text   string
	QRCode template.URL
	Author string
	Date   string
}

// Render produces the markup of doc. The output only depends on doc and the
// bytes returned by the image encoder.
func (r *HTMLRenderer) Render(doc Document) (string, error) {
	r.logger.Info("generating HTML", "sections", len(doc.Sections), "link_mode", r.mode)

	view := pageView{
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Style:    template.CSS(Stylesheet),
		Sections: make([]sectionView, 0, len(doc.Sections)),
	}
	for _, section := range doc.Sections {
		sv := sectionView{
			Name:      section.Name,
			FeedCount: section.FeedCount,
			Boxes:     make([]boxView, 0, len(section.Records)),
		}
		for _, rec := range section.Records {
			sv.Boxes = append(sv.Boxes, r.box(rec))
		}
		view.Sections = append(view.Sections, sv)
	}

	var b strings.Builder
	if err := briefTemplate.Execute(&b, view); err != nil {
		return "", fmt.Errorf("failed to render brief: %w", err)
	}

	r.logger.Info("HTML generated", "bytes", b.Len())
	return b.String(), nil
}

func (r *HTMLRenderer) box(rec news.Record) boxView {
	box := boxView{
		Title:  rec.Title,
		Author: rec.Author,
		Date:   rec.PublishedAt,
	}

	if r.mode == config.LinkQRCode && r.encoder != nil {
		img, err := r.encoder.Encode(rec.URL)
		if err == nil {
			box.Text = rec.Summary
			box.QRCode = template.URL(svgURIPrefix + base64.StdEncoding.EncodeToString(img))
			return box
		}
		r.metrics.QRFallback()
		r.logger.Warn("failed to encode qr code, falling back to text link", "url", rec.URL, "error", err)
	}

	box.Text = rec.Summary + linkArrow + rec.URL
	return box
}

func mustRead(name string) string {
	data, err := templates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
