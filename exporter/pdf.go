package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrEmptyMarkup is returned when there is nothing to print
var ErrEmptyMarkup = errors.New("empty markup")

const pageMargin = "10mm"

// PDFMaterializer prints markup to PDF with headless Chromium
type PDFMaterializer struct {
	// SkipInstall disables the browser download check before each run
	SkipInstall bool
	logger      *slog.Logger
}

func NewPDFMaterializer(logger *slog.Logger) *PDFMaterializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFMaterializer{logger: logger}
}

// Materialize returns the PDF bytes of markup with stylesheet applied on top of
// its own styles. The browser context is offline and runs no scripts, so the
// result only depends on the inputs.
func (m *PDFMaterializer) Materialize(ctx context.Context, markup, stylesheet string) ([]byte, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}

	runOpts := &playwright.RunOptions{Browsers: []string{"chromium"}}
	if !m.SkipInstall {
		m.logger.Debug("ensuring playwright browser is installed")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("could not install playwright with %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("could not start playwright with %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser with %w", err)
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Offline:           playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context with %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page with %w", err)
	}
	defer page.Close()

	setOpts := playwright.PageSetContentOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if deadline, ok := ctx.Deadline(); ok {
		setOpts.Timeout = playwright.Float(float64(max(time.Until(deadline), time.Millisecond).Milliseconds()))
	}
	if err := page.SetContent(injectStylesheet(markup, stylesheet), setOpts); err != nil {
		return nil, fmt.Errorf("could not load markup with %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf, err := page.PDF(playwright.PagePdfOptions{
		Format:            playwright.String("A4"),
		PrintBackground:   playwright.Bool(true),
		PreferCSSPageSize: playwright.Bool(true),
		Margin: &playwright.Margin{
			Top:    playwright.String(pageMargin),
			Right:  playwright.String(pageMargin),
			Bottom: playwright.String(pageMargin),
			Left:   playwright.String(pageMargin),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not generate PDF with %w", err)
	}

	m.logger.Info("PDF generated", "bytes", len(pdf))
	return pdf, nil
}

// injectStylesheet places stylesheet last in the document head so it wins
// over the embedded screen styles.
func injectStylesheet(markup, stylesheet string) string {
	if stylesheet == "" {
		return markup
	}
	tag := "<style>" + stylesheet + "</style>"
	if i := strings.LastIndex(markup, "</head>"); i >= 0 {
		return markup[:i] + tag + "\n" + markup[i:]
	}
	return tag + markup
}
