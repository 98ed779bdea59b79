package exporter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/scipunch/pressbrief/config"
)

func TestInjectStylesheet(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		css    string
		want   string
	}{
		{
			name:   "before head end",
			markup: "<html><head><title>x</title></head><body></body></html>",
			css:    "p{}",
			want:   "<html><head><title>x</title><style>p{}</style>\n</head><body></body></html>",
		},
		{
			name:   "no head",
			markup: "<p>x</p>",
			css:    "p{}",
			want:   "<style>p{}</style><p>x</p>",
		},
		{
			name:   "empty stylesheet",
			markup: "<p>x</p>",
			want:   "<p>x</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := injectStylesheet(tt.markup, tt.css); got != tt.want {
				t.Errorf("injectStylesheet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaterialize_EmptyMarkup(t *testing.T) {
	m := NewPDFMaterializer(discard)

	if _, err := m.Materialize(context.Background(), "  \n", PrintStylesheet); !errors.Is(err, ErrEmptyMarkup) {
		t.Errorf("expected ErrEmptyMarkup, got %v", err)
	}
}

func TestPrintStylesheet(t *testing.T) {
	if !strings.Contains(PrintStylesheet, "size: A4") || !strings.Contains(PrintStylesheet, "margin: 10mm") {
		t.Errorf("unexpected print stylesheet %q", PrintStylesheet)
	}
}

func TestMaterialize_Browser(t *testing.T) {
	if os.Getenv("PRESSBRIEF_BROWSER_TESTS") == "" {
		t.Skip("set PRESSBRIEF_BROWSER_TESTS to run headless browser tests")
	}

	markup, err := NewHTMLRenderer(config.LinkText, nil, nil, discard).Render(techDocument())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pdf, err := NewPDFMaterializer(discard).Materialize(ctx, markup, PrintStylesheet)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %.16q", pdf)
	}
}
