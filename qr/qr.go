// Package qr renders links as scalable QR code images.
package qr

import (
	"bytes"
	"errors"
	"fmt"

	"rsc.io/qr"
)

const (
	DefaultModuleSize = 5
	DefaultBorder     = 0
)

var ErrEmptyText = errors.New("nothing to encode")

// Encoder produces SVG QR codes.
type Encoder struct {
	// ModuleSize is the side of one module in SVG user units
	ModuleSize int
	// Border is the quiet zone in modules
	Border int
	Level  qr.Level
}

func NewEncoder() *Encoder {
	return &Encoder{
		ModuleSize: DefaultModuleSize,
		Border:     DefaultBorder,
		Level:      qr.M,
	}
}

// Encode renders text as an SVG document. The output only depends on the
// input and the encoder settings.
func (e *Encoder) Encode(text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	code, err := qr.Encode(text, e.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	module := e.ModuleSize
	if module <= 0 {
		module = DefaultModuleSize
	}
	border := max(e.Border, 0)
	side := (code.Size + 2*border) * module

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		side, side, code.Size+2*border, code.Size+2*border)
	buf.WriteString(`<rect width="100%" height="100%" fill="#fff"/>`)
	buf.WriteString(`<path fill="#000" d="`)
	for y := 0; y < code.Size; y++ {
		for x := 0; x < code.Size; x++ {
			if code.Black(x, y) {
				fmt.Fprintf(&buf, "M%d %dh1v1h-1z", x+border, y+border)
			}
		}
	}
	buf.WriteString(`"/></svg>`)
	buf.WriteString("\n")

	return buf.Bytes(), nil
}
