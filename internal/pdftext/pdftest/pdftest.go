// Package pdftest builds small uncompressed PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Page size of generated documents (US Letter).
const (
	Width  = 612
	Height = 792
)

// CharWidth is the advance of every character at FontSize, in points.
const (
	FontSize  = 12
	CharWidth = FontSize * 500 / 1000
)

// Text is a run of text placed with its baseline at (X, Y) in PDF user space
// (origin at the bottom-left corner).
type Text struct {
	X, Y float64
	S    string
}

// Helvetica advances, in thousandths of the font size, used by BuildProportional.
const (
	SpaceWidth  = 278
	LetterWidth = 556
)

// Build returns a PDF with one page per element of pages, using a single
// Helvetica font whose glyphs are all CharWidth wide.
func Build(pages ...[]Text) []byte {
	return build(func(byte) int { return 500 }, pages)
}

// BuildProportional is Build with Helvetica-like widths: the space advances
// SpaceWidth and every other glyph LetterWidth. The space is then narrower
// than the gap a reader would take for a word break on its own.
func BuildProportional(pages ...[]Text) []byte {
	return build(func(c byte) int {
		if c == ' ' {
			return SpaceWidth
		}
		return LetterWidth
	}, pages)
}

func build(width func(byte) int, pages [][]Text) []byte {
	var objs []string
	// 1: catalog, 2: page tree, 3: font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %d %d] >>",
			strings.Join(kids, " "), len(pages), Width, Height),
		fontObject(width),
	)
	for i, texts := range pages {
		content := contentStream(texts)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func fontObject(width func(byte) int) string {
	widths := make([]string, 255-32+1)
	for i := range widths {
		widths[i] = strconv.Itoa(width(byte(32 + i)))
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 255 /Widths [" + strings.Join(widths, " ") + "] >>"
}

func contentStream(texts []Text) string {
	var sb strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&sb, "BT /F1 %d Tf %.2f %.2f Td (%s) Tj ET\n", FontSize, t.X, t.Y, escape(t.S))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// escape quotes string delimiters and encodes s as single bytes, which
// matches WinAnsiEncoding for the Latin-1 range.
func escape(s string) string {
	var b []byte
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b = append(b, '\\', byte(r))
		case r < 256:
			b = append(b, byte(r))
		default:
			b = append(b, '?')
		}
	}
	return string(b)
}

// Lines lays out lines top-down in one column starting at (x, y), one line every 14pt.
func Lines(x, y float64, lines ...string) []Text {
	out := make([]Text, len(lines))
	for i, l := range lines {
		out[i] = Text{X: x, Y: y - float64(14*i), S: l}
	}
	return out
}
