package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrDocumentUnreadable reports a PDF that cannot be opened or whose pages cannot be read.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Fallback page size (US Letter) for pages without a resolvable MediaBox.
const (
	defaultWidth  = 612.0
	defaultHeight = 792.0
)

const maxParentDepth = 32

// Document is an opened PDF.
type Document struct {
	r *pdf.Reader
}

// Open parses data as a PDF document.
func Open(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDocumentUnreadable)
	}
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrDocumentUnreadable, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}
	return &Document{r: r}, nil
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// Page returns page num (1-based).
func (d *Document) Page(num int) (Page, error) {
	p := d.r.Page(num)
	if p.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d missing", ErrDocumentUnreadable, num)
	}
	glyphs, width, height, err := loadGlyphs(p)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrDocumentUnreadable, num, err)
	}
	return GlyphPage{Width: width, Height: height, Glyphs: glyphs}, nil
}

// Text assembles the text of every page in document order, one page per
// line group. Any page failure fails the whole document so callers never
// see a truncated page set.
func (d *Document) Text(layout Layout) (string, error) {
	n := d.NumPages()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p, err := d.Page(i)
		if err != nil {
			return "", err
		}
		text, err := ReadPage(p, layout)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrDocumentUnreadable, i, err)
		}
		pages = append(pages, text)
	}
	slog.Debug("assembled document text", "pages", n, "layout", layout.String())
	return strings.Join(pages, "\n"), nil
}

// ReadText opens data and returns its assembled text.
func ReadText(data []byte, layout Layout) (string, error) {
	doc, err := Open(data)
	if err != nil {
		return "", err
	}
	return doc.Text(layout)
}

func loadGlyphs(p pdf.Page) (glyphs []Glyph, width, height float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()

	llx, lly, urx, ury, ok := mediaBox(p.V)
	if !ok {
		llx, lly, urx, ury = 0, 0, defaultWidth, defaultHeight
	}
	width, height = urx-llx, ury-lly

	for _, t := range p.Content().Text {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, Glyph{
			X:        t.X - llx,
			Top:      ury - t.Y,
			Width:    t.W,
			FontSize: t.FontSize,
			S:        t.S,
		})
	}
	return glyphs, width, height, nil
}

// mediaBox resolves the page's MediaBox, following the inherited Parent chain.
func mediaBox(v pdf.Value) (llx, lly, urx, ury float64, ok bool) {
	for depth := 0; !v.IsNull() && depth < maxParentDepth; depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
			x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
			if x1 < x0 {
				x0, x1 = x1, x0
			}
			if y1 < y0 {
				y0, y1 = y1, y0
			}
			if x1 > x0 && y1 > y0 {
				return x0, y0, x1, y1, true
			}
		}
		v = v.Key("Parent")
	}
	return 0, 0, 0, 0, false
}
