// Package pdftext turns PDF pages into reading-order text.
//
// Exam booklets are usually typeset in two columns with running headers and
// footers. Reading the whole page in one pass interleaves lines of the two
// columns, so pages are cropped to a vertical band and each half is read on
// its own.
package pdftext

import (
	"fmt"
	"sort"
	"strings"
)

// Vertical crop band, as fractions of the page height measured from the top.
const (
	CropTop    = 0.10
	CropBottom = 0.90
)

const (
	rowTolerance    = 3.0 // points of baseline jitter still treated as one line
	wordSpaceFactor = 0.3 // gap wider than this fraction of the font size is a space
	maxWordSpace    = 3.0 // gap wider than this many points is a space at any font size
	minWordSpace    = 1.0
)

// Rect is a page region in points, measured from the top-left corner.
type Rect struct {
	X0, Top, X1, Bottom float64
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Page is a single page that can extract text from an arbitrary sub-region.
type Page interface {
	Size() (width, height float64)
	Text(r Rect) (string, error)
}

// Layout selects how a page is divided before text extraction.
type Layout int

const (
	// TwoColumn crops headers and footers and reads the left half before the right half.
	TwoColumn Layout = iota
	// SingleColumn crops headers and footers without a horizontal split.
	SingleColumn
	// FullPage reads the whole page in one region, without cropping.
	FullPage
)

func (l Layout) String() string {
	switch l {
	case TwoColumn:
		return "two-column"
	case SingleColumn:
		return "single-column"
	case FullPage:
		return "full-page"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses a layout name as accepted on the command line.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "two-column", "two", "columns", "":
		return TwoColumn, nil
	case "single-column", "single":
		return SingleColumn, nil
	case "full-page", "full":
		return FullPage, nil
	}
	return TwoColumn, fmt.Errorf("unknown layout %q (expected two-column, single-column or full-page)", s)
}

// ReadPage returns the text of p in reading order for the given layout.
//
// For the cropped layouts the result is always left text, a newline, then
// right text; a region without text contributes an empty string. In
// SingleColumn mode the right region has zero width.
func ReadPage(p Page, layout Layout) (string, error) {
	w, h := p.Size()
	if layout == FullPage {
		return p.Text(Rect{X0: 0, Top: 0, X1: w, Bottom: h})
	}

	top, bottom := h*CropTop, h*CropBottom
	split := w / 2
	if layout == SingleColumn {
		split = w
	}

	left, err := p.Text(Rect{X0: 0, Top: top, X1: split, Bottom: bottom})
	if err != nil {
		return "", fmt.Errorf("left region: %w", err)
	}
	var right string
	if split < w {
		right, err = p.Text(Rect{X0: split, Top: top, X1: w, Bottom: bottom})
		if err != nil {
			return "", fmt.Errorf("right region: %w", err)
		}
	}
	return left + "\n" + right, nil
}

// Glyph is one positioned run of text. X and Top locate its left edge and
// baseline relative to the top-left corner of the page.
type Glyph struct {
	X, Top   float64
	Width    float64
	FontSize float64
	S        string
}

// GlyphPage is a Page backed by positioned glyphs.
type GlyphPage struct {
	Width, Height float64
	Glyphs        []Glyph
}

// Size implements Page.
func (p GlyphPage) Size() (float64, float64) { return p.Width, p.Height }

// Text implements Page. A glyph belongs to the region containing its
// horizontal midpoint and its baseline.
func (p GlyphPage) Text(r Rect) (string, error) {
	var in []Glyph
	for _, g := range p.Glyphs {
		mid := g.X + g.Width/2
		if mid < r.X0 || mid >= r.X1 {
			continue
		}
		if g.Top < r.Top || g.Top > r.Bottom {
			continue
		}
		in = append(in, g)
	}
	return layoutText(in), nil
}

// layoutText groups glyphs into lines top to bottom and orders each line left to right.
func layoutText(glyphs []Glyph) string {
	if len(glyphs) == 0 {
		return ""
	}
	sorted := make([]Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	var rows [][]Glyph
	rowTop := sorted[0].Top
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Top-rowTop > rowTolerance {
			rows = append(rows, sorted[start:i])
			if i < len(sorted) {
				start = i
				rowTop = sorted[i].Top
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		var sb strings.Builder
		space := func() {
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
		}
		for i, g := range row {
			// A drawn space glyph is a word break on its own.
			if strings.TrimSpace(g.S) == "" {
				space()
				continue
			}
			if i > 0 {
				prev := row[i-1]
				if g.X-(prev.X+prev.Width) > wordSpace(prev) {
					space()
				}
			}
			sb.WriteString(g.S)
		}
		if line := strings.TrimRight(sb.String(), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func wordSpace(g Glyph) float64 {
	s := min(g.FontSize*wordSpaceFactor, maxWordSpace)
	return max(s, minWordSpace)
}
