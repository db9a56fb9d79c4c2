package pdftext

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var disableConfigOnce sync.Once

// PageInfo summarises the extractable text on one page.
type PageInfo struct {
	Number int `json:"number"`
	Glyphs int `json:"glyphs"`
	Chars  int `json:"chars"`
}

// Info describes a PDF as seen by the structural validator and the text extractor.
type Info struct {
	PageCount int        `json:"page_count"`
	Pages     []PageInfo `json:"pages"`
}

// HasText reports whether any page carries extractable text.
func (i Info) HasText() bool {
	for _, p := range i.Pages {
		if p.Glyphs > 0 {
			return true
		}
	}
	return false
}

// Inspect counts pages with pdfcpu and glyphs per page with the text
// extractor, leaving out whitespace. A document with pages but no glyphs is
// most likely scanned.
func Inspect(data []byte) (Info, error) {
	disableConfigOnce.Do(api.DisableConfigDir)

	var info Info
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return info, fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
	}
	info.PageCount = count

	doc, err := Open(data)
	if err != nil {
		return info, err
	}
	for i := 1; i <= doc.NumPages(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			return info, err
		}
		pi := PageInfo{Number: i}
		if gp, ok := p.(GlyphPage); ok {
			for _, g := range gp.Glyphs {
				if strings.TrimSpace(g.S) == "" {
					continue
				}
				pi.Glyphs++
				pi.Chars += len([]rune(g.S))
			}
		}
		info.Pages = append(info.Pages, pi)
	}
	return info, nil
}
