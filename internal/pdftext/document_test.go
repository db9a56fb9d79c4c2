package pdftext

import (
	"errors"
	"strings"
	"testing"

	"github.com/matheusmoura0/vestibular-tutor/internal/pdftext/pdftest"
)

func twoColumnPage() []pdftest.Text {
	var texts []pdftest.Text
	texts = append(texts, pdftest.Text{X: 72, Y: 760, S: "HEADER"})
	texts = append(texts, pdftest.Lines(72, 650, "L1", "L2")...)
	texts = append(texts, pdftest.Lines(330, 650, "R1", "R2")...)
	texts = append(texts, pdftest.Text{X: 72, Y: 30, S: "FOOTER"})
	return texts
}

func TestDocumentTwoColumn(t *testing.T) {
	data := pdftest.Build(twoColumnPage())

	doc, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.NumPages())
	}

	p, err := doc.Page(1)
	if err != nil {
		t.Fatalf("Page(1): %v", err)
	}
	w, h := p.Size()
	if w != pdftest.Width || h != pdftest.Height {
		t.Errorf("page size = %vx%v, want inherited MediaBox %dx%d", w, h, pdftest.Width, pdftest.Height)
	}

	text, err := doc.Text(TwoColumn)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if want := "L1\nL2\nR1\nR2"; text != want {
		t.Errorf("Text(TwoColumn) = %q, want %q", text, want)
	}

	full, err := doc.Text(FullPage)
	if err != nil {
		t.Fatalf("Text(FullPage): %v", err)
	}
	if want := "HEADER\nL1 R1\nL2 R2\nFOOTER"; full != want {
		t.Errorf("Text(FullPage) = %q, want %q", full, want)
	}
}

func TestReadTextMultiplePages(t *testing.T) {
	data := pdftest.Build(
		pdftest.Lines(72, 650, "one"),
		pdftest.Lines(72, 650, "two"),
	)
	text, err := ReadText(data, SingleColumn)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if want := "one\n\ntwo\n"; text != want {
		t.Errorf("ReadText = %q, want %q", text, want)
	}
}

func TestReadTextWordSpacing(t *testing.T) {
	data := pdftest.Build(pdftest.Lines(72, 650, "Texto A"))
	text, err := ReadText(data, FullPage)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != "Texto A" {
		t.Errorf("ReadText = %q, want %q", text, "Texto A")
	}
}

func TestReadTextProportionalSpaces(t *testing.T) {
	data := pdftest.BuildProportional(pdftest.Lines(72, 650,
		"QUESTÃO 01",
		"Qual é a capital?",
		"dois  espaços",
	))
	text, err := ReadText(data, SingleColumn)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if want := "QUESTÃO 01\nQual é a capital?\ndois espaços\n"; text != want {
		t.Errorf("ReadText = %q, want %q", text, want)
	}
}

func TestOpenUnreadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("This is not a PDF")},
		{"truncated", pdftest.Build(twoColumnPage())[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadText(tt.data, TwoColumn)
			if !errors.Is(err, ErrDocumentUnreadable) {
				t.Errorf("expected ErrDocumentUnreadable, got %v", err)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	data := pdftest.Build(twoColumnPage(), nil)
	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.PageCount != 2 || len(info.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %+v", info)
	}
	if info.Pages[0].Glyphs == 0 {
		t.Error("first page should have glyphs")
	}
	if info.Pages[1].Glyphs != 0 {
		t.Errorf("blank page should have no glyphs, got %d", info.Pages[1].Glyphs)
	}
	if !info.HasText() {
		t.Error("HasText should be true")
	}
	if chars := info.Pages[0].Chars; chars != len(strings.Join([]string{"HEADER", "L1", "L2", "R1", "R2", "FOOTER"}, "")) {
		t.Errorf("unexpected char count %d", chars)
	}
}

func TestInspectIgnoresSpaceGlyphs(t *testing.T) {
	info, err := Inspect(pdftest.BuildProportional(pdftest.Lines(72, 650, "a b", "   ")))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if got := info.Pages[0]; got.Glyphs != 2 || got.Chars != 2 {
		t.Errorf("page 1 = %+v, want 2 glyphs and 2 chars", got)
	}
}

func TestInspectUnreadable(t *testing.T) {
	if _, err := Inspect([]byte("nope")); !errors.Is(err, ErrDocumentUnreadable) {
		t.Errorf("expected ErrDocumentUnreadable, got %v", err)
	}
}
