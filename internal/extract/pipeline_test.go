package extract

import (
	"errors"
	"reflect"
	"testing"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
	"github.com/matheusmoura0/vestibular-tutor/internal/pdftext"
	"github.com/matheusmoura0/vestibular-tutor/internal/pdftext/pdftest"
)

func examPDF() []byte {
	var page []pdftest.Text
	page = append(page, pdftest.Text{X: 72, Y: 770, S: "UVSP2404 - Vestibular"})
	page = append(page, pdftest.Lines(72, 650, "intro", "QUESTÃO 01", "Texto A")...)
	page = append(page, pdftest.Lines(330, 650, "QUESTÃO 02", "Texto B", "Rascunho")...)
	return pdftest.Build(page)
}

func TestPipelineQuestionsFromPDF(t *testing.T) {
	p := New(DefaultOptions())
	got, err := p.Questions(examPDF())
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	want := model.QuestionMap{1: "Texto A", 2: "Texto B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Questions = %#v, want %#v", got, want)
	}
}

func TestPipelineQuestionsProportionalFont(t *testing.T) {
	data := pdftest.BuildProportional(pdftest.Lines(72, 650,
		"QUESTÃO 01",
		"Qual é a capital?",
		"QUESTÃO 02",
		"Outra pergunta",
	))
	got, err := New(DefaultOptions()).Questions(data)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	want := model.QuestionMap{1: "Qual é a capital?", 2: "Outra pergunta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Questions = %#v, want %#v", got, want)
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	p := New(DefaultOptions())
	exam, err := p.Exam("prova.pdf", examPDF(), nil, "1-A 2-C")
	if err != nil {
		t.Fatalf("Exam: %v", err)
	}
	if want := (model.QuestionMap{1: "Texto A", 2: "Texto B"}); !reflect.DeepEqual(exam.Questions, want) {
		t.Errorf("questions = %#v, want %#v", exam.Questions, want)
	}
	if want := (model.AnswerMap{1: "A", 2: "C"}); !reflect.DeepEqual(exam.Answers, want) {
		t.Errorf("answers = %#v, want %#v", exam.Answers, want)
	}
	if exam.AnswerSource != model.AnswerSourceText {
		t.Errorf("source = %q, want text", exam.AnswerSource)
	}
}

func TestPipelineQuestionsFromText(t *testing.T) {
	p := New(DefaultOptions())
	got, err := p.QuestionsFromText("...intro... QUESTÃO 01 Texto A QUESTÃO 02 Texto B")
	if err != nil {
		t.Fatalf("QuestionsFromText: %v", err)
	}
	if want := (model.QuestionMap{1: "Texto A", 2: "Texto B"}); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestPipelineNoQuestions(t *testing.T) {
	p := New(DefaultOptions())

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"boilerplate only", "Rascunho\nUVSP2404\nConfidencial até o momento da aplicação"},
		{"unsupported numbering", "1) primeira 2) segunda"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.QuestionsFromText(tt.text)
			if !errors.Is(err, ErrNoQuestionsRecognized) {
				t.Errorf("expected ErrNoQuestionsRecognized, got %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil map, got %#v", got)
			}
		})
	}

	// A readable PDF without any text behaves like a scanned booklet.
	blank := pdftest.Build(nil)
	if _, err := p.Questions(blank); !errors.Is(err, ErrNoQuestionsRecognized) {
		t.Errorf("blank PDF: expected ErrNoQuestionsRecognized, got %v", err)
	}
}

func TestPipelineUnreadableExam(t *testing.T) {
	p := New(DefaultOptions())
	got, err := p.Questions([]byte("%PDF-1.4 garbage"))
	if !errors.Is(err, ErrDocumentUnreadable) {
		t.Fatalf("expected ErrDocumentUnreadable, got %v", err)
	}
	if errors.Is(err, ErrNoQuestionsRecognized) {
		t.Error("unreadable must be distinct from no questions")
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map, got %#v", got)
	}

	exam, err := p.Exam("x.pdf", []byte("junk"), nil, "1-A")
	if !errors.Is(err, ErrDocumentUnreadable) {
		t.Errorf("Exam: expected ErrDocumentUnreadable, got %v", err)
	}
	if exam.Answers == nil || len(exam.Answers) != 0 {
		t.Errorf("answer key must not be parsed for a failed exam, got %#v", exam.Answers)
	}
}

func TestPipelineAnswerKey(t *testing.T) {
	p := New(DefaultOptions())
	keyPDF := pdftest.Build([]pdftest.Text{
		{X: 72, Y: 770, S: "GABARITO 1-E 2-B"},
		{X: 72, Y: 400, S: "3-C"},
	})

	tests := []struct {
		name       string
		pdf        []byte
		pasted     string
		want       model.AnswerMap
		wantSource model.AnswerSource
		wantErr    error
	}{
		{"none", nil, "", model.AnswerMap{}, model.AnswerSourceNone, ErrAnswerKeyUnavailable},
		{"whitespace paste", nil, "   \n", model.AnswerMap{}, model.AnswerSourceNone, ErrAnswerKeyUnavailable},
		{"pasted", nil, "1-A 2-C", model.AnswerMap{1: "A", 2: "C"}, model.AnswerSourceText, nil},
		{"pdf reads full page", keyPDF, "", model.AnswerMap{1: "E", 2: "B", 3: "C"}, model.AnswerSourcePDF, nil},
		{"paste overrides pdf", keyPDF, "2-D", model.AnswerMap{1: "E", 2: "D", 3: "C"}, model.AnswerSourceMerged, nil},
		{"unreadable pdf falls back to paste", []byte("bad"), "4-A", model.AnswerMap{4: "A"}, model.AnswerSourceText, nil},
		{"unreadable pdf alone", []byte("bad"), "", model.AnswerMap{}, model.AnswerSourceNone, ErrAnswerKeyUnavailable},
		{"no pairs", nil, "sem gabarito", model.AnswerMap{}, model.AnswerSourceNone, ErrAnswerKeyUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source, err := p.AnswerKey(tt.pdf, tt.pasted)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("answers = %#v, want %#v", got, tt.want)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestPipelineUnreadableKeyWrapsCause(t *testing.T) {
	p := New(DefaultOptions())
	_, _, err := p.AnswerKey([]byte("bad"), "")
	if !errors.Is(err, ErrDocumentUnreadable) || !errors.Is(err, ErrAnswerKeyUnavailable) {
		t.Errorf("expected both sentinels in chain, got %v", err)
	}
}

func TestPipelineSingleColumnLoose(t *testing.T) {
	p := New(Options{Layout: pdftext.SingleColumn, Marker: MarkerNumeral})
	data := pdftest.Build(pdftest.Lines(72, 650, "Prova", "1. Quanto é 2+2?", "2. Qual a cor do céu?"))
	got, err := p.Questions(data)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	want := model.QuestionMap{1: "Quanto é 2+2?", 2: "Qual a cor do céu?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Questions = %#v, want %#v", got, want)
	}
}
