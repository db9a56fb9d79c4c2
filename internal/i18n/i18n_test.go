package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslatePortuguese(t *testing.T) {
	ctx := initLang(t, "pt")

	if got := T(ctx, "AppTitle"); got != "Tutor de Vestibular" {
		t.Errorf("T(AppTitle) = %q, want 'Tutor de Vestibular'", got)
	}
	if got := T(ctx, "NoKey"); got != "Gabarito não disponível para esta questão." {
		t.Errorf("T(NoKey) = %q", got)
	}
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Entrance Exam Tutor" {
		t.Errorf("T(AppTitle) = %q, want 'Entrance Exam Tutor'", got)
	}
	if got := T(ctx, "Next"); got != "Next" {
		t.Errorf("T(Next) = %q, want 'Next'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "pt")

	if got := Tp(ctx, "QuestionsCount", 1); got != "1 questão" {
		t.Errorf("Tp(QuestionsCount, 1) = %q, want '1 questão'", got)
	}
	if got := Tp(ctx, "QuestionsCount", 45); got != "45 questões" {
		t.Errorf("Tp(QuestionsCount, 45) = %q, want '45 questões'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "Incorrect", map[string]any{"Official": "C"})
	if got != "Incorrect. Answer key: C" {
		t.Errorf("Td(Incorrect) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "pt")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	initLang(t, "pt")
	if got := T(context.Background(), "Next"); got != "Próxima" {
		t.Errorf("T without localizer = %q, want default language", got)
	}
	if got := LangFromContext(context.Background()); got != "pt" {
		t.Errorf("LangFromContext = %q, want pt", got)
	}
}

func TestMiddlewareNegotiation(t *testing.T) {
	initLang(t, "pt")

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantLang string
		wantNext string
	}{
		{"default", "", "", "pt", "Próxima"},
		{"accept english", "en-US,en;q=0.9", "", "en", "Next"},
		{"unsupported falls back", "fr-FR", "", "pt", "Próxima"},
		{"cookie wins", "en-US", "pt", "pt", "Próxima"},
		{"brazilian portuguese", "pt-BR", "", "pt", "Próxima"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLang, gotNext string
			h := Middleware("pt")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotLang = LangFromContext(r.Context())
				gotNext = T(r.Context(), "Next")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if gotLang != tt.wantLang {
				t.Errorf("lang = %q, want %q", gotLang, tt.wantLang)
			}
			if gotNext != tt.wantNext {
				t.Errorf("T(Next) = %q, want %q", gotNext, tt.wantNext)
			}
		})
	}
}
