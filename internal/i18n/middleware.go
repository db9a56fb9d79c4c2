package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

type langCtxKey struct{}

// Middleware injects a localizer into every request context. The language is
// taken from the "lang" cookie, then Accept-Language, then lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	fallback := NewLocalizer(lang)
	tags := Supported()
	matcher := language.NewMatcher(tags)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc, chosen := fallback, lang
			var prefs []string
			if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
				prefs = append(prefs, c.Value)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}
			if len(prefs) > 0 && len(tags) > 0 {
				if tag, _, conf := matcher.Match(parsePrefs(prefs)...); conf != language.No {
					base, _ := tag.Base()
					chosen = base.String()
					loc = NewLocalizer(chosen, lang)
				}
			}
			ctx := WithLocalizer(r.Context(), loc)
			ctx = contextWithLang(ctx, chosen)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePrefs(prefs []string) []language.Tag {
	var out []language.Tag
	for _, p := range prefs {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		out = append(out, tags...)
	}
	return out
}
