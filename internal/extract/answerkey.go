package extract

import (
	"regexp"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
)

// One or two digits, any run of non-alphanumeric separators, then a single
// letter A-E. Covers "1-E", "$1-E$", "28C", "15÷D", "1.A" and "1 A".
var answerPattern = regexp.MustCompile(`(?i)(\d{1,2})[\W_]*([A-E])`)

// ParseAnswerKey extracts question number to letter pairs from free text.
// Later pairs for the same number replace earlier ones.
func ParseAnswerKey(text string) model.AnswerMap {
	answers := make(model.AnswerMap)
	for _, m := range answerPattern.FindAllStringSubmatch(text, -1) {
		n, ok := model.ParseQuestionNumber(m[1])
		if !ok {
			continue
		}
		l, ok := model.ParseLetter(m[2])
		if !ok {
			continue
		}
		answers[n] = l
	}
	return answers
}
