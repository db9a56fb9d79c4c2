package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
)

// MarkerStyle selects the pattern that locates question boundaries.
type MarkerStyle int

const (
	// MarkerWord matches the literal word "QUESTÃO" followed by a number.
	// It is the precise default.
	MarkerWord MarkerStyle = iota
	// MarkerNumeral matches a number at the start of a line followed by
	// ".", "-" or whitespace. It also splits on numerals that happen to
	// open a line inside a question body; that loss of precision is known
	// and accepted for booklets without marker words.
	MarkerNumeral
)

var markerPatterns = map[MarkerStyle]*regexp.Regexp{
	MarkerWord:    regexp.MustCompile(`QUESTÃO\s+(\d+)`),
	MarkerNumeral: regexp.MustCompile(`(?m)^\s*(\d+)[.\-\s]`),
}

func (s MarkerStyle) String() string {
	switch s {
	case MarkerWord:
		return "strict"
	case MarkerNumeral:
		return "loose"
	default:
		return fmt.Sprintf("MarkerStyle(%d)", int(s))
	}
}

// ParseMarkerStyle parses "strict" or "loose".
func ParseMarkerStyle(s string) (MarkerStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "word", "":
		return MarkerWord, nil
	case "loose", "numeral":
		return MarkerNumeral, nil
	}
	return MarkerWord, fmt.Errorf("unknown marker style %q (expected strict or loose)", s)
}

// Segmenter splits document text into numbered questions.
type Segmenter struct {
	style MarkerStyle
	re    *regexp.Regexp
}

// NewSegmenter returns a Segmenter for the given marker style.
func NewSegmenter(style MarkerStyle) *Segmenter {
	re, ok := markerPatterns[style]
	if !ok {
		style, re = MarkerWord, markerPatterns[MarkerWord]
	}
	return &Segmenter{style: style, re: re}
}

// Style returns the marker style in use.
func (s *Segmenter) Style() MarkerStyle { return s.style }

// Segment pairs every marker's number with the text up to the next marker.
// Text before the first marker is discarded. A later marker with the same
// number replaces the earlier body. Bodies may be empty. A marker whose
// numeral does not parse is not a boundary, so its text stays in the
// preceding body. Without markers the result is an empty, non-nil map.
func (s *Segmenter) Segment(text string) model.QuestionMap {
	type marker struct {
		start, end, num int
	}
	var markers []marker
	for _, m := range s.re.FindAllStringSubmatchIndex(text, -1) {
		n, ok := model.ParseQuestionNumber(text[m[2]:m[3]])
		if !ok {
			slog.Warn("skipping unparsable question marker", "marker", text[m[0]:m[1]])
			continue
		}
		markers = append(markers, marker{start: m[0], end: m[1], num: n})
	}

	questions := make(model.QuestionMap)
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		questions[m.num] = strings.TrimSpace(text[m.end:end])
	}
	return questions
}

// EmptyBodies returns the question numbers whose body is empty, in ascending order.
func EmptyBodies(qm model.QuestionMap) []int {
	var empty []int
	for _, n := range qm.Numbers() {
		if qm[n] == "" {
			empty = append(empty, n)
		}
	}
	return empty
}
