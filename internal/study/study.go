// Package study holds the per-session navigation state and its transitions.
//
// State is a value: every transition returns a new State and never mutates
// its input, so the extraction core and the HTTP layer can share it freely.
package study

import (
	"maps"

	"github.com/matheusmoura0/vestibular-tutor/internal/model"
)

// State is the user's position in an exam and the letters chosen so far.
type State struct {
	Index   int
	Choices map[int]model.Letter
}

// Normalize resets an out-of-range index to the first question.
func Normalize(s State, total int) State {
	if s.Index >= total || s.Index < 0 {
		s.Index = 0
	}
	return s
}

// Next moves one question forward; moving past the last question returns to the first.
func Next(s State, total int) State {
	s.Index++
	return Normalize(s, total)
}

// Prev moves one question back; moving before the first question stays on the first.
func Prev(s State, total int) State {
	s.Index--
	return Normalize(s, total)
}

// Goto jumps to index i.
func Goto(s State, i, total int) State {
	s.Index = i
	return Normalize(s, total)
}

// Select records letter as the user's choice for question n.
func Select(s State, n int, letter model.Letter) State {
	choices := make(map[int]model.Letter, len(s.Choices)+1)
	maps.Copy(choices, s.Choices)
	choices[n] = letter
	s.Choices = choices
	return s
}

// ClearChoices drops every recorded choice and keeps the position.
func ClearChoices(s State) State {
	s.Choices = map[int]model.Letter{}
	return s
}

// Verdict is the outcome of comparing a choice with the answer key.
type Verdict string

const (
	VerdictPending   Verdict = "pending"
	VerdictNoKey     Verdict = "no_key"
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// Evaluate compares the user's choice for n with the official answer.
func Evaluate(choices map[int]model.Letter, answers model.AnswerMap, n int) (Verdict, model.Letter) {
	choice, chosen := choices[n]
	if !chosen {
		return VerdictPending, ""
	}
	official, ok := answers.Lookup(n)
	switch {
	case !ok:
		return VerdictNoKey, ""
	case choice == official:
		return VerdictCorrect, official
	default:
		return VerdictIncorrect, official
	}
}

// View is everything the question page needs for the current position.
type View struct {
	Number   int
	Text     string
	Position int // 1-based
	Total    int
	Progress float64
	Choice   model.Letter
	Verdict  Verdict
	Official model.Letter
	HasKey   bool
}

// Current builds the View for the state's position within questions. Keys
// are taken in ascending numeric order. ok is false when there are no questions.
func Current(s State, questions model.QuestionMap, answers model.AnswerMap) (View, bool) {
	numbers := questions.Numbers()
	if len(numbers) == 0 {
		return View{}, false
	}
	s = Normalize(s, len(numbers))
	n := numbers[s.Index]
	verdict, official := Evaluate(s.Choices, answers, n)
	_, hasKey := answers.Lookup(n)
	return View{
		Number:   n,
		Text:     questions[n],
		Position: s.Index + 1,
		Total:    len(numbers),
		Progress: float64(s.Index+1) / float64(len(numbers)),
		Choice:   s.Choices[n],
		Verdict:  verdict,
		Official: official,
		HasKey:   hasKey,
	}, true
}

// Score summarises the user's choices against the answer key.
type Score struct {
	Answered  int
	Correct   int
	Incorrect int
	Unscored  int // answered but missing from the key
}

// Tally scores every recorded choice.
func Tally(choices map[int]model.Letter, answers model.AnswerMap) Score {
	var sc Score
	for n := range choices {
		sc.Answered++
		switch v, _ := Evaluate(choices, answers, n); v {
		case VerdictCorrect:
			sc.Correct++
		case VerdictIncorrect:
			sc.Incorrect++
		default:
			sc.Unscored++
		}
	}
	return sc
}
