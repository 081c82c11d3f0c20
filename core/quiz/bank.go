package quiz

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptyBank       = errors.New("question bank is empty")
	ErrInvalidQuestion = errors.New("invalid question")
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case "", Easy, Medium, Hard:
		return true
	}
	return false
}

// Correctness identifies the correct option of a Question: either ByIndex or ByValue.
type Correctness interface {
	// matches reports whether the option at picked is the correct one.
	matches(choices []string, picked int) bool
	validate(choices []string) error
	fmt.Stringer
}

// ByIndex marks the option at the given position as correct.
type ByIndex int

// ByValue marks the option whose text equals the given string as correct.
type ByValue string

var (
	_ Correctness = ByIndex(0)
	_ Correctness = ByValue("")
)

func (c ByIndex) matches(_ []string, picked int) bool { return int(c) == picked }

func (c ByIndex) validate(choices []string) error {
	if int(c) < 0 || int(c) >= len(choices) {
		return errors.Errorf("correct index %d out of range [0, %d)", int(c), len(choices))
	}
	return nil
}

func (c ByIndex) String() string { return fmt.Sprintf("index %d", int(c)) }

func (c ByValue) matches(choices []string, picked int) bool {
	return picked >= 0 && picked < len(choices) && choices[picked] == string(c)
}

func (c ByValue) validate(choices []string) error {
	for _, ch := range choices {
		if ch == string(c) {
			return nil
		}
	}
	return errors.Errorf("correct value %q is not one of the choices", string(c))
}

func (c ByValue) String() string { return fmt.Sprintf("value %q", string(c)) }

type Question struct {
	Prompt      string
	Choices     []string
	Correct     Correctness
	Explanation string
	Difficulty  Difficulty
	Topic       string
	ReviewNote  string // known content problem, kept verbatim
}

// IsCorrect reports whether the option at index picked is correct.
func (q Question) IsCorrect(picked int) bool {
	return q.Correct.matches(q.Choices, picked)
}

// CorrectIndexes returns the positions of the options the question accepts.
func (q Question) CorrectIndexes() []int {
	var idxs []int
	for i := range q.Choices {
		if q.IsCorrect(i) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// IndexOf returns the position of the first option equal to value, or -1.
func (q Question) IndexOf(value string) int {
	for i, ch := range q.Choices {
		if ch == value {
			return i
		}
	}
	return -1
}

func (q Question) validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.New("prompt is blank")
	}
	if len(q.Choices) < 2 {
		return errors.Errorf("needs at least 2 choices, got %d", len(q.Choices))
	}
	if q.Correct == nil {
		return errors.New("correct answer is missing")
	}
	if !q.Difficulty.Valid() {
		return errors.Errorf("unknown difficulty %q", q.Difficulty)
	}
	return q.Correct.validate(q.Choices)
}

// Bank is an immutable, ordered, non-empty list of questions.
type Bank struct {
	id        string
	title     string
	questions []Question
}

// NewBank validates every question and returns the Bank; questions are copied.
func NewBank(id, title string, questions []Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}
	qs := make([]Question, len(questions))
	for i, q := range questions {
		if err := q.validate(); err != nil {
			return nil, errors.Wrapf(ErrInvalidQuestion, "question %d: %v", i+1, err)
		}
		q.Choices = append([]string(nil), q.Choices...)
		qs[i] = q
	}
	return &Bank{id: id, title: title, questions: qs}, nil
}

func (b *Bank) ID() string    { return b.id }
func (b *Bank) Title() string { return b.title }
func (b *Bank) Len() int      { return len(b.questions) }

// Question returns a copy of the i-th question.
func (b *Bank) Question(i int) Question {
	q := b.questions[i]
	q.Choices = append([]string(nil), q.Choices...)
	return q
}

// Questions returns a copy of all the questions, in presentation order.
func (b *Bank) Questions() []Question {
	qs := make([]Question, 0, len(b.questions))
	for i := range b.questions {
		qs = append(qs, b.Question(i))
	}
	return qs
}
