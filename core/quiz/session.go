package quiz

import (
	"math"

	"github.com/pkg/errors"
)

// Variant is the reveal discipline of a quiz.
type Variant string

const (
	// Immediate reveals and scores the question as soon as an option is selected.
	Immediate Variant = "immediate"
	// ExplicitSubmit lets the learner change the selection until it is submitted.
	ExplicitSubmit Variant = "submit"
)

var ErrUnknownVariant = errors.New("unknown quiz variant")

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case Immediate, ExplicitSubmit:
		return v, nil
	case "":
		return Immediate, nil
	}
	return "", errors.Wrapf(ErrUnknownVariant, "%q", s)
}

type PhaseKind string

const (
	Asking   PhaseKind = "asking"
	Revealed PhaseKind = "revealed"
	Complete PhaseKind = "complete"
)

// Phase is the state machine position derived from a State.
type Phase struct {
	Kind  PhaseKind
	Index int
}

// AnswerRecord is the outcome of one revealed question.
type AnswerRecord struct {
	Question int  `json:"question"`
	Selected *int `json:"selected"`
	Correct  bool `json:"correct"`
	TimedOut bool `json:"timed_out,omitempty"`
}

// State is the progress of one learner through a Bank.
// Transitions never mutate their input; they return a new State.
type State struct {
	Index    int            `json:"index"`
	Selected *int           `json:"selected"` // nil: none selected
	Answered bool           `json:"answered"`
	Score    int            `json:"score"`
	Complete bool           `json:"complete"`
	Answers  []AnswerRecord `json:"answers,omitempty"`
}

func (st State) clone() State {
	if st.Selected != nil {
		sel := *st.Selected
		st.Selected = &sel
	}
	if st.Answers != nil {
		st.Answers = append([]AnswerRecord(nil), st.Answers...)
	}
	return st
}

func phaseOf(st State) PhaseKind {
	switch {
	case st.Complete:
		return Complete
	case st.Answered:
		return Revealed
	}
	return Asking
}

// Choice identifies the option picked by the learner, by position or by text.
type Choice struct {
	index   int
	value   string
	byValue bool
}

func OptionIndex(i int) Choice    { return Choice{index: i} }
func OptionValue(v string) Choice { return Choice{value: v, byValue: true} }

func (c Choice) resolve(q Question) int {
	if c.byValue {
		return q.IndexOf(c.value)
	}
	return c.index
}

// Engine drives sessions over one Bank with one Variant.
type Engine struct {
	bank    *Bank
	variant Variant
}

func NewEngine(bank *Bank, variant Variant) (*Engine, error) {
	if bank == nil || bank.Len() == 0 {
		return nil, ErrEmptyBank
	}
	if _, err := ParseVariant(string(variant)); err != nil {
		return nil, err
	}
	if variant == "" {
		variant = Immediate
	}
	return &Engine{bank: bank, variant: variant}, nil
}

func (e *Engine) Bank() *Bank      { return e.bank }
func (e *Engine) Variant() Variant { return e.variant }
func (e *Engine) Total() int       { return e.bank.Len() }

// Start returns a fresh state at the first question.
func (e *Engine) Start() State {
	return State{}
}

// Reset discards all progress. It is accepted from any state.
func (e *Engine) Reset() State {
	return e.Start()
}

// Phase returns the state machine position of st.
func (e *Engine) Phase(st State) Phase {
	return Phase{Kind: phaseOf(st), Index: st.Index}
}

// Current returns the question displayed for st.
// A state out of range for the bank falls back to the first question; use Validate to reject it instead.
func (e *Engine) Current(st State) Question {
	i := st.Index
	if i < 0 || i >= e.bank.Len() {
		i = 0
	}
	return e.bank.Question(i)
}

// ScorePercentage returns round(100 * score / number of questions).
func (e *Engine) ScorePercentage(st State) int {
	return int(math.Round(100 * float64(st.Score) / float64(e.bank.Len())))
}

// Validate rejects states that could not have been produced by this engine's bank.
// Complete states are valid.
func (e *Engine) Validate(st State) error {
	return e.validate("validate", st)
}

func (e *Engine) validate(op string, st State) error {
	n := e.bank.Len()
	switch {
	case st.Index < 0 || st.Index >= n:
		return rejected(op, st, "question index out of range")
	case st.Score < 0 || st.Score > n:
		return rejected(op, st, "score out of range")
	case st.Selected != nil && (*st.Selected < 0 || *st.Selected >= len(e.bank.questions[st.Index].Choices)):
		return rejected(op, st, "selected option out of range")
	}
	return nil
}

// check is the precondition of every transition: a valid state of an unfinished quiz.
func (e *Engine) check(op string, st State) error {
	if err := e.validate(op, st); err != nil {
		return err
	}
	if st.Complete {
		return rejected(op, st, "quiz is complete")
	}
	return nil
}

// Select records the learner's choice for the current question.
// With Immediate, it also reveals and scores the question.
// With ExplicitSubmit, it may be called repeatedly until Submit.
func (e *Engine) Select(st State, choice Choice) (State, error) {
	const op = "select"
	if err := e.check(op, st); err != nil {
		return st, err
	}
	if st.Answered {
		return st, rejected(op, st, "question already answered")
	}
	q := e.bank.questions[st.Index]
	picked := choice.resolve(q)
	if picked < 0 || picked >= len(q.Choices) {
		return st, rejected(op, st, "unknown option")
	}

	next := st.clone()
	next.Selected = &picked
	if e.variant == Immediate {
		return e.reveal(next, false), nil
	}
	return next, nil
}

// Submit locks in the pending selection. Only ExplicitSubmit quizzes have this step.
func (e *Engine) Submit(st State) (State, error) {
	const op = "submit"
	if err := e.check(op, st); err != nil {
		return st, err
	}
	if e.variant != ExplicitSubmit {
		return st, rejected(op, st, "selection reveals the answer in this quiz")
	}
	if st.Answered {
		return st, rejected(op, st, "answer already submitted")
	}
	if st.Selected == nil {
		return st, rejected(op, st, "no answer selected")
	}
	return e.reveal(st.clone(), false), nil
}

// Expire reveals the current question with no selection and no score.
// It is the timeout path of timed quizzes, in both variants.
func (e *Engine) Expire(st State) (State, error) {
	const op = "expire"
	if err := e.check(op, st); err != nil {
		return st, err
	}
	if st.Answered {
		return st, rejected(op, st, "question already answered")
	}
	next := st.clone()
	next.Selected = nil
	return e.reveal(next, true), nil
}

func (e *Engine) reveal(st State, timedOut bool) State {
	q := e.bank.questions[st.Index]
	correct := st.Selected != nil && q.IsCorrect(*st.Selected)
	if correct {
		st.Score++
	}
	st.Answered = true

	rec := AnswerRecord{Question: st.Index, Correct: correct, TimedOut: timedOut}
	if st.Selected != nil {
		sel := *st.Selected
		rec.Selected = &sel
	}
	st.Answers = append(st.Answers, rec)
	return st
}

// Advance moves past a revealed question, completing the quiz after the last one.
func (e *Engine) Advance(st State) (State, error) {
	const op = "advance"
	if err := e.check(op, st); err != nil {
		return st, err
	}
	if !st.Answered {
		return st, rejected(op, st, "question not answered yet")
	}

	next := st.clone()
	if st.Index+1 < e.bank.Len() {
		next.Index++
		next.Selected = nil
		next.Answered = false
		return next, nil
	}
	next.Complete = true
	return next, nil
}

// LastAnswer returns the outcome of the question shown by st, if it has been revealed.
func (e *Engine) LastAnswer(st State) (AnswerRecord, bool) {
	if !st.Answered || len(st.Answers) == 0 {
		return AnswerRecord{}, false
	}
	rec := st.Answers[len(st.Answers)-1]
	return rec, rec.Question == st.Index
}
