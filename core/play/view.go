package play

import (
	"time"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/quiz"
)

type QuestionView struct {
	Prompt     string          `json:"prompt"`
	Choices    []string        `json:"choices"`
	Difficulty quiz.Difficulty `json:"difficulty,omitempty"`
	Topic      string          `json:"topic,omitempty"`
}

// FeedbackView is only shown once the question is revealed.
type FeedbackView struct {
	Correct        bool   `json:"correct"`
	TimedOut       bool   `json:"timed_out"`
	CorrectIndexes []int  `json:"correct_indexes"`
	Explanation    string `json:"explanation"`
}

// View is what the learner sees of a session. The answer is hidden while asking.
// Once complete, the last question stays shown under the summary.
type View struct {
	ID         string              `json:"id"`
	BankID     string              `json:"bank_id"`
	Title      string              `json:"title"`
	Variant    quiz.Variant        `json:"variant"`
	Theme      catalog.Theme       `json:"theme"`
	Phase      quiz.PhaseKind      `json:"phase"`
	Index      int                 `json:"index"`
	Total      int                 `json:"total"`
	Score      int                 `json:"score"`
	Selected   *int                `json:"selected"`
	Question   *QuestionView       `json:"question,omitempty"`
	Feedback   *FeedbackView       `json:"feedback,omitempty"`
	Deadline   *time.Time          `json:"deadline,omitempty"`   // timed quizzes, while asking
	Percentage *int                `json:"percentage,omitempty"` // once complete
	Answers    []quiz.AnswerRecord `json:"answers,omitempty"`    // once complete
}

func newView(entry *catalog.Entry, eng *quiz.Engine, s Session) View {
	st := s.State
	phase := eng.Phase(st)
	v := View{
		ID:       s.ID,
		BankID:   s.BankID,
		Title:    entry.Title,
		Variant:  eng.Variant(),
		Theme:    entry.Theme,
		Phase:    phase.Kind,
		Index:    phase.Index,
		Total:    eng.Total(),
		Score:    st.Score,
		Selected: st.Selected,
	}

	switch phase.Kind {
	case quiz.Complete:
		pct := eng.ScorePercentage(st)
		v.Percentage = &pct
		v.Answers = st.Answers
	case quiz.Asking:
		if entry.Timed() {
			deadline := s.QuestionStartedAt.Add(entry.TimeLimit)
			v.Deadline = &deadline
		}
	case quiz.Revealed:
		q := eng.Current(st)
		fb := &FeedbackView{CorrectIndexes: q.CorrectIndexes(), Explanation: q.Explanation}
		if rec, ok := eng.LastAnswer(st); ok {
			fb.Correct = rec.Correct
			fb.TimedOut = rec.TimedOut
		}
		v.Feedback = fb
	}

	q := eng.Current(st)
	v.Question = &QuestionView{Prompt: q.Prompt, Choices: q.Choices, Difficulty: q.Difficulty, Topic: q.Topic}
	return v
}
