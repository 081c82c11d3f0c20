package main

import (
	"time"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/quiz"
)

var nowFunc = time.Now // mockable

// player runs one bank locally. Timed banks are driven by a quiz.TimedSession.
type player struct {
	entry *catalog.Entry
	eng   *quiz.Engine
	timed *quiz.TimedSession
	state quiz.State

	questionStartedAt time.Time
}

// newPlayer starts entry. onExpire is called from the countdown goroutine of timed banks;
// the caller must then sync the player from its own goroutine.
func newPlayer(entry *catalog.Entry, untimed bool, onExpire func()) (*player, error) {
	eng, err := entry.NewEngine()
	if err != nil {
		return nil, err
	}
	p := &player{entry: entry, eng: eng, state: eng.Start(), questionStartedAt: nowFunc()}
	if entry.Timed() && !untimed {
		p.timed = quiz.NewTimedSession(eng, entry.TimeLimit, func(quiz.State) {
			if onExpire != nil {
				onExpire()
			}
		})
		p.state = p.timed.State()
	}
	return p, nil
}

func (p *player) Phase() quiz.Phase { return p.eng.Phase(p.state) }

func (p *player) Question() quiz.Question { return p.eng.Current(p.state) }

// Deadline returns when the current question times out, if it is counting down.
func (p *player) Deadline() (time.Time, bool) {
	if p.timed == nil || p.Phase().Kind != quiz.Asking {
		return time.Time{}, false
	}
	return p.questionStartedAt.Add(p.entry.TimeLimit), true
}

// Progress is the share of questions revealed so far, in [0, 1].
func (p *player) Progress() float64 {
	return float64(len(p.state.Answers)) / float64(p.eng.Total())
}

func (p *player) Percentage() int { return p.eng.ScorePercentage(p.state) }

// LastAnswer returns the outcome of the revealed question.
func (p *player) LastAnswer() (quiz.AnswerRecord, bool) {
	return p.eng.LastAnswer(p.state)
}

func (p *player) Select(choice quiz.Choice) error {
	return p.apply(
		func(st quiz.State) (quiz.State, error) { return p.eng.Select(st, choice) },
		func() (quiz.State, error) { return p.timed.Select(choice) },
	)
}

func (p *player) Submit() error {
	return p.apply(p.eng.Submit, p.timed.Submit)
}

func (p *player) Advance() error {
	return p.apply(p.eng.Advance, p.timed.Advance)
}

func (p *player) Reset() {
	if p.timed != nil {
		p.state = p.timed.Reset()
	} else {
		p.state = p.eng.Reset()
	}
	p.questionStartedAt = nowFunc()
}

// Sync picks up a timeout of the countdown.
func (p *player) Sync() {
	if p.timed != nil {
		p.state = p.timed.State()
	}
}

func (p *player) Close() {
	if p.timed != nil {
		p.timed.Close()
	}
}

func (p *player) apply(local func(quiz.State) (quiz.State, error), timed func() (quiz.State, error)) error {
	prev := p.Phase()
	var (
		next quiz.State
		err  error
	)
	if p.timed != nil {
		next, err = timed()
	} else {
		next, err = local(p.state)
	}
	p.state = next
	if err != nil {
		return err
	}
	if cur := p.Phase(); cur.Kind == quiz.Asking && (prev.Kind != quiz.Asking || cur.Index != prev.Index) {
		p.questionStartedAt = nowFunc()
	}
	return nil
}
