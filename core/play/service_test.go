package play_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/core/quiz"
	"github.com/trezcool/quizdesk/fs"
	"github.com/trezcool/quizdesk/services/logger"
	"github.com/trezcool/quizdesk/services/sessionstore"
)

type recorderMock struct {
	mu       sync.Mutex
	attempts []classroom.QuizAttempt
	err      error
}

func (r *recorderMock) RecordAttempt(_ context.Context, a classroom.QuizAttempt) (classroom.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return classroom.QuizAttempt{}, r.err
	}
	r.attempts = append(r.attempts, a)
	return a, nil
}

type clock struct{ now time.Time }

func (c *clock) tick(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T) (*play.Service, *recorderMock, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)}
	play.NowFunc = func() time.Time { return clk.now }
	t.Cleanup(func() { play.NowFunc = func() time.Time { return time.Now().UTC() } })

	cat, err := catalog.Load(appfs.FS, appfs.BanksDir)
	require.NoError(t, err)
	rec := new(recorderMock)
	logger := logsvc.NewDiscardLogger(core.NewTestConfig())
	return play.NewService(cat, sessionstore.NewMemoryStore(time.Hour), rec, logger), rec, clk
}

// fractions-6 is immediate and untimed; its answers are at these indexes.
var fractionsAnswers = []int{0, 1, 1, 1, 0, 0}

func TestService_immediateRun(t *testing.T) {
	svc, rec, clk := setup(t)
	ctx := context.Background()

	v, err := svc.Start(ctx, "fractions-6", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, quiz.Asking, v.Phase)
	assert.Equal(t, 6, v.Total)
	assert.Equal(t, "Fractions Fundamentals", v.Title)
	assert.Equal(t, "#2563eb", v.Theme.Accent)
	require.NotNil(t, v.Question)
	assert.Equal(t, "What is 1/2 + 1/4?", v.Question.Prompt)
	assert.Nil(t, v.Feedback, "the answer is hidden while asking")
	assert.Nil(t, v.Deadline)

	id := v.ID
	for i, ans := range fractionsAnswers {
		pick := ans
		if i == 2 {
			pick = 0 // wrong once
		}
		v, err = svc.Select(ctx, id, quiz.OptionIndex(pick))
		require.NoError(t, err)
		assert.Equal(t, quiz.Revealed, v.Phase)
		require.NotNil(t, v.Feedback)
		assert.Equal(t, i != 2, v.Feedback.Correct)
		assert.Equal(t, []int{ans}, v.Feedback.CorrectIndexes)

		_, err = svc.Select(ctx, id, quiz.OptionIndex(ans))
		assert.True(t, quiz.IsInvalidTransition(err), "a revealed question cannot be answered again")

		clk.tick(time.Minute)
		v, err = svc.Advance(ctx, id)
		require.NoError(t, err)
	}

	assert.Equal(t, quiz.Complete, v.Phase)
	require.NotNil(t, v.Percentage)
	assert.Equal(t, 83, *v.Percentage)
	assert.Len(t, v.Answers, 6)
	require.NotNil(t, v.Question)
	assert.Equal(t, "What is 1 1/2 divided by 1/4?", v.Question.Prompt)
	assert.Equal(t, 5, v.Index)
	assert.Nil(t, v.Feedback)

	require.Len(t, rec.attempts, 1)
	a := rec.attempts[0]
	assert.Equal(t, "stu-1", a.StudentID)
	assert.Equal(t, catalog.Math, a.Subject)
	assert.Equal(t, 5, a.Score)
	assert.Equal(t, 6, a.Total)
	assert.Equal(t, 83, a.Percentage)
	assert.Equal(t, 6*time.Minute, a.CompletedAt.Sub(a.StartedAt))

	_, err = svc.Advance(ctx, id)
	assert.True(t, quiz.IsInvalidTransition(err))
	v, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, quiz.Complete, v.Phase)
	assert.Len(t, rec.attempts, 1, "attempts are recorded once")

	v, err = svc.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, quiz.Asking, v.Phase)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 0, v.Score)
}

func TestService_explicitSubmitAndTimeout(t *testing.T) {
	svc, rec, clk := setup(t)
	ctx := context.Background()

	v, err := svc.Start(ctx, "trigonometry-10", "")
	require.NoError(t, err)
	assert.Equal(t, quiz.ExplicitSubmit, v.Variant)
	require.NotNil(t, v.Deadline)
	assert.Equal(t, clk.now.Add(30*time.Second), *v.Deadline)
	id := v.ID

	_, err = svc.Submit(ctx, id)
	assert.True(t, quiz.IsInvalidTransition(err), "nothing selected yet")

	v, err = svc.Select(ctx, id, quiz.OptionValue("adjacent / hypotenuse"))
	require.NoError(t, err)
	assert.Equal(t, quiz.Asking, v.Phase)
	require.NotNil(t, v.Selected)
	assert.Equal(t, 0, *v.Selected)

	v, err = svc.Select(ctx, id, quiz.OptionIndex(1))
	require.NoError(t, err)
	assert.Equal(t, 1, *v.Selected, "selection can change before submit")

	v, err = svc.Submit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, quiz.Revealed, v.Phase)
	assert.True(t, v.Feedback.Correct)
	assert.Nil(t, v.Deadline)

	clk.tick(2 * time.Minute) // revealed questions are not timed
	v, err = svc.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, clk.now.Add(30*time.Second), *v.Deadline, "the countdown restarts on each question")

	_, err = svc.Select(ctx, id, quiz.OptionIndex(0))
	require.NoError(t, err)
	clk.tick(30 * time.Second)

	_, err = svc.Submit(ctx, id)
	assert.True(t, quiz.IsInvalidTransition(err), "too late")

	v, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, quiz.Revealed, v.Phase)
	assert.True(t, v.Feedback.TimedOut)
	assert.False(t, v.Feedback.Correct)
	assert.Nil(t, v.Selected, "a timeout reveals with no selection")
	assert.Equal(t, 1, v.Score)

	for v.Phase != quiz.Complete {
		clk.tick(time.Minute)
		if v.Phase == quiz.Revealed {
			v, err = svc.Advance(ctx, id)
		} else {
			v, err = svc.Get(ctx, id)
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 17, *v.Percentage)
	assert.Empty(t, rec.attempts, "anonymous sessions are not recorded")
}

func TestService_errors(t *testing.T) {
	svc, rec, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, "lol", "")
	assert.Equal(t, play.ErrUnknownBank, err)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, play.ErrSessionNotFound, err)
	_, err = svc.Select(ctx, "missing", quiz.OptionIndex(0))
	assert.Equal(t, play.ErrSessionNotFound, err)

	v, err := svc.Start(ctx, "fractions-6", "stu-1")
	require.NoError(t, err)
	_, err = svc.Select(ctx, v.ID, quiz.OptionValue("7/8"))
	var tErr *quiz.TransitionError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "select", tErr.Op)

	_, err = svc.Submit(ctx, v.ID)
	assert.True(t, quiz.IsInvalidTransition(err), "immediate quizzes have no submit step")

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.Equal(t, play.ErrSessionNotFound, svc.Delete(ctx, v.ID))

	rec.err = errors.New("db down")
	v, err = svc.Start(ctx, "fractions-6", "stu-1")
	require.NoError(t, err)
	for _, ans := range fractionsAnswers {
		_, err = svc.Select(ctx, v.ID, quiz.OptionIndex(ans))
		require.NoError(t, err)
		v, err = svc.Advance(ctx, v.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, quiz.Complete, v.Phase, "recording failures do not fail the session")
	assert.Equal(t, 100, *v.Percentage)
}

func TestService_corruptedSession(t *testing.T) {
	cat, err := catalog.Load(appfs.FS, appfs.BanksDir)
	require.NoError(t, err)
	store := sessionstore.NewMemoryStore(time.Hour)
	svc := play.NewService(cat, store, nil, logsvc.NewDiscardLogger(core.NewTestConfig()))
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, play.Session{
		ID: "broken", BankID: "fractions-6", Variant: quiz.Immediate, State: quiz.State{Index: 9},
	}))

	_, err = svc.Get(ctx, "broken")
	assert.True(t, quiz.IsInvalidTransition(err))
	_, err = svc.Select(ctx, "broken", quiz.OptionIndex(0))
	assert.True(t, quiz.IsInvalidTransition(err))

	s, err := store.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, 9, s.State.Index, "left as stored")
}
