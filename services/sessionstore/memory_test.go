package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/core/quiz"
)

func newSession(id string) play.Session {
	sel := 1
	return play.Session{
		ID:      id,
		BankID:  "fractions-6",
		Variant: quiz.Immediate,
		State: quiz.State{
			Selected: &sel,
			Answered: true,
			Score:    1,
			Answers:  []quiz.AnswerRecord{{Question: 0, Selected: &sel, Correct: true}},
		},
	}
}

// storeContract runs the behaviour every play.SessionStore must have.
func storeContract(t *testing.T, store play.SessionStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.Equal(t, play.ErrSessionNotFound, err)
	_, err = store.Update(ctx, "missing", func(*play.Session) error { return nil })
	assert.Equal(t, play.ErrSessionNotFound, err)
	assert.Equal(t, play.ErrSessionNotFound, store.Delete(ctx, "missing"))

	s := newSession("s1")
	require.NoError(t, store.Create(ctx, s))
	assert.Error(t, store.Create(ctx, s), "ids are unique")

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	upd, err := store.Update(ctx, "s1", func(s *play.Session) error {
		s.State.Index = 1
		s.State.Selected = nil
		s.State.Answered = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, upd.State.Index)

	boom := errors.New("boom")
	_, err = store.Update(ctx, "s1", func(s *play.Session) error {
		s.State.Score = 99
		return boom
	})
	assert.Equal(t, boom, err)

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, upd, got, "failed updates are not stored")

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.Equal(t, play.ErrSessionNotFound, err)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_isolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	s := newSession("s1")
	require.NoError(t, store.Create(ctx, s))

	*s.State.Selected = 3
	s.State.Answers[0].Correct = false

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, *got.State.Selected)
	assert.True(t, got.State.Answers[0].Correct)
}

func TestMemoryStore_expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Create(ctx, newSession("s1")))
	require.NoError(t, store.Create(ctx, newSession("s2")))

	now = now.Add(50 * time.Minute)
	_, err := store.Update(ctx, "s1", func(*play.Session) error { return nil })
	require.NoError(t, err, "activity extends the session")

	now = now.Add(20 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "s2")
	assert.Equal(t, play.ErrSessionNotFound, err)
	assert.Equal(t, 1, store.Len())
}
