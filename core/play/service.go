package play

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/quiz"
)

type Service struct {
	catalog  *catalog.Catalog
	store    SessionStore
	recorder AttemptRecorder // optional
	logger   core.Logger
}

func NewService(cat *catalog.Catalog, store SessionStore, recorder AttemptRecorder, logger core.Logger) *Service {
	return &Service{catalog: cat, store: store, recorder: recorder, logger: logger}
}

func (svc *Service) Catalog() *catalog.Catalog { return svc.catalog }

func (svc *Service) engine(bankID string) (*catalog.Entry, *quiz.Engine, error) {
	entry, err := svc.catalog.Get(bankID)
	if err != nil {
		return nil, nil, err
	}
	eng, err := entry.NewEngine()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "bank %s", bankID)
	}
	return entry, eng, nil
}

// Start opens a session on the first question of a bank.
func (svc *Service) Start(ctx context.Context, bankID, studentID string) (View, error) {
	entry, eng, err := svc.engine(bankID)
	if err != nil {
		return View{}, err
	}
	now := NowFunc()
	s := Session{
		ID:                uuid.NewString(),
		BankID:            entry.ID,
		StudentID:         studentID,
		Variant:           eng.Variant(),
		State:             eng.Start(),
		QuestionStartedAt: now,
		StartedAt:         now,
		UpdatedAt:         now,
	}
	if err = svc.store.Create(ctx, s); err != nil {
		return View{}, errors.Wrap(err, "storing session")
	}
	return newView(entry, eng, s), nil
}

// Get returns the session, revealing the current question first when its countdown ran out.
func (svc *Service) Get(ctx context.Context, id string) (View, error) {
	return svc.transition(ctx, id, nil, false)
}

func (svc *Service) Select(ctx context.Context, id string, choice quiz.Choice) (View, error) {
	return svc.transition(ctx, id, func(eng *quiz.Engine, st quiz.State) (quiz.State, error) {
		return eng.Select(st, choice)
	}, false)
}

func (svc *Service) Submit(ctx context.Context, id string) (View, error) {
	return svc.transition(ctx, id, (*quiz.Engine).Submit, false)
}

func (svc *Service) Advance(ctx context.Context, id string) (View, error) {
	return svc.transition(ctx, id, (*quiz.Engine).Advance, false)
}

// Reset restarts the session from the first question. A new attempt is recorded on completion.
func (svc *Service) Reset(ctx context.Context, id string) (View, error) {
	return svc.transition(ctx, id, func(eng *quiz.Engine, _ quiz.State) (quiz.State, error) {
		return eng.Reset(), nil
	}, true)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.store.Delete(ctx, id)
}

type transitionFunc func(eng *quiz.Engine, st quiz.State) (quiz.State, error)

// transition applies the pending timeout then fn (when set) to the stored session.
// A rejected transition leaves the stored session untouched, timeout included.
func (svc *Service) transition(ctx context.Context, id string, fn transitionFunc, restart bool) (View, error) {
	var (
		entry    *catalog.Entry
		eng      *quiz.Engine
		complete bool
	)
	s, err := svc.store.Update(ctx, id, func(s *Session) error {
		var err error
		complete = false // fn may be retried
		if entry, eng, err = svc.engine(s.BankID); err != nil {
			return err
		}
		if err = eng.Validate(s.State); err != nil {
			return errors.Wrapf(err, "session %s", s.ID)
		}
		now := NowFunc()
		st := s.State
		prev := eng.Phase(st)

		if expired(entry, eng, *s, now) {
			if st, err = eng.Expire(st); err != nil {
				return err
			}
		}
		if fn != nil {
			if st, err = fn(eng, st); err != nil {
				return err
			}
		}

		next := eng.Phase(st)
		if restart || (next.Kind == quiz.Asking && (prev.Kind != quiz.Asking || next.Index != prev.Index)) {
			s.QuestionStartedAt = now
		}
		if restart {
			s.StartedAt = now
			s.Recorded = false
		}
		if next.Kind == quiz.Complete && !s.Recorded && s.StudentID != "" {
			s.Recorded = true
			complete = true
		}
		s.State = st
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return View{}, err
	}

	if complete {
		svc.record(ctx, entry, eng, s)
	}
	return newView(entry, eng, s), nil
}

// expired reports whether the countdown of the current question ran out.
func expired(entry *catalog.Entry, eng *quiz.Engine, s Session, now time.Time) bool {
	if !entry.Timed() || eng.Phase(s.State).Kind != quiz.Asking {
		return false
	}
	return !now.Before(s.QuestionStartedAt.Add(entry.TimeLimit))
}

func (svc *Service) record(ctx context.Context, entry *catalog.Entry, eng *quiz.Engine, s Session) {
	if svc.recorder == nil {
		return
	}
	_, err := svc.recorder.RecordAttempt(ctx, classroom.QuizAttempt{
		BankID:      entry.ID,
		BankTitle:   entry.Title,
		Subject:     entry.Subject,
		StudentID:   s.StudentID,
		Score:       s.State.Score,
		Total:       eng.Total(),
		Percentage:  eng.ScorePercentage(s.State),
		StartedAt:   s.StartedAt,
		CompletedAt: s.UpdatedAt,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording attempt of session %s: %v", s.ID, err), err, core.Person{ID: s.StudentID})
	}
}
