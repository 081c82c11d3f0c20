// Package play runs server-side quiz sessions: one learner going through one catalog bank.
package play

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/quiz"
)

var (
	// errors
	ErrSessionNotFound = errors.New("quiz session not found")
	ErrUnknownBank     = catalog.ErrBankNotFound

	// NowFunc is mocked in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }
)

// Session is the stored progress of a learner. StudentID is empty for anonymous play.
type Session struct {
	ID                string       `json:"id"`
	BankID            string       `json:"bank_id"`
	StudentID         string       `json:"student_id,omitempty"`
	Variant           quiz.Variant `json:"variant"`
	State             quiz.State   `json:"state"`
	QuestionStartedAt time.Time    `json:"question_started_at"`
	StartedAt         time.Time    `json:"started_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	Recorded          bool         `json:"recorded"` // attempt saved for the current run
}

type (
	// SessionStore keeps sessions between requests.
	SessionStore interface {
		Create(ctx context.Context, s Session) error
		// Get returns ErrSessionNotFound for unknown or expired sessions.
		Get(ctx context.Context, id string) (Session, error)
		// Update applies fn atomically and stores the result; nothing is stored when fn fails.
		Update(ctx context.Context, id string, fn func(*Session) error) (Session, error)
		Delete(ctx context.Context, id string) error
	}

	// AttemptRecorder saves the completed sessions of known students.
	AttemptRecorder interface {
		RecordAttempt(ctx context.Context, a classroom.QuizAttempt) (classroom.QuizAttempt, error)
	}
)
