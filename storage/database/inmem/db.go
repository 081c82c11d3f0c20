package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/quizdesk/core/classroom"
)

type (
	// DB mirrors the classroom schema in memory. Used by tests and the no-database dev mode.
	DB struct {
		sync.RWMutex
		students    map[string]*classroom.Student
		assignments map[string]*classroom.Assignment
		submissions map[string]*submissionRow
		attempts    map[string]*classroom.QuizAttempt
	}

	// submissionRow holds the stored columns; joined fields are resolved on read.
	submissionRow struct {
		ID           string
		AssignmentID string
		StudentID    string
		FileURL      string
		Grade        *float64
		Feedback     string
		Status       classroom.Status
		SubmittedAt  *time.Time
		GradedAt     *time.Time
	}
)

func Open() (*DB, error) {
	db := &DB{
		students:    make(map[string]*classroom.Student),
		assignments: make(map[string]*classroom.Assignment),
		submissions: make(map[string]*submissionRow),
		attempts:    make(map[string]*classroom.QuizAttempt),
	}
	return db, nil
}

// Reset drops every row.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.students = make(map[string]*classroom.Student)
	db.assignments = make(map[string]*classroom.Assignment)
	db.submissions = make(map[string]*submissionRow)
	db.attempts = make(map[string]*classroom.QuizAttempt)
}
