package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
)

func CreateStudent(
	t *testing.T,
	repo classroom.Repository,
	teacherID, name, email, className string,
	gradeLevel int,
	createdAt ...time.Time,
) classroom.Student {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	stu, err := repo.CreateStudent(context.Background(), classroom.Student{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		ClassName:  className,
		GradeLevel: gradeLevel,
		TeacherID:  teacherID,
		CreatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return stu
}

func CreateAssignment(
	t *testing.T,
	repo classroom.Repository,
	teacherID, title string,
	subject catalog.Subject,
	dueDate time.Time,
	students ...classroom.Student,
) classroom.Assignment {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	a, err := repo.CreateAssignment(context.Background(), classroom.Assignment{
		ID:        uuid.NewString(),
		Title:     title,
		Subject:   subject,
		DueDate:   dueDate.UTC(),
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	}, ids)
	if err != nil {
		t.Fatalf("createAssignment() failed: %v", err)
	}
	return a
}

// SubmissionOf returns the submission of student for assignment.
func SubmissionOf(t *testing.T, repo classroom.Repository, teacherID, assignmentID, studentID string) classroom.Submission {
	subs, err := repo.GetTeacherSubmissions(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("submissionOf() failed: %v", err)
	}
	for _, s := range subs {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s
		}
	}
	t.Fatalf("submissionOf(): no submission of %s for %s", studentID, assignmentID)
	return classroom.Submission{}
}

// SetSubmission stores the status, timestamps and grade of a submission as is.
func SetSubmission(t *testing.T, repo classroom.Repository, sub classroom.Submission) classroom.Submission {
	sub, err := repo.UpdateSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("setSubmission() failed: %v", err)
	}
	return sub
}

func RecordAttempt(t *testing.T, repo classroom.Repository, studentID, bankID string, score, total int, completedAt time.Time) classroom.QuizAttempt {
	pct := 0
	if total > 0 {
		pct = score * 100 / total
	}
	a, err := repo.RecordAttempt(context.Background(), classroom.QuizAttempt{
		ID:          uuid.NewString(),
		BankID:      bankID,
		BankTitle:   bankID,
		StudentID:   studentID,
		Score:       score,
		Total:       total,
		Percentage:  pct,
		StartedAt:   completedAt.Add(-5 * time.Minute).UTC(),
		CompletedAt: completedAt.UTC(),
	})
	if err != nil {
		t.Fatalf("recordAttempt() failed: %v", err)
	}
	return a
}
