// Package classroom manages the teacher side of the platform: students, assignments, submissions and quiz attempts.
package classroom

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
)

var (
	// errors
	ErrNotFound        = errors.New("not found")
	ErrNoStudents      = errors.New("no students to assign")
	ErrUnknownStudents = errors.New("unknown students")
	ErrEmailExists     = errors.New("a student with this email already exists")
	ErrAlreadyGraded   = errors.New("submission already graded")

	// NowFunc is mocked in tests.
	NowFunc = func() time.Time { return time.Now().UTC() }

	// AssignmentOrderings are the fields assignments can be ordered by.
	AssignmentOrderings = []string{"title", "subject", "due_date", "created_at"}
)

const assignmentCreatedTmpl = "assignment_created"

type (
	// Repository is the data access of the classroom.
	// GetTeacherStudents, GetTeacherSubmissions, CreateAssignment and CreateAssignmentByClass
	// map to the stored procedures of the classroom database.
	Repository interface {
		GetTeacherStudents(ctx context.Context, teacherID string) ([]Student, error)
		GetTeacherSubmissions(ctx context.Context, teacherID string) ([]Submission, error)
		// CreateAssignment also creates one pending submission per student.
		CreateAssignment(ctx context.Context, a Assignment, studentIDs []string) (Assignment, error)
		// CreateAssignmentByClass assigns to every student of the teacher's class, returning ErrNoStudents when it is empty.
		CreateAssignmentByClass(ctx context.Context, a Assignment) (Assignment, error)

		// QueryAssignments applies AND operation on the filter fields.
		// AssignmentFilter.Search does a case-insensitive match on Assignment.Title or Assignment.Description.
		QueryAssignments(ctx context.Context, teacherID string, filter AssignmentFilter, ordering ...core.DBOrdering) ([]Assignment, error)
		GetAssignment(ctx context.Context, teacherID, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// DeleteAssignments returns the number of assignments deleted; their submissions go with them.
		DeleteAssignments(ctx context.Context, teacherID string, ids ...string) (int, error)

		GetSubmission(ctx context.Context, id string) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		RecordAttempt(ctx context.Context, a QuizAttempt) (QuizAttempt, error)
		// QueryAttempts returns the attempts of the teacher's students, optionally only those of studentID.
		QueryAttempts(ctx context.Context, teacherID, studentID string) ([]QuizAttempt, error)
	}

	Service interface {
		Students(ctx context.Context, teacherID string) ([]Student, error)
		AddStudent(ctx context.Context, ns NewStudent) (Student, error)

		Submissions(ctx context.Context, teacherID string, filter SubmissionFilter) ([]Submission, error)
		Grade(ctx context.Context, teacherID, submissionID string, gs GradeSubmission) (Submission, error)
		Submit(ctx context.Context, studentID, submissionID string, sw SubmitWork) (Submission, error)

		CreateAssignment(ctx context.Context, teacherID string, na NewAssignment) (Assignment, error)
		CreateClassAssignment(ctx context.Context, teacherID string, nca NewClassAssignment) (Assignment, error)
		Assignments(ctx context.Context, teacherID string, filter AssignmentFilter, ordering ...core.DBOrdering) ([]Assignment, error)
		GetAssignment(ctx context.Context, teacherID, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, teacherID, id string, ua UpdateAssignment) (Assignment, error)
		DeleteAssignments(ctx context.Context, teacherID string, ids ...string) error

		RecordAttempt(ctx context.Context, a QuizAttempt) (QuizAttempt, error)
		Attempts(ctx context.Context, teacherID, studentID string) ([]QuizAttempt, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *service) Students(ctx context.Context, teacherID string) ([]Student, error) {
	return svc.repo.GetTeacherStudents(ctx, teacherID)
}

func (svc *service) AddStudent(ctx context.Context, ns NewStudent) (Student, error) {
	stu, err := svc.repo.CreateStudent(ctx, Student{
		ID:         uuid.NewString(),
		Name:       ns.Name,
		Email:      ns.Email,
		ClassName:  ns.ClassName,
		GradeLevel: ns.GradeLevel,
		TeacherID:  ns.TeacherID,
		CreatedAt:  NowFunc(),
	})
	if errors.Cause(err) == ErrEmailExists {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return stu, err
}

func (svc *service) Submissions(ctx context.Context, teacherID string, filter SubmissionFilter) ([]Submission, error) {
	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	now := NowFunc()
	res := make([]Submission, 0, len(subs))
	for _, s := range subs {
		if filter.match(s, now) {
			res = append(res, s)
		}
	}
	return res, nil
}

// Grade grades a submission of one of the teacher's students. Grades may be revised.
func (svc *service) Grade(ctx context.Context, teacherID, submissionID string, gs GradeSubmission) (Submission, error) {
	sub, err := svc.teacherSubmission(ctx, teacherID, submissionID)
	if err != nil {
		return Submission{}, err
	}
	now := NowFunc()
	grade := *gs.Grade
	sub.Grade = &grade
	sub.Feedback = gs.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = &now
	return svc.repo.UpdateSubmission(ctx, sub)
}

func (svc *service) teacherSubmission(ctx context.Context, teacherID, submissionID string) (Submission, error) {
	subs, err := svc.repo.GetTeacherSubmissions(ctx, teacherID)
	if err != nil {
		return Submission{}, err
	}
	for _, s := range subs {
		if s.ID == submissionID {
			return s, nil
		}
	}
	return Submission{}, ErrNotFound
}

// Submit hands in the work of a student. Graded work can no longer be replaced.
func (svc *service) Submit(ctx context.Context, studentID, submissionID string, sw SubmitWork) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.StudentID != studentID {
		return Submission{}, ErrNotFound
	}
	if sub.Status == StatusGraded {
		return Submission{}, ErrAlreadyGraded
	}
	now := NowFunc()
	sub.FileURL = sw.FileURL
	sub.Status = StatusSubmitted
	sub.SubmittedAt = &now
	return svc.repo.UpdateSubmission(ctx, sub)
}

func (svc *service) CreateAssignment(ctx context.Context, teacherID string, na NewAssignment) (Assignment, error) {
	students, err := svc.repo.GetTeacherStudents(ctx, teacherID)
	if err != nil {
		return Assignment{}, err
	}
	byID := make(map[string]Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	ids := dedupe(na.StudentIDs)
	assigned := make([]Student, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		assigned = append(assigned, s)
	}
	if len(unknown) > 0 {
		msg := fmt.Sprintf("%v: %s", ErrUnknownStudents, strings.Join(unknown, ", "))
		return Assignment{}, core.NewValidationError(ErrUnknownStudents, core.FieldError{Field: "student_ids", Error: msg})
	}

	asgmt, err := svc.repo.CreateAssignment(ctx, Assignment{
		ID:          uuid.NewString(),
		Title:       na.Title,
		Subject:     na.Subject,
		Description: na.Description,
		DueDate:     na.DueDate,
		TeacherID:   teacherID,
		CreatedAt:   NowFunc(),
	}, ids)
	if err != nil {
		return Assignment{}, err
	}
	svc.notify(asgmt, assigned)
	return asgmt, nil
}

func (svc *service) CreateClassAssignment(ctx context.Context, teacherID string, nca NewClassAssignment) (Assignment, error) {
	asgmt, err := svc.repo.CreateAssignmentByClass(ctx, Assignment{
		ID:          uuid.NewString(),
		Title:       nca.Title,
		Subject:     nca.Subject,
		Description: nca.Description,
		DueDate:     nca.DueDate,
		TeacherID:   teacherID,
		ClassName:   nca.ClassName,
		CreatedAt:   NowFunc(),
	})
	if err != nil {
		if errors.Cause(err) == ErrNoStudents {
			return Assignment{}, core.NewValidationError(err, core.FieldError{Field: "class_name", Error: ErrNoStudents.Error()})
		}
		return Assignment{}, err
	}

	students, err := svc.repo.GetTeacherStudents(ctx, teacherID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("loading students to notify: %v", err), err)
		return asgmt, nil
	}
	assigned := make([]Student, 0, len(students))
	for _, s := range students {
		if s.ClassName == asgmt.ClassName {
			assigned = append(assigned, s)
		}
	}
	svc.notify(asgmt, assigned)
	return asgmt, nil
}

func (svc *service) Assignments(ctx context.Context, teacherID string, filter AssignmentFilter, ordering ...core.DBOrdering) ([]Assignment, error) {
	for _, ord := range ordering {
		if !validOrdering(ord.Field) {
			err := errors.Errorf("cannot order by %q", ord.Field)
			return nil, core.NewValidationError(err, core.FieldError{Field: "ordering", Error: err.Error()})
		}
	}
	return svc.repo.QueryAssignments(ctx, teacherID, filter, ordering...)
}

func (svc *service) GetAssignment(ctx context.Context, teacherID, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, teacherID, id)
}

func (svc *service) UpdateAssignment(ctx context.Context, teacherID, id string, ua UpdateAssignment) (Assignment, error) {
	asgmt, err := svc.repo.GetAssignment(ctx, teacherID, id)
	if err != nil {
		return Assignment{}, err
	}
	if ua.Title != nil {
		asgmt.Title = *ua.Title
	}
	if ua.Subject != nil {
		asgmt.Subject = *ua.Subject
	}
	if ua.Description != nil {
		asgmt.Description = *ua.Description
	}
	if ua.DueDate != nil {
		asgmt.DueDate = *ua.DueDate
	}
	return svc.repo.UpdateAssignment(ctx, asgmt)
}

func (svc *service) DeleteAssignments(ctx context.Context, teacherID string, ids ...string) error {
	n, err := svc.repo.DeleteAssignments(ctx, teacherID, dedupe(ids)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *service) RecordAttempt(ctx context.Context, a QuizAttempt) (QuizAttempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = NowFunc()
	}
	return svc.repo.RecordAttempt(ctx, a)
}

func (svc *service) Attempts(ctx context.Context, teacherID, studentID string) ([]QuizAttempt, error) {
	return svc.repo.QueryAttempts(ctx, teacherID, studentID)
}

type assignmentMailData struct {
	StudentName  string
	Title        string
	Subject      string
	Description  string
	DueDate      string
	AssignmentID string
}

func (svc *service) notify(asgmt Assignment, students []Student) {
	if len(students) == 0 {
		return
	}
	messages := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: s.Name, Address: s.Email}},
			Subject:      "New assignment: " + asgmt.Title,
			TemplateName: assignmentCreatedTmpl,
			TemplateData: assignmentMailData{
				StudentName:  s.Name,
				Title:        asgmt.Title,
				Subject:      subjectLabel(asgmt.Subject),
				Description:  asgmt.Description,
				DueDate:      asgmt.DueDate.Format("Mon, 02 Jan 2006 15:04 MST"),
				AssignmentID: asgmt.ID,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)
}

func subjectLabel(s catalog.Subject) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func validOrdering(field string) bool {
	for _, f := range AssignmentOrderings {
		if f == field {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			res = append(res, id)
		}
	}
	sort.Strings(res)
	return res
}
