package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"

	// derived from the due date
	StatusOverdue Status = "overdue" // pending past due
	StatusLate    Status = "late"    // submitted after due
)

var Statuses = []Status{StatusPending, StatusSubmitted, StatusGraded, StatusOverdue, StatusLate}

type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ClassName  string    `json:"class_name"`
	GradeLevel int       `json:"grade_level"`
	TeacherID  string    `json:"teacher_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type Assignment struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Subject     catalog.Subject `json:"subject"`
	Description string          `json:"description"`
	DueDate     time.Time       `json:"due_date"` // UTC
	TeacherID   string          `json:"teacher_id"`
	ClassName   string          `json:"class_name"` // set when assigned to a whole class
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

type Submission struct {
	ID              string          `json:"submission_id"`
	AssignmentID    string          `json:"assignment_id"`
	AssignmentTitle string          `json:"assignment_title"`
	Subject         catalog.Subject `json:"subject"`
	DueDate         time.Time       `json:"due_date"`
	StudentID       string          `json:"student_id"`
	StudentName     string          `json:"student_name"`
	FileURL         string          `json:"file_url"`
	Grade           *float64        `json:"grade"`
	Feedback        string          `json:"feedback"`
	Status          Status          `json:"status"`
	SubmittedAt     *time.Time      `json:"submitted_at"`
	GradedAt        *time.Time      `json:"graded_at"`
}

// EffectiveStatus returns the stored status, refined with the due date.
func (s Submission) EffectiveStatus(now time.Time) Status {
	switch s.Status {
	case StatusGraded:
		return StatusGraded
	case StatusSubmitted:
		if s.SubmittedAt != nil && s.SubmittedAt.After(s.DueDate) {
			return StatusLate
		}
		return StatusSubmitted
	}
	if now.After(s.DueDate) {
		return StatusOverdue
	}
	return StatusPending
}

// QuizAttempt is a completed quiz session of a known student.
type QuizAttempt struct {
	ID          string          `json:"id"`
	BankID      string          `json:"bank_id"`
	BankTitle   string          `json:"bank_title"`
	Subject     catalog.Subject `json:"subject"`
	StudentID   string          `json:"student_id"`
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Percentage  int             `json:"percentage"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// NewAssignment contains information needed to assign work to a list of students.
type NewAssignment struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Subject     catalog.Subject `json:"subject" validate:"required,subject"`
	Description string          `json:"description" validate:"max=5000"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	StudentIDs  []string        `json:"student_ids" validate:"required,min=1,dive,uuid"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Subject = catalog.Subject(core.CleanString(string(na.Subject), true /* lower */))
	na.Description = core.CleanString(na.Description)
	na.DueDate = na.DueDate.UTC()
	return validate.Struct(na)
}

// NewClassAssignment contains information needed to assign work to every student of a class.
type NewClassAssignment struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Subject     catalog.Subject `json:"subject" validate:"required,subject"`
	Description string          `json:"description" validate:"max=5000"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	ClassName   string          `json:"class_name" validate:"notblank,max=100"`
}

func (nca *NewClassAssignment) Validate(validate *validator.Validate) error {
	nca.Title = core.CleanString(nca.Title)
	nca.Subject = catalog.Subject(core.CleanString(string(nca.Subject), true /* lower */))
	nca.Description = core.CleanString(nca.Description)
	nca.ClassName = core.CleanString(nca.ClassName)
	nca.DueDate = nca.DueDate.UTC()
	return validate.Struct(nca)
}

// UpdateAssignment holds the fields to change; nil fields are left as is.
type UpdateAssignment struct {
	Title       *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Subject     *catalog.Subject `json:"subject" validate:"omitempty,subject"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time       `json:"due_date"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		ua.Title = &title
	}
	if ua.Subject != nil {
		sub := catalog.Subject(core.CleanString(string(*ua.Subject), true /* lower */))
		ua.Subject = &sub
	}
	if ua.Description != nil {
		desc := core.CleanString(*ua.Description)
		ua.Description = &desc
	}
	if ua.DueDate != nil {
		due := ua.DueDate.UTC()
		ua.DueDate = &due
	}
	return validate.Struct(ua)
}

type GradeSubmission struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0,lte=100"`
	Feedback string   `json:"feedback" validate:"max=5000"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

type SubmitWork struct {
	FileURL string `json:"file_url" validate:"required,url"`
}

func (sw *SubmitWork) Validate(validate *validator.Validate) error {
	sw.FileURL = core.CleanString(sw.FileURL)
	return validate.Struct(sw)
}

type NewStudent struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	Email      string `json:"email" validate:"required,email"`
	ClassName  string `json:"class_name" validate:"notblank,max=100"`
	GradeLevel int    `json:"grade_level" validate:"gradelevel"`
	TeacherID  string `json:"teacher_id" validate:"required,uuid"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.TeacherID = core.CleanString(ns.TeacherID, true /* lower */)
	return validate.Struct(ns)
}

type AssignmentFilter struct {
	Search    string          `query:"search"`
	Subject   catalog.Subject `query:"subject"`
	ClassName string          `query:"class_name"`
	DueFrom   time.Time       `query:"due_from"`
	DueTo     time.Time       `query:"due_to"`
}

func (af *AssignmentFilter) Clean() {
	af.Search = core.CleanString(af.Search)
	af.Subject = catalog.Subject(core.CleanString(string(af.Subject), true /* lower */))
	af.ClassName = core.CleanString(af.ClassName)
}

type SubmissionFilter struct {
	AssignmentID string `query:"assignment_id"`
	StudentID    string `query:"student_id"`
	Status       Status `query:"status"`
}

func (sf *SubmissionFilter) Clean() {
	sf.AssignmentID = core.CleanString(sf.AssignmentID, true /* lower */)
	sf.StudentID = core.CleanString(sf.StudentID, true /* lower */)
	sf.Status = Status(core.CleanString(string(sf.Status), true /* lower */))
}

func (sf SubmissionFilter) match(s Submission, now time.Time) bool {
	if sf.AssignmentID != "" && s.AssignmentID != sf.AssignmentID {
		return false
	}
	if sf.StudentID != "" && s.StudentID != sf.StudentID {
		return false
	}
	if sf.Status != "" && s.EffectiveStatus(now) != sf.Status {
		return false
	}
	return true
}
