package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
)

// error codes raised by the classroom functions (see fs/migrations)
const (
	codeUnknownStudents pq.ErrorCode = "QD001"
	codeNoStudents      pq.ErrorCode = "QD002"
	codeUniqueViolation pq.ErrorCode = "23505"
	codeFKViolation     pq.ErrorCode = "23503"
)

type (
	studentRow struct {
		ID         string    `db:"id"`
		Name       string    `db:"name"`
		Email      string    `db:"email"`
		ClassName  string    `db:"class_name"`
		GradeLevel int       `db:"grade_level"`
		TeacherID  string    `db:"teacher_id"`
		CreatedAt  time.Time `db:"created_at"`
	}

	assignmentRow struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Subject     string    `db:"subject"`
		Description string    `db:"description"`
		DueDate     time.Time `db:"due_date"`
		TeacherID   string    `db:"teacher_id"`
		ClassName   string    `db:"class_name"`
		CreatedAt   time.Time `db:"created_at"`
	}

	submissionRow struct {
		ID              string       `db:"submission_id"`
		AssignmentID    string       `db:"assignment_id"`
		AssignmentTitle string       `db:"assignment_title"`
		Subject         string       `db:"subject"`
		DueDate         time.Time    `db:"due_date"`
		StudentID       string       `db:"student_id"`
		StudentName     string       `db:"student_name"`
		FileURL         string       `db:"file_url"`
		Grade           null.Float64 `db:"grade"`
		Feedback        string       `db:"feedback"`
		Status          string       `db:"status"`
		SubmittedAt     null.Time    `db:"submitted_at"`
		GradedAt        null.Time    `db:"graded_at"`
	}

	attemptRow struct {
		ID          string    `db:"id"`
		BankID      string    `db:"bank_id"`
		BankTitle   string    `db:"bank_title"`
		Subject     string    `db:"subject"`
		StudentID   string    `db:"student_id"`
		Score       int       `db:"score"`
		Total       int       `db:"total"`
		Percentage  int       `db:"percentage"`
		StartedAt   time.Time `db:"started_at"`
		CompletedAt time.Time `db:"completed_at"`
	}
)

func (r studentRow) unboil() classroom.Student {
	return classroom.Student{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		ClassName:  r.ClassName,
		GradeLevel: r.GradeLevel,
		TeacherID:  r.TeacherID,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func (r assignmentRow) unboil() classroom.Assignment {
	return classroom.Assignment{
		ID:          r.ID,
		Title:       r.Title,
		Subject:     catalog.Subject(r.Subject),
		Description: r.Description,
		DueDate:     r.DueDate.UTC(),
		TeacherID:   r.TeacherID,
		ClassName:   r.ClassName,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func (r submissionRow) unboil() classroom.Submission {
	return classroom.Submission{
		ID:              r.ID,
		AssignmentID:    r.AssignmentID,
		AssignmentTitle: r.AssignmentTitle,
		Subject:         catalog.Subject(r.Subject),
		DueDate:         r.DueDate.UTC(),
		StudentID:       r.StudentID,
		StudentName:     r.StudentName,
		FileURL:         r.FileURL,
		Grade:           r.Grade.Ptr(),
		Feedback:        r.Feedback,
		Status:          classroom.Status(r.Status),
		SubmittedAt:     utcPtr(r.SubmittedAt),
		GradedAt:        utcPtr(r.GradedAt),
	}
}

func (r attemptRow) unboil() classroom.QuizAttempt {
	return classroom.QuizAttempt{
		ID:          r.ID,
		BankID:      r.BankID,
		BankTitle:   r.BankTitle,
		Subject:     catalog.Subject(r.Subject),
		StudentID:   r.StudentID,
		Score:       r.Score,
		Total:       r.Total,
		Percentage:  r.Percentage,
		StartedAt:   r.StartedAt.UTC(),
		CompletedAt: r.CompletedAt.UTC(),
	}
}

type classroomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) classroom.Repository {
	return &classroomRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to classroom.ErrNotFound
func (repo *classroomRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return classroom.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo *classroomRepository) GetTeacherStudents(ctx context.Context, teacherID string) ([]classroom.Student, error) {
	students := make([]classroom.Student, 0)
	if !isUUID(teacherID) {
		return students, nil
	}

	var rows []studentRow
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT * FROM get_teacher_students($1)`, teacherID); err != nil {
		return nil, errors.Wrap(err, "selecting teacher students")
	}
	for _, r := range rows {
		students = append(students, r.unboil())
	}
	return students, nil
}

func (repo *classroomRepository) GetTeacherSubmissions(ctx context.Context, teacherID string) ([]classroom.Submission, error) {
	subs := make([]classroom.Submission, 0)
	if !isUUID(teacherID) {
		return subs, nil
	}

	var rows []submissionRow
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT * FROM get_teacher_submissions($1)`, teacherID); err != nil {
		return nil, errors.Wrap(err, "selecting teacher submissions")
	}
	for _, r := range rows {
		subs = append(subs, r.unboil())
	}
	return subs, nil
}

func (repo *classroomRepository) CreateAssignment(ctx context.Context, a classroom.Assignment, studentIDs []string) (classroom.Assignment, error) {
	for _, id := range studentIDs {
		if !isUUID(id) {
			return classroom.Assignment{}, classroom.ErrUnknownStudents
		}
	}

	var row assignmentRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT * FROM create_assignment($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Title, string(a.Subject), a.Description, a.DueDate.UTC(), a.TeacherID, a.ClassName, a.CreatedAt.UTC(),
		pq.Array(studentIDs))
	if err != nil {
		if pqCode(err) == codeUnknownStudents {
			return classroom.Assignment{}, classroom.ErrUnknownStudents
		}
		return classroom.Assignment{}, errors.Wrap(err, "creating assignment")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) CreateAssignmentByClass(ctx context.Context, a classroom.Assignment) (classroom.Assignment, error) {
	var row assignmentRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT * FROM create_assignment_by_class($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Title, string(a.Subject), a.Description, a.DueDate.UTC(), a.TeacherID, a.ClassName, a.CreatedAt.UTC())
	if err != nil {
		if pqCode(err) == codeNoStudents {
			return classroom.Assignment{}, classroom.ErrNoStudents
		}
		return classroom.Assignment{}, errors.Wrap(err, "creating class assignment")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) QueryAssignments(
	ctx context.Context,
	teacherID string,
	filter classroom.AssignmentFilter,
	ordering ...core.DBOrdering,
) ([]classroom.Assignment, error) {
	res := make([]classroom.Assignment, 0)
	if !isUUID(teacherID) {
		return res, nil
	}

	where := []string{"teacher_id = $1"}
	args := []interface{}{teacherID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// assignments with Title or Description matching the search keyword
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.Subject != "" {
		where = append(where, "subject = "+arg(string(filter.Subject)))
	}
	if filter.ClassName != "" {
		where = append(where, "class_name = "+arg(filter.ClassName))
	}
	if !filter.DueFrom.IsZero() {
		where = append(where, "due_date >= "+arg(filter.DueFrom.UTC()))
	}
	if !filter.DueTo.IsZero() {
		where = append(where, "due_date <= "+arg(filter.DueTo.UTC()))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_date"}}
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "id ASC")

	q := fmt.Sprintf(`SELECT * FROM assignments WHERE %s ORDER BY %s`,
		strings.Join(where, " AND "), strings.Join(orderList, ", "))

	var rows []assignmentRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	for _, r := range rows {
		res = append(res, r.unboil())
	}
	return res, nil
}

func (repo *classroomRepository) GetAssignment(ctx context.Context, teacherID, id string) (classroom.Assignment, error) {
	if !isUUID(id) || !isUUID(teacherID) {
		return classroom.Assignment{}, classroom.ErrNotFound
	}

	var row assignmentRow
	err := repo.exec.GetContext(ctx, &row, `SELECT * FROM assignments WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return classroom.Assignment{}, repo.trapNoRowsErr(err, "finding assignment")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) UpdateAssignment(ctx context.Context, a classroom.Assignment) (classroom.Assignment, error) {
	if !isUUID(a.ID) || !isUUID(a.TeacherID) {
		return classroom.Assignment{}, classroom.ErrNotFound
	}

	var row assignmentRow
	err := repo.exec.GetContext(ctx, &row, `
		UPDATE assignments SET title = $3, subject = $4, description = $5, due_date = $6
		WHERE id = $1 AND teacher_id = $2
		RETURNING *`,
		a.ID, a.TeacherID, a.Title, string(a.Subject), a.Description, a.DueDate.UTC())
	if err != nil {
		return classroom.Assignment{}, repo.trapNoRowsErr(err, "updating assignment")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) DeleteAssignments(ctx context.Context, teacherID string, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 || !isUUID(teacherID) {
		return 0, nil
	}

	res, err := repo.exec.ExecContext(ctx,
		`DELETE FROM assignments WHERE teacher_id = $1 AND id = ANY($2)`, teacherID, pq.Array(valid))
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	return int(n), nil
}

const selectSubmission = `
	SELECT s.id AS submission_id, a.id AS assignment_id, a.title AS assignment_title, a.subject, a.due_date,
	       st.id AS student_id, st.name AS student_name,
	       s.file_url, s.grade, s.feedback, s.status, s.submitted_at, s.graded_at
	FROM submissions s
	JOIN assignments a ON a.id = s.assignment_id
	JOIN students st ON st.id = s.student_id
	WHERE s.id = $1`

func (repo *classroomRepository) GetSubmission(ctx context.Context, id string) (classroom.Submission, error) {
	if !isUUID(id) {
		return classroom.Submission{}, classroom.ErrNotFound
	}

	var row submissionRow
	if err := repo.exec.GetContext(ctx, &row, selectSubmission, id); err != nil {
		return classroom.Submission{}, repo.trapNoRowsErr(err, "finding submission")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) UpdateSubmission(ctx context.Context, s classroom.Submission) (classroom.Submission, error) {
	if !isUUID(s.ID) {
		return classroom.Submission{}, classroom.ErrNotFound
	}

	res, err := repo.exec.ExecContext(ctx, `
		UPDATE submissions
		SET file_url = $2, grade = $3, feedback = $4, status = $5, submitted_at = $6, graded_at = $7
		WHERE id = $1`,
		s.ID, s.FileURL, null.Float64FromPtr(s.Grade), s.Feedback, string(s.Status),
		null.TimeFromPtr(s.SubmittedAt), null.TimeFromPtr(s.GradedAt))
	if err != nil {
		return classroom.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, err := res.RowsAffected(); err != nil {
		return classroom.Submission{}, errors.Wrap(err, "updating submission")
	} else if n == 0 {
		return classroom.Submission{}, classroom.ErrNotFound
	}
	return repo.GetSubmission(ctx, s.ID)
}

func (repo *classroomRepository) CreateStudent(ctx context.Context, s classroom.Student) (classroom.Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	var row studentRow
	err := repo.exec.GetContext(ctx, &row, `
		INSERT INTO students (id, name, email, class_name, grade_level, teacher_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		s.ID, s.Name, s.Email, s.ClassName, s.GradeLevel, s.TeacherID, s.CreatedAt.UTC())
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return classroom.Student{}, classroom.ErrEmailExists
		}
		return classroom.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) RecordAttempt(ctx context.Context, a classroom.QuizAttempt) (classroom.QuizAttempt, error) {
	if !isUUID(a.StudentID) {
		return classroom.QuizAttempt{}, classroom.ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	var row attemptRow
	err := repo.exec.GetContext(ctx, &row, `
		INSERT INTO quiz_attempts
			(id, bank_id, bank_title, subject, student_id, score, total, percentage, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *`,
		a.ID, a.BankID, a.BankTitle, string(a.Subject), a.StudentID, a.Score, a.Total, a.Percentage,
		a.StartedAt.UTC(), a.CompletedAt.UTC())
	if err != nil {
		if pqCode(err) == codeFKViolation {
			return classroom.QuizAttempt{}, classroom.ErrNotFound
		}
		return classroom.QuizAttempt{}, errors.Wrap(err, "inserting quiz attempt")
	}
	return row.unboil(), nil
}

func (repo *classroomRepository) QueryAttempts(ctx context.Context, teacherID, studentID string) ([]classroom.QuizAttempt, error) {
	res := make([]classroom.QuizAttempt, 0)
	if !isUUID(teacherID) || (studentID != "" && !isUUID(studentID)) {
		return res, nil
	}

	q := `SELECT qa.* FROM quiz_attempts qa JOIN students st ON st.id = qa.student_id WHERE st.teacher_id = $1`
	args := []interface{}{teacherID}
	if studentID != "" {
		q += ` AND qa.student_id = $2`
		args = append(args, studentID)
	}
	q += ` ORDER BY qa.completed_at`

	var rows []attemptRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying quiz attempts")
	}
	for _, r := range rows {
		res = append(res, r.unboil())
	}
	return res, nil
}
