package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo *classroomRepository) teacherStudents(teacherID string) []classroom.Student {
	students := make([]classroom.Student, 0)
	for _, s := range repo.db.students {
		if s.TeacherID == teacherID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students
}

func (repo *classroomRepository) submission(row *submissionRow) classroom.Submission {
	sub := classroom.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		StudentID:    row.StudentID,
		FileURL:      row.FileURL,
		Grade:        row.Grade,
		Feedback:     row.Feedback,
		Status:       row.Status,
		SubmittedAt:  row.SubmittedAt,
		GradedAt:     row.GradedAt,
	}
	if a, ok := repo.db.assignments[row.AssignmentID]; ok {
		sub.AssignmentTitle = a.Title
		sub.Subject = a.Subject
		sub.DueDate = a.DueDate
	}
	if s, ok := repo.db.students[row.StudentID]; ok {
		sub.StudentName = s.Name
	}
	return sub
}

func (repo *classroomRepository) GetTeacherStudents(_ context.Context, teacherID string) ([]classroom.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.teacherStudents(teacherID), nil
}

func (repo *classroomRepository) GetTeacherSubmissions(_ context.Context, teacherID string) ([]classroom.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]classroom.Submission, 0)
	for _, row := range repo.db.submissions {
		if a, ok := repo.db.assignments[row.AssignmentID]; ok && a.TeacherID == teacherID {
			subs = append(subs, repo.submission(row))
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].DueDate.Equal(subs[j].DueDate) {
			return subs[i].DueDate.After(subs[j].DueDate)
		}
		return subs[i].StudentName < subs[j].StudentName
	})
	return subs, nil
}

func (repo *classroomRepository) insertAssignment(a classroom.Assignment, studentIDs []string) classroom.Assignment {
	a.DueDate = a.DueDate.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	repo.db.assignments[a.ID] = &a
	for _, sid := range studentIDs {
		id := uuid.NewString()
		repo.db.submissions[id] = &submissionRow{ID: id, AssignmentID: a.ID, StudentID: sid, Status: classroom.StatusPending}
	}
	return a
}

func (repo *classroomRepository) CreateAssignment(_ context.Context, a classroom.Assignment, studentIDs []string) (classroom.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, sid := range studentIDs {
		if s, ok := repo.db.students[sid]; !ok || s.TeacherID != a.TeacherID {
			return classroom.Assignment{}, classroom.ErrUnknownStudents
		}
	}
	return repo.insertAssignment(a, studentIDs), nil
}

func (repo *classroomRepository) CreateAssignmentByClass(_ context.Context, a classroom.Assignment) (classroom.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var ids []string
	for _, s := range repo.teacherStudents(a.TeacherID) {
		if s.ClassName == a.ClassName {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return classroom.Assignment{}, classroom.ErrNoStudents
	}
	return repo.insertAssignment(a, ids), nil
}

func (repo *classroomRepository) QueryAssignments(_ context.Context, teacherID string, filter classroom.AssignmentFilter, ordering ...core.DBOrdering) ([]classroom.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	res := make([]classroom.Assignment, 0)
	for _, a := range repo.db.assignments {
		switch {
		case a.TeacherID != teacherID,
			filter.Subject != "" && a.Subject != filter.Subject,
			filter.ClassName != "" && a.ClassName != filter.ClassName,
			!filter.DueFrom.IsZero() && a.DueDate.Before(filter.DueFrom),
			!filter.DueTo.IsZero() && a.DueDate.After(filter.DueTo),
			search != "" && !strings.Contains(strings.ToLower(a.Title), search) &&
				!strings.Contains(strings.ToLower(a.Description), search):
			continue
		}
		res = append(res, *a)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "due_date"}}
	}
	sort.SliceStable(res, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareAssignments(res[i], res[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func compareAssignments(a, b classroom.Assignment, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "subject":
		return strings.Compare(string(a.Subject), string(b.Subject))
	case "created_at":
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	default:
		return compareTimes(a.DueDate.UnixNano(), b.DueDate.UnixNano())
	}
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *classroomRepository) GetAssignment(_ context.Context, teacherID, id string) (classroom.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok && a.TeacherID == teacherID {
		return *a, nil
	}
	return classroom.Assignment{}, classroom.ErrNotFound
}

func (repo *classroomRepository) UpdateAssignment(_ context.Context, a classroom.Assignment) (classroom.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.assignments[a.ID]
	if !ok || orig.TeacherID != a.TeacherID {
		return classroom.Assignment{}, classroom.ErrNotFound
	}
	orig.Title = a.Title
	orig.Subject = a.Subject
	orig.Description = a.Description
	orig.DueDate = a.DueDate.UTC()
	return *orig, nil
}

func (repo *classroomRepository) DeleteAssignments(_ context.Context, teacherID string, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if a, ok := repo.db.assignments[id]; ok && a.TeacherID == teacherID {
			delete(repo.db.assignments, id)
			n++
			for sid, row := range repo.db.submissions {
				if row.AssignmentID == id {
					delete(repo.db.submissions, sid)
				}
			}
		}
	}
	return n, nil
}

func (repo *classroomRepository) GetSubmission(_ context.Context, id string) (classroom.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if row, ok := repo.db.submissions[id]; ok {
		return repo.submission(row), nil
	}
	return classroom.Submission{}, classroom.ErrNotFound
}

func (repo *classroomRepository) UpdateSubmission(_ context.Context, s classroom.Submission) (classroom.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	row, ok := repo.db.submissions[s.ID]
	if !ok {
		return classroom.Submission{}, classroom.ErrNotFound
	}
	row.FileURL = s.FileURL
	row.Grade = s.Grade
	row.Feedback = s.Feedback
	row.Status = s.Status
	row.SubmittedAt = s.SubmittedAt
	row.GradedAt = s.GradedAt
	return repo.submission(row), nil
}

func (repo *classroomRepository) CreateStudent(_ context.Context, s classroom.Student) (classroom.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.students {
		if other.Email == s.Email {
			return classroom.Student{}, classroom.ErrEmailExists
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = s.CreatedAt.UTC()
	repo.db.students[s.ID] = &s
	return s, nil
}

func (repo *classroomRepository) RecordAttempt(_ context.Context, a classroom.QuizAttempt) (classroom.QuizAttempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[a.StudentID]; !ok {
		return classroom.QuizAttempt{}, classroom.ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	repo.db.attempts[a.ID] = &a
	return a, nil
}

func (repo *classroomRepository) QueryAttempts(_ context.Context, teacherID, studentID string) ([]classroom.QuizAttempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]classroom.QuizAttempt, 0)
	for _, a := range repo.db.attempts {
		s, ok := repo.db.students[a.StudentID]
		if !ok || s.TeacherID != teacherID || (studentID != "" && a.StudentID != studentID) {
			continue
		}
		res = append(res, *a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CompletedAt.Before(res[j].CompletedAt) })
	return res, nil
}
