//go:build integration

package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/storage/database/sqlx"
	"github.com/trezcool/quizdesk/tests"
)

func TestClassroomRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewClassroomRepository(db)
	ctx := context.Background()

	teacherID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	ada := testutil.CreateStudent(t, repo, teacherID, "Ada", "ada@school.test", "8A", 8)
	alan := testutil.CreateStudent(t, repo, teacherID, "Alan", "alan@school.test", "8A", 8)
	grace := testutil.CreateStudent(t, repo, teacherID, "Grace", "grace@school.test", "9B", 9)
	other := testutil.CreateStudent(t, repo, uuid.NewString(), "Other", "other@school.test", "8A", 8)

	t.Run("students", func(t *testing.T) {
		students, err := repo.GetTeacherStudents(ctx, teacherID)
		require.NoError(t, err)
		names := make([]string, 0, len(students))
		for _, s := range students {
			names = append(names, s.Name)
		}
		assert.Equal(t, []string{"Ada", "Alan", "Grace"}, names)

		_, err = repo.CreateStudent(ctx, classroom.Student{
			Name: "Ada 2", Email: "ada@school.test", ClassName: "8A", GradeLevel: 8, TeacherID: teacherID,
		})
		assert.Equal(t, classroom.ErrEmailExists, err)

		students, err = repo.GetTeacherStudents(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Empty(t, students)
	})

	var fractions, cells classroom.Assignment
	t.Run("create assignments", func(t *testing.T) {
		var err error
		fractions, err = repo.CreateAssignment(ctx, classroom.Assignment{
			ID: uuid.NewString(), Title: "Fractions", Subject: catalog.Math, Description: "Worksheet 3",
			DueDate: now.Add(48 * time.Hour), TeacherID: teacherID, CreatedAt: now,
		}, []string{ada.ID, grace.ID})
		require.NoError(t, err)
		assert.Equal(t, "Fractions", fractions.Title)
		assert.True(t, now.Add(48*time.Hour).Equal(fractions.DueDate))

		_, err = repo.CreateAssignment(ctx, classroom.Assignment{
			ID: uuid.NewString(), Title: "Nope", Subject: catalog.Math, DueDate: now, TeacherID: teacherID, CreatedAt: now,
		}, []string{ada.ID, other.ID})
		assert.Equal(t, classroom.ErrUnknownStudents, err)

		cells, err = repo.CreateAssignmentByClass(ctx, classroom.Assignment{
			ID: uuid.NewString(), Title: "Cells", Subject: catalog.Science, DueDate: now.Add(-time.Hour),
			TeacherID: teacherID, ClassName: "8A", CreatedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, "8A", cells.ClassName)

		_, err = repo.CreateAssignmentByClass(ctx, classroom.Assignment{
			ID: uuid.NewString(), Title: "Empty", Subject: catalog.Science, DueDate: now,
			TeacherID: teacherID, ClassName: "12Z", CreatedAt: now,
		})
		assert.Equal(t, classroom.ErrNoStudents, err)

		subs, err := repo.GetTeacherSubmissions(ctx, teacherID)
		require.NoError(t, err)
		require.Len(t, subs, 4)
		assert.Equal(t, "Fractions", subs[0].AssignmentTitle, "newest due date first")
		for _, s := range subs {
			assert.Equal(t, classroom.StatusPending, s.Status)
			assert.Nil(t, s.Grade)
			assert.Nil(t, s.SubmittedAt)
		}
	})

	t.Run("query assignments", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   classroom.AssignmentFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{"Fractions", "Cells"}},
			{name: "search description", filter: classroom.AssignmentFilter{Search: "worksheet"}, want: []string{"Fractions"}},
			{name: "subject", filter: classroom.AssignmentFilter{Subject: catalog.Science}, want: []string{"Cells"}},
			{name: "class", filter: classroom.AssignmentFilter{ClassName: "8A"}, want: []string{"Cells"}},
			{name: "due from", filter: classroom.AssignmentFilter{DueFrom: now}, want: []string{"Fractions"}},
			{name: "due to", filter: classroom.AssignmentFilter{DueTo: now}, want: []string{"Cells"}},
			{name: "title asc", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []string{"Cells", "Fractions"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := repo.QueryAssignments(ctx, teacherID, tt.filter, tt.ordering...)
				require.NoError(t, err)
				titles := make([]string, 0, len(res))
				for _, a := range res {
					titles = append(titles, a.Title)
				}
				assert.Equal(t, tt.want, titles)
			})
		}
	})

	t.Run("get and update assignment", func(t *testing.T) {
		a, err := repo.GetAssignment(ctx, teacherID, fractions.ID)
		require.NoError(t, err)
		assert.Equal(t, fractions, a)

		_, err = repo.GetAssignment(ctx, uuid.NewString(), fractions.ID)
		assert.Equal(t, classroom.ErrNotFound, err)
		_, err = repo.GetAssignment(ctx, teacherID, "lol")
		assert.Equal(t, classroom.ErrNotFound, err)

		a.Title = "Fractions II"
		a, err = repo.UpdateAssignment(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, "Fractions II", a.Title)

		a.TeacherID = uuid.NewString()
		_, err = repo.UpdateAssignment(ctx, a)
		assert.Equal(t, classroom.ErrNotFound, err)
	})

	t.Run("submissions", func(t *testing.T) {
		sub := testutil.SubmissionOf(t, repo, teacherID, cells.ID, alan.ID)
		got, err := repo.GetSubmission(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub, got)

		at := now.Add(-2 * time.Hour)
		grade := 87.5
		sub.Status, sub.FileURL, sub.SubmittedAt = classroom.StatusGraded, "https://files.test/alan.pdf", &at
		sub.Grade, sub.Feedback, sub.GradedAt = &grade, "Nice diagrams", &now
		got, err = repo.UpdateSubmission(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, 87.5, *got.Grade)
		assert.True(t, at.Equal(*got.SubmittedAt))
		assert.Equal(t, "Nice diagrams", got.Feedback)
		assert.Equal(t, classroom.StatusGraded, got.EffectiveStatus(now))

		_, err = repo.GetSubmission(ctx, uuid.NewString())
		assert.Equal(t, classroom.ErrNotFound, err)
		sub.ID = uuid.NewString()
		_, err = repo.UpdateSubmission(ctx, sub)
		assert.Equal(t, classroom.ErrNotFound, err)
	})

	t.Run("attempts", func(t *testing.T) {
		testutil.RecordAttempt(t, repo, ada.ID, "fractions-6", 5, 6, now.Add(-time.Hour))
		testutil.RecordAttempt(t, repo, ada.ID, "ratios-7", 3, 6, now)
		testutil.RecordAttempt(t, repo, other.ID, "ratios-7", 6, 6, now)

		all, err := repo.QueryAttempts(ctx, teacherID, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "fractions-6", all[0].BankID, "oldest first")
		assert.Equal(t, 83, all[0].Percentage)

		mine, err := repo.QueryAttempts(ctx, teacherID, alan.ID)
		require.NoError(t, err)
		assert.Empty(t, mine)

		_, err = repo.RecordAttempt(ctx, classroom.QuizAttempt{StudentID: uuid.NewString(), BankID: "x", StartedAt: now, CompletedAt: now})
		assert.Equal(t, classroom.ErrNotFound, err)
	})

	t.Run("delete assignments", func(t *testing.T) {
		n, err := repo.DeleteAssignments(ctx, teacherID, fractions.ID, "lol", uuid.NewString())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		subs, err := repo.GetTeacherSubmissions(ctx, teacherID)
		require.NoError(t, err)
		assert.Len(t, subs, 2, "submissions go with their assignment")

		n, err = repo.DeleteAssignments(ctx, uuid.NewString(), cells.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
