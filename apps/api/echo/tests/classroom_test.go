package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/services/email"
	"github.com/trezcool/quizdesk/tests"
)

var errNotFound = httpErr{Error: classroom.ErrNotFound.Error()}

func TestClassroom_Auth(t *testing.T) {
	_, teacher := newTeacher(t)
	student := studentToken(t, uuid.NewString())

	runHTTPTests(t, []httpTest{
		{
			name:     "no token",
			path:     "/v1/assignments",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			path:     "/v1/assignments",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "student on assignments",
			path:     "/v1/assignments",
			token:    student,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "teacher adds student",
			method:   http.MethodPost,
			path:     "/v1/students",
			token:    teacher,
			body:     []byte(`{}`),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "teacher submits work",
			method:   http.MethodPost,
			path:     "/v1/submissions/" + uuid.NewString() + "/submit",
			token:    teacher,
			body:     []byte(`{"file_url": "https://drive.test/work.pdf"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student on dashboard",
			path:     "/v1/dashboard/overview",
			token:    student,
			wantCode: http.StatusForbidden,
		},
	})
}

func TestStudents(t *testing.T) {
	db.Reset()
	teacherID, teacher := newTeacher(t)
	admin := adminToken(t)
	existing := testutil.CreateStudent(t, repo, teacherID, "Ada", "ada@school.test", "8A", 8)

	t.Run("add", func(t *testing.T) {
		var stu classroom.Student
		body := marshalObj(t, map[string]interface{}{
			"name":        " Alan ",
			"email":       "ALAN@school.test",
			"class_name":  "8A",
			"grade_level": 8,
			"teacher_id":  teacherID,
		})
		rec := do(t, http.MethodPost, "/v1/students", admin, body, &stu)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotEmpty(t, stu.ID)
		assert.Equal(t, "Alan", stu.Name)
		assert.Equal(t, "alan@school.test", stu.Email)
		assert.Equal(t, teacherID, stu.TeacherID)
	})

	runHTTPTests(t, []httpTest{
		{
			name:   "add duplicate email",
			method: http.MethodPost,
			path:   "/v1/students",
			token:  admin,
			body: marshalObj(t, map[string]interface{}{
				"name": "Ada again", "email": existing.Email, "class_name": "8A", "grade_level": 8, "teacher_id": teacherID,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": classroom.ErrEmailExists.Error()}),
		},
		{
			name:   "add out of range grade",
			method: http.MethodPost,
			path:   "/v1/students",
			token:  admin,
			body: marshalObj(t, map[string]interface{}{
				"name": "Tiny", "email": "tiny@school.test", "class_name": "1A", "grade_level": 1, "teacher_id": teacherID,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"grade_level": "grade level must be between 6 and 10"}),
		},
	})

	t.Run("list own", func(t *testing.T) {
		var students []classroom.Student
		rec := do(t, http.MethodGet, "/v1/students", teacher, nil, &students)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, students, 2)

		_, other := newTeacher(t)
		rec = do(t, http.MethodGet, "/v1/students", other, nil, &students)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, students)
	})
}

func TestAssignments(t *testing.T) {
	db.Reset()
	emailsvc.ResetSentMessages()
	teacherID, teacher := newTeacher(t)
	_, otherTeacher := newTeacher(t)
	ada := testutil.CreateStudent(t, repo, teacherID, "Ada", "ada@school.test", "8A", 8)
	alan := testutil.CreateStudent(t, repo, teacherID, "Alan", "alan@school.test", "8A", 8)
	grace := testutil.CreateStudent(t, repo, teacherID, "Grace", "grace@school.test", "9C", 9)
	due := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	var fractions classroom.Assignment
	t.Run("create", func(t *testing.T) {
		body := marshalObj(t, map[string]interface{}{
			"title":       " Fractions worksheet ",
			"subject":     "Math",
			"description": "Exercises 1 to 12",
			"due_date":    due,
			"student_ids": []string{ada.ID, grace.ID, ada.ID},
		})
		rec := do(t, http.MethodPost, "/v1/assignments", teacher, body, &fractions)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Fractions worksheet", fractions.Title)
		assert.Equal(t, catalog.Math, fractions.Subject)
		assert.Equal(t, teacherID, fractions.TeacherID)
		assert.True(t, due.Equal(fractions.DueDate))

		sent := emailsvc.Sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "New assignment: Fractions worksheet", sent[0].Subject)
	})

	var cells classroom.Assignment
	t.Run("create by class", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		body := marshalObj(t, map[string]interface{}{
			"title":      "Cells poster",
			"subject":    "science",
			"due_date":   due.Add(24 * time.Hour),
			"class_name": "8A",
		})
		rec := do(t, http.MethodPost, "/v1/assignments/by-class", teacher, body, &cells)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "8A", cells.ClassName)

		sent := emailsvc.Sent()
		require.Len(t, sent, 2)
		got := []string{sent[0].To[0].Address, sent[1].To[0].Address}
		assert.ElementsMatch(t, []string{ada.Email, alan.Email}, got)
	})

	runHTTPTests(t, []httpTest{
		{
			name:   "create for unknown student",
			method: http.MethodPost,
			path:   "/v1/assignments",
			token:  otherTeacher,
			body: marshalObj(t, map[string]interface{}{
				"title": "Theft", "subject": "math", "due_date": due, "student_ids": []string{ada.ID},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"student_ids": classroom.ErrUnknownStudents.Error() + ": " + ada.ID}),
		},
		{
			name:   "create with bad subject",
			method: http.MethodPost,
			path:   "/v1/assignments",
			token:  teacher,
			body: marshalObj(t, map[string]interface{}{
				"title": "Poems", "subject": "poetry", "due_date": due, "student_ids": []string{ada.ID},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"subject": "subject must be one of [math science engineering]"}),
		},
		{
			name:   "create for empty class",
			method: http.MethodPost,
			path:   "/v1/assignments/by-class",
			token:  teacher,
			body: marshalObj(t, map[string]interface{}{
				"title": "Ghosts", "subject": "science", "due_date": due, "class_name": "7Z",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"class_name": classroom.ErrNoStudents.Error()}),
		},
		{
			name:     "retrieve",
			path:     "/v1/assignments/" + fractions.ID,
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, fractions),
		},
		{
			name:     "retrieve as other teacher",
			path:     "/v1/assignments/" + fractions.ID,
			token:    otherTeacher,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, errNotFound),
		},
		{
			name:     "order by title",
			path:     "/v1/assignments?ordering=title",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, cells, fractions),
		},
		{
			name:     "default order is newest due date first",
			path:     "/v1/assignments",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, cells, fractions),
		},
		{
			name:     "order by due date",
			path:     "/v1/assignments?ordering=due_date",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, fractions, cells),
		},
		{
			name:     "filter by subject",
			path:     "/v1/assignments?subject=MATH",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, fractions),
		},
		{
			name:     "filter by class",
			path:     "/v1/assignments?class_name=8A",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, cells),
		},
		{
			name:     "search",
			path:     "/v1/assignments?search=worksheet",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, fractions),
		},
		{
			name:     "due window",
			path:     "/v1/assignments?due_to=" + due.Add(time.Hour).Format(time.RFC3339),
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, fractions),
		},
		{
			name:     "bad due date",
			path:     "/v1/assignments?due_from=tomorrow",
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"due_from": "invalid date"}),
		},
		{
			name:     "bad ordering",
			path:     "/v1/assignments?ordering=-password",
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"ordering": `cannot order by "password"`}),
		},
		{
			name:     "other teacher sees nothing",
			path:     "/v1/assignments",
			token:    otherTeacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t),
		},
	})

	t.Run("update", func(t *testing.T) {
		var got classroom.Assignment
		rec := do(t, http.MethodPut, "/v1/assignments/"+fractions.ID, teacher, []byte(`{"title": "Fractions, take two"}`), &got)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Fractions, take two", got.Title)
		assert.Equal(t, fractions.Description, got.Description)
		assert.True(t, fractions.DueDate.Equal(got.DueDate))

		rec = do(t, http.MethodPut, "/v1/assignments/"+fractions.ID, teacher, []byte(`{"title": "   "}`), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = do(t, http.MethodPut, "/v1/assignments/"+fractions.ID, otherTeacher, []byte(`{"title": "Mine"}`), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, http.MethodDelete, "/v1/assignments", teacher, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"id": "this field is required"}`, rec.Body.String())

		rec = do(t, http.MethodDelete, "/v1/assignments/"+cells.ID, otherTeacher, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, http.MethodDelete, "/v1/assignments?id="+cells.ID+"&id="+fractions.ID, teacher, nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, http.MethodDelete, "/v1/assignments/"+cells.ID, teacher, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var subs []classroom.Submission
		rec = do(t, http.MethodGet, "/v1/submissions", teacher, nil, &subs)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, subs, "submissions go with their assignment")
	})
}

func TestSubmissions(t *testing.T) {
	db.Reset()
	teacherID, teacher := newTeacher(t)
	_, otherTeacher := newTeacher(t)
	ada := testutil.CreateStudent(t, repo, teacherID, "Ada", "ada@school.test", "8A", 8)
	alan := testutil.CreateStudent(t, repo, teacherID, "Alan", "alan@school.test", "8A", 8)
	asgmt := testutil.CreateAssignment(t, repo, teacherID, "Levers", catalog.Engineering, time.Now().Add(48*time.Hour), ada, alan)
	adaSub := testutil.SubmissionOf(t, repo, teacherID, asgmt.ID, ada.ID)
	adaToken := studentToken(t, ada.ID)

	t.Run("list", func(t *testing.T) {
		var subs []classroom.Submission
		rec := do(t, http.MethodGet, "/v1/submissions?assignment_id="+asgmt.ID, teacher, nil, &subs)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, subs, 2)

		rec = do(t, http.MethodGet, "/v1/submissions?student_id="+ada.ID, teacher, nil, &subs)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, subs, 1)
		assert.Equal(t, "Ada", subs[0].StudentName)
		assert.Equal(t, "Levers", subs[0].AssignmentTitle)
		assert.Equal(t, classroom.StatusPending, subs[0].Status)
	})

	t.Run("submit", func(t *testing.T) {
		rec := do(t, http.MethodPost, "/v1/submissions/"+adaSub.ID+"/submit", adaToken, []byte(`{"file_url": "nope"}`), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// not Alan's to hand in
		rec = do(t, http.MethodPost, "/v1/submissions/"+adaSub.ID+"/submit", studentToken(t, alan.ID),
			[]byte(`{"file_url": "https://drive.test/alan.pdf"}`), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var sub classroom.Submission
		rec = do(t, http.MethodPost, "/v1/submissions/"+adaSub.ID+"/submit", adaToken,
			[]byte(`{"file_url": "https://drive.test/ada.pdf"}`), &sub)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, classroom.StatusSubmitted, sub.Status)
		assert.Equal(t, "https://drive.test/ada.pdf", sub.FileURL)
		assert.NotNil(t, sub.SubmittedAt)
	})

	runHTTPTests(t, []httpTest{
		{
			name:     "filter by status",
			path:     "/v1/submissions?status=submitted",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marshalList(t, testutil.SubmissionOf(t, repo, teacherID, asgmt.ID, ada.ID)),
		},
		{
			name:     "grade without grade",
			method:   http.MethodPut,
			path:     "/v1/submissions/" + adaSub.ID + "/grade",
			token:    teacher,
			body:     []byte(`{"feedback": "Nice"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"grade": "this field is required"}),
		},
		{
			name:     "grade above 100",
			method:   http.MethodPut,
			path:     "/v1/submissions/" + adaSub.ID + "/grade",
			token:    teacher,
			body:     []byte(`{"grade": 101}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "grade as other teacher",
			method:   http.MethodPut,
			path:     "/v1/submissions/" + adaSub.ID + "/grade",
			token:    otherTeacher,
			body:     []byte(`{"grade": 90}`),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, errNotFound),
		},
	})

	t.Run("grade", func(t *testing.T) {
		var sub classroom.Submission
		rec := do(t, http.MethodPut, "/v1/submissions/"+adaSub.ID+"/grade", teacher, []byte(`{"grade": 88.5, "feedback": " Neat diagrams "}`), &sub)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, classroom.StatusGraded, sub.Status)
		require.NotNil(t, sub.Grade)
		assert.Equal(t, 88.5, *sub.Grade)
		assert.Equal(t, "Neat diagrams", sub.Feedback)
		assert.NotNil(t, sub.GradedAt)

		// graded work is final for the student
		rec = do(t, http.MethodPost, "/v1/submissions/"+adaSub.ID+"/submit", adaToken,
			[]byte(`{"file_url": "https://drive.test/ada-v2.pdf"}`), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		// but the teacher may revise
		rec = do(t, http.MethodPut, "/v1/submissions/"+adaSub.ID+"/grade", teacher, []byte(`{"grade": 91}`), &sub)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 91.0, *sub.Grade)
	})
}
