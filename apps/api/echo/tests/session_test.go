package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/core/quiz"
	"github.com/trezcool/quizdesk/tests"
)

// fractions-6 answers, in order
var fractionsAnswers = []string{"3/4", "1/2", "8", "5/8", "1/2", "6"}

// startSession starts bankID, as the student of token when given.
func startSession(t *testing.T, bankID, token string) play.View {
	t.Helper()
	var v play.View
	body := marshalObj(t, map[string]string{"bank_id": bankID})
	rec := do(t, http.MethodPost, "/v1/sessions", token, body, &v)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return v
}

func sessionPath(id, action string) string {
	if action == "" {
		return "/v1/sessions/" + id
	}
	return fmt.Sprintf("/v1/sessions/%s/%s", id, action)
}

func TestSessions_ImmediateFlow(t *testing.T) {
	db.Reset()
	teacherID := uuid.NewString()
	stu := testutil.CreateStudent(t, repo, teacherID, "Ada", "ada@school.test", "6B", 6)

	v := startSession(t, "Fractions-6 ", studentToken(t, stu.ID))
	assert.Equal(t, "fractions-6", v.BankID)
	assert.Equal(t, quiz.Immediate, v.Variant)
	assert.Equal(t, quiz.Asking, v.Phase)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, len(fractionsAnswers), v.Total)
	require.NotNil(t, v.Question)
	assert.Nil(t, v.Feedback, "answer must stay hidden while asking")
	assert.Nil(t, v.Deadline)

	for i, answer := range fractionsAnswers {
		choice := marshalObj(t, map[string]string{"value": answer})
		if i == 1 { // get one wrong
			choice = marshalObj(t, map[string]int{"option": 0})
		}

		var got play.View
		rec := do(t, http.MethodPost, sessionPath(v.ID, "select"), "", choice, &got)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, quiz.Revealed, got.Phase)
		require.NotNil(t, got.Feedback)
		assert.Equal(t, i != 1, got.Feedback.Correct)

		// selecting again is rejected and leaves the session as is
		rec = do(t, http.MethodPost, sessionPath(v.ID, "select"), "", choice, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = do(t, http.MethodPost, sessionPath(v.ID, "advance"), "", nil, &got)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	var done play.View
	rec := do(t, http.MethodGet, sessionPath(v.ID, ""), "", nil, &done)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.Complete, done.Phase)
	assert.Equal(t, 5, done.Score)
	require.NotNil(t, done.Percentage)
	assert.Equal(t, 83, *done.Percentage)
	assert.Len(t, done.Answers, len(fractionsAnswers))
	require.NotNil(t, done.Question, "the last question stays under the summary")
	assert.Equal(t, "What is 1 1/2 divided by 1/4?", done.Question.Prompt)
	assert.Equal(t, len(fractionsAnswers)-1, done.Index)

	attempts, err := repo.QueryAttempts(context.Background(), teacherID, stu.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "fractions-6", attempts[0].BankID)
	assert.Equal(t, 5, attempts[0].Score)
	assert.Equal(t, 83, attempts[0].Percentage)

	// reset plays it again from the top
	rec = do(t, http.MethodPost, sessionPath(v.ID, "reset"), "", nil, &done)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.Asking, done.Phase)
	assert.Equal(t, 0, done.Index)
	assert.Equal(t, 0, done.Score)

	rec = do(t, http.MethodDelete, sessionPath(v.ID, ""), "", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, http.MethodGet, sessionPath(v.ID, ""), "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessions_ExplicitSubmit(t *testing.T) {
	v := startSession(t, "circuits-10", "")
	assert.Equal(t, quiz.ExplicitSubmit, v.Variant)

	var got play.View
	rec := do(t, http.MethodPost, sessionPath(v.ID, "submit"), "", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "nothing selected yet")

	rec = do(t, http.MethodPost, sessionPath(v.ID, "select"), "", marshalObj(t, map[string]int{"option": 0}), &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.Asking, got.Phase)
	require.NotNil(t, got.Selected)
	assert.Equal(t, 0, *got.Selected)

	// changing one's mind is fine until submit
	rec = do(t, http.MethodPost, sessionPath(v.ID, "select"), "", marshalObj(t, map[string]int{"option": 1}), &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *got.Selected)
	assert.Nil(t, got.Feedback)

	rec = do(t, http.MethodPost, sessionPath(v.ID, "advance"), "", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "not answered yet")

	rec = do(t, http.MethodPost, sessionPath(v.ID, "submit"), "", nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.Revealed, got.Phase)
	require.NotNil(t, got.Feedback)
	assert.NotEmpty(t, got.Feedback.CorrectIndexes)
}

func TestSessions_Errors(t *testing.T) {
	v := startSession(t, "fractions-6", "")
	unknown := uuid.NewString()

	runHTTPTests(t, []httpTest{
		{
			name:     "start without bank",
			method:   http.MethodPost,
			path:     "/v1/sessions",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"bank_id": "this field is required"}),
		},
		{
			name:     "start with bad token",
			method:   http.MethodPost,
			path:     "/v1/sessions",
			body:     []byte(`{"bank_id": "fractions-6"}`),
			token:    "lol",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "start unknown bank",
			method:   http.MethodPost,
			path:     "/v1/sessions",
			body:     []byte(`{"bank_id": "astrophysics-12"}`),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: play.ErrUnknownBank.Error()}),
		},
		{
			name:     "unknown session",
			path:     sessionPath(unknown, ""),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: play.ErrSessionNotFound.Error()}),
		},
		{
			name:     "advance unknown session",
			method:   http.MethodPost,
			path:     sessionPath(unknown, "advance"),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "select nothing",
			method:   http.MethodPost,
			path:     sessionPath(v.ID, "select"),
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "select both",
			method:   http.MethodPost,
			path:     sessionPath(v.ID, "select"),
			body:     []byte(`{"option": 0, "value": "3/4"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"option": "send either option or value"}),
		},
		{
			name:     "select out of range",
			method:   http.MethodPost,
			path:     sessionPath(v.ID, "select"),
			body:     []byte(`{"option": 9}`),
			wantCode: http.StatusConflict,
		},
		{
			name:     "select unknown value",
			method:   http.MethodPost,
			path:     sessionPath(v.ID, "select"),
			body:     []byte(`{"value": "42"}`),
			wantCode: http.StatusConflict,
		},
		{
			name:     "submit in immediate quiz",
			method:   http.MethodPost,
			path:     sessionPath(v.ID, "submit"),
			wantCode: http.StatusConflict,
		},
	})

	// rejected transitions left the session untouched
	var got play.View
	rec := do(t, http.MethodGet, sessionPath(v.ID, ""), "", nil, &got)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, quiz.Asking, got.Phase)
	assert.Equal(t, 0, got.Index)
	assert.Nil(t, got.Selected)
}

func playFractions(t *testing.T, id string) {
	t.Helper()
	for _, answer := range fractionsAnswers {
		rec := do(t, http.MethodPost, sessionPath(id, "select"), "", marshalObj(t, map[string]string{"value": answer}), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = do(t, http.MethodPost, sessionPath(id, "advance"), "", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestSessions_AttemptsNeedStudentToken(t *testing.T) {
	db.Reset()
	teacherID, teacher := newTeacher(t)
	stu := testutil.CreateStudent(t, repo, teacherID, "Grace", "grace@school.test", "6B", 6)

	attempts := func() []classroom.QuizAttempt {
		t.Helper()
		res, err := repo.QueryAttempts(context.Background(), teacherID, stu.ID)
		require.NoError(t, err)
		return res
	}

	t.Run("anonymous", func(t *testing.T) {
		playFractions(t, startSession(t, "fractions-6", "").ID)
		assert.Empty(t, attempts())
	})

	t.Run("student id in the body is ignored", func(t *testing.T) {
		var v play.View
		body := marshalObj(t, map[string]string{"bank_id": "fractions-6", "student_id": stu.ID})
		rec := do(t, http.MethodPost, "/v1/sessions", "", body, &v)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		playFractions(t, v.ID)
		assert.Empty(t, attempts())
	})

	t.Run("teacher token plays anonymously", func(t *testing.T) {
		playFractions(t, startSession(t, "fractions-6", teacher).ID)
		assert.Empty(t, attempts())
	})

	t.Run("student token", func(t *testing.T) {
		playFractions(t, startSession(t, "fractions-6", studentToken(t, stu.ID)).ID)
		got := attempts()
		require.Len(t, got, 1)
		assert.Equal(t, stu.ID, got[0].StudentID)
		assert.Equal(t, 100, got[0].Percentage)
	})
}
