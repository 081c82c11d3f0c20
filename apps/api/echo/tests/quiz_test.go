package tests

import (
	"net/http"
	"testing"

	"github.com/trezcool/quizdesk/core/catalog"
)

func summaries(t *testing.T, f catalog.Filter) []byte {
	entries := cat.List(f)
	res := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Summary())
	}
	return marshalList(t, res...)
}

func TestHome(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "Welcome to "+conf.AppName+" API!" {
		t.Errorf("home = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	runHTTPTests(t, []httpTest{
		{
			name:     "all services up",
			path:     "/health",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, map[string]interface{}{
				"status":   "ok",
				"build":    conf.Build,
				"services": map[string]string{"sessions": "ok"},
			}),
		},
	})
}

func TestQuizzes(t *testing.T) {
	fractions, err := cat.Get("fractions-6")
	if err != nil {
		t.Fatalf("cat.Get(): %v", err)
	}

	runHTTPTests(t, []httpTest{
		{
			name:     "list all",
			path:     "/v1/quizzes",
			wantCode: http.StatusOK,
			wantData: summaries(t, catalog.Filter{}),
		},
		{
			name:     "by subject",
			path:     "/v1/quizzes?subject=Math",
			wantCode: http.StatusOK,
			wantData: summaries(t, catalog.Filter{Subject: catalog.Math}),
		},
		{
			name:     "by subject and grade",
			path:     "/v1/quizzes?subject=science&grade=6",
			wantCode: http.StatusOK,
			wantData: summaries(t, catalog.Filter{Subject: catalog.Science, Grade: 6}),
		},
		{
			name:     "search",
			path:     "/v1/quizzes?search=fraction",
			wantCode: http.StatusOK,
			wantData: marshalList(t, fractions.Summary()),
		},
		{
			name:     "no match",
			path:     "/v1/quizzes?grade=12",
			wantCode: http.StatusOK,
			wantData: marshalList(t),
		},
		{
			name:     "bad grade yields nothing",
			path:     "/v1/quizzes?grade=six",
			wantCode: http.StatusOK,
			wantData: marshalList(t),
		},
		{
			name:     "retrieve",
			path:     "/v1/quizzes/fractions-6",
			wantCode: http.StatusOK,
			wantData: marshalObj(t, fractions.Summary()),
		},
		{
			name:     "retrieve unknown",
			path:     "/v1/quizzes/astrophysics-12",
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: catalog.ErrBankNotFound.Error()}),
		},
	})
}
