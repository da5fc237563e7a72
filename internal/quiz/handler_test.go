package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"exam-quiz/internal/auth"
	"exam-quiz/internal/models"
	"exam-quiz/pkg/response"

	"github.com/gorilla/mux"
)

func asUser(r *http.Request, userID uint) *http.Request {
	return r.WithContext(auth.WithSession(r.Context(), &models.Session{ID: "s", UserID: userID}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestPathID(t *testing.T) {
	cases := map[string]bool{"7": true, "0": false, "-1": false, "abc": false, "1.5": false, "": false}
	for raw, ok := range cases {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": raw})
		id, err := pathID(req, "id")
		if ok && (err != nil || id != 7) {
			t.Fatalf("pathID(%q) = (%d, %v)", raw, id, err)
		}
		if !ok && err == nil {
			t.Fatalf("pathID(%q) accepted invalid id", raw)
		}
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{newValidationError("bad", "required: 2, available: 1"), http.StatusBadRequest, response.CodeValidation},
		{auth.ErrUnauthorized, http.StatusUnauthorized, response.CodeUnauthorized},
		{ErrNotFound, http.StatusNotFound, response.CodeNotFound},
		{ErrAttemptFinished, http.StatusConflict, response.CodeConflict},
		{ErrDataIntegrity, http.StatusInternalServerError, response.CodeInternal},
		{errors.New("connection refused"), http.StatusInternalServerError, response.CodeDatabase},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var body response.ErrorBody
		decodeBody(t, rec, &body)
		if body.Code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, body.Code, tc.code)
		}
		if tc.status == http.StatusInternalServerError && strings.Contains(body.Error+body.Details, "refused") {
			t.Fatalf("internal detail leaked: %+v", body)
		}
	}
}

func TestStartQuizHandler(t *testing.T) {
	f, userID := newScenario(t)
	h := NewHandler(f.svc)

	body := `{"examId": 1, "categoryIds": [10, 11], "questionCount": 26}`
	rec := httptest.NewRecorder()
	h.StartQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader(body)), userID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var errBody response.ErrorBody
	decodeBody(t, rec, &errBody)
	if errBody.Details != "required: 26, available: 25" {
		t.Fatalf("details = %q", errBody.Details)
	}

	body = `{"examId": 1, "categoryIds": [10, 11], "questionCount": 25}`
	rec = httptest.NewRecorder()
	h.StartQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader(body)), userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ok struct {
		Success     bool   `json:"success"`
		AttemptID   uint   `json:"attemptId"`
		QuestionIDs []uint `json:"questionIds"`
	}
	decodeBody(t, rec, &ok)
	if !ok.Success || ok.AttemptID == 0 || len(ok.QuestionIDs) != 25 {
		t.Fatalf("unexpected body: %+v", ok)
	}
}

func TestStartQuizHandlerValidation(t *testing.T) {
	f, userID := newScenario(t)
	h := NewHandler(f.svc)

	bodies := []string{
		`not json`,
		`{"examId": 0, "categoryIds": [10], "questionCount": 1}`,
		`{"examId": 1.5, "categoryIds": [10], "questionCount": 1}`,
		`{"examId": 1, "categoryIds": [], "questionCount": 1}`,
		`{"examId": 1, "categoryIds": [-10], "questionCount": 1}`,
		`{"examId": 1, "categoryIds": [10], "questionCount": 0}`,
		`{"examId": "1", "categoryIds": [10], "questionCount": 1}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		h.StartQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader(body)), userID))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.StartQuiz(rec, httptest.NewRequest(http.MethodPost, "/api/quiz/start", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestSubmitAndResultsHandlers(t *testing.T) {
	f := newFixture(t)
	userID := f.user(t, "alice")
	f.exam(t, 1, "AWS-SAA", true)
	link := f.category(t, 1, 10, "Compute")
	qa := f.question(t, link, 1)
	qb := f.question(t, link, 3, 4)
	attemptID, _ := f.svc.CreateExamAttempt(context.Background(), userID, 1, toInt64s([]uint{qa, qb}))
	h := NewHandler(f.svc)

	payload, _ := json.Marshal(map[string]interface{}{
		"attemptId": attemptID,
		"answers": []map[string]interface{}{
			{"questionId": qa, "answerIds": []int{1}},
			{"questionId": qb, "answerIds": []int{3}},
		},
	})

	rec := httptest.NewRecorder()
	h.SubmitQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/submit", bytes.NewReader(payload)), userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Success        bool `json:"success"`
		TotalQuestions int  `json:"totalQuestions"`
		CorrectCount   int  `json:"correctCount"`
		AttemptID      uint `json:"attemptId"`
	}
	decodeBody(t, rec, &submitted)
	if !submitted.Success || submitted.TotalQuestions != 2 || submitted.CorrectCount != 1 || submitted.AttemptID != attemptID {
		t.Fatalf("submit body = %+v", submitted)
	}

	rec = httptest.NewRecorder()
	h.SubmitQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/submit", bytes.NewReader(payload)), userID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("resubmit status = %d, want 409", rec.Code)
	}

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/quiz/results", nil), map[string]string{"attemptId": fmt.Sprint(attemptID)})
	rec = httptest.NewRecorder()
	h.GetResults(rec, asUser(req, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d, body %s", rec.Code, rec.Body.String())
	}
	var results struct {
		TotalQuestions  int               `json:"totalQuestions"`
		CorrectCount    int               `json:"correctCount"`
		IncorrectCount  int               `json:"incorrectCount"`
		ScorePercentage int               `json:"scorePercentage"`
		Responses       []json.RawMessage `json:"responses"`
	}
	decodeBody(t, rec, &results)
	if results.ScorePercentage != 50 || results.TotalQuestions != 2 || results.IncorrectCount != 1 || len(results.Responses) != 2 {
		t.Fatalf("results body = %+v", results)
	}

	other := f.user(t, "bob")
	rec = httptest.NewRecorder()
	h.GetResults(rec, asUser(req, other))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign results status = %d, want 404", rec.Code)
	}
}

func TestSubmitHandlerValidation(t *testing.T) {
	f, userID := newScenario(t)
	h := NewHandler(f.svc)

	bodies := []string{
		`{"answers": []}`,
		`{"attemptId": 1}`,
		`{"attemptId": 1, "answers": [{"questionId": 0, "answerIds": [1]}]}`,
		`{"attemptId": 1, "answers": [{"questionId": 1, "answerIds": [1.5]}]}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		h.SubmitQuiz(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/quiz/submit", strings.NewReader(body)), userID))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestAttemptAndQuestionHandlers(t *testing.T) {
	f, userID := newScenario(t)
	h := NewHandler(f.svc)
	attemptID, _ := f.svc.CreateExamAttempt(context.Background(), userID, 1, []int64{3, 4})

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exam-attempts", nil), map[string]string{"id": fmt.Sprint(attemptID)})
	rec := httptest.NewRecorder()
	h.GetExamAttempt(rec, asUser(req, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("attempt status = %d", rec.Code)
	}
	var view map[string]interface{}
	decodeBody(t, rec, &view)
	if view["attemptId"] != float64(attemptID) || view["examId"] != float64(1) || view["finishedAt"] != nil {
		t.Fatalf("attempt view = %v", view)
	}
	if ids, ok := view["questionIds"].([]interface{}); !ok || len(ids) != 2 {
		t.Fatalf("questionIds = %v", view["questionIds"])
	}

	rec = httptest.NewRecorder()
	h.GetAttemptQuestions(rec, asUser(req, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("questions status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_key") || strings.Contains(rec.Body.String(), "explanation") {
		t.Fatalf("answers leaked: %s", rec.Body.String())
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/questions/3", nil), map[string]string{"id": "3"})
	rec = httptest.NewRecorder()
	h.GetQuestion(rec, asUser(req, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("question status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correct_key") {
		t.Fatalf("answer leaked: %s", rec.Body.String())
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/questions/9", nil), map[string]string{"id": "9"})
	rec = httptest.NewRecorder()
	h.GetQuestion(rec, asUser(req, userID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unreferenced question status = %d, want 404", rec.Code)
	}
}

func TestExamHandlers(t *testing.T) {
	f, userID := newScenario(t)
	h := NewHandler(f.svc)

	rec := httptest.NewRecorder()
	h.ListExams(rec, httptest.NewRequest(http.MethodGet, "/api/exams", nil))
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "userAttempts") {
		t.Fatalf("anonymous list = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ListExams(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/exams", nil), userID))
	if !strings.Contains(rec.Body.String(), `"userAttempts":0`) {
		t.Fatalf("authenticated list lacks stats: %s", rec.Body.String())
	}

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exams/1/categories", nil), map[string]string{"examId": "1"})
	rec = httptest.NewRecorder()
	h.GetExamCategories(rec, req)
	var cats ExamCategories
	decodeBody(t, rec, &cats)
	if len(cats.Categories) != 2 || cats.TotalQuestions != 25 {
		t.Fatalf("categories = %+v", cats)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exams/abc", nil), map[string]string{"examId": "abc"})
	rec = httptest.NewRecorder()
	h.GetExam(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad exam id status = %d, want 400", rec.Code)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exams/1", nil), map[string]string{"examId": "1"})
	rec = httptest.NewRecorder()
	h.GetExam(rec, req)
	var one struct {
		Exam *models.Exam `json:"exam"`
	}
	decodeBody(t, rec, &one)
	if rec.Code != http.StatusOK || one.Exam == nil || one.Exam.ID != 1 {
		t.Fatalf("exam = %d %s", rec.Code, rec.Body.String())
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exams/42", nil), map[string]string{"examId": "42"})
	rec = httptest.NewRecorder()
	h.GetExam(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing exam status = %d, want 404", rec.Code)
	}

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/exams/1/stats", nil), map[string]string{"examId": "1"})
	rec = httptest.NewRecorder()
	h.GetExamStats(rec, req)
	var stats models.ExamStats
	decodeBody(t, rec, &stats)
	if stats.TotalQuestions != 25 || stats.TotalCategories != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}
