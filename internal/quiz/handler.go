// internal/quiz/handler.go
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exam-quiz/internal/auth"
	"exam-quiz/pkg/response"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type startQuizBody struct {
	ExamID        float64   `json:"examId"`
	CategoryIDs   []float64 `json:"categoryIds"`
	QuestionCount float64   `json:"questionCount"`
}

type submitAnswerBody struct {
	QuestionID float64   `json:"questionId"`
	AnswerIDs  []float64 `json:"answerIds"`
}

type submitQuizBody struct {
	AttemptID float64            `json:"attemptId"`
	Answers   []submitAnswerBody `json:"answers"`
}

type attemptView struct {
	AttemptID   uint       `json:"attemptId"`
	QuestionIDs []uint     `json:"questionIds"`
	ExamID      uint       `json:"examId"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt"`
}

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	var userID *uint
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		userID = &id
	}

	exams, err := h.service.ListExams(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"exams": exams})
}

func (h *Handler) GetExam(w http.ResponseWriter, r *http.Request) {
	examID, err := pathID(r, "examId")
	if err != nil {
		response.ValidationError(w, "Invalid exam id", err.Error())
		return
	}

	exam, err := h.service.GetExamByID(r.Context(), examID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"exam": exam})
}

func (h *Handler) GetExamCategories(w http.ResponseWriter, r *http.Request) {
	examID, err := pathID(r, "examId")
	if err != nil {
		response.ValidationError(w, "Invalid exam id", err.Error())
		return
	}

	categories, err := h.service.GetExamCategories(r.Context(), examID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetExamStats(w http.ResponseWriter, r *http.Request) {
	examID, err := pathID(r, "examId")
	if err != nil {
		response.ValidationError(w, "Invalid exam id", err.Error())
		return
	}

	stats, err := h.service.GetExamStats(r.Context(), examID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var body startQuizBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.ValidationError(w, "Invalid request body", "")
		return
	}

	examID, ok := positiveInt(body.ExamID)
	if !ok {
		response.ValidationError(w, "Invalid exam id", "examId must be a positive integer")
		return
	}
	if len(body.CategoryIDs) == 0 {
		response.ValidationError(w, "At least one category is required", "")
		return
	}
	categoryIDs := make([]uint, 0, len(body.CategoryIDs))
	for _, raw := range body.CategoryIDs {
		id, ok := positiveInt(raw)
		if !ok {
			response.ValidationError(w, "Invalid category id", "categoryIds must be positive integers")
			return
		}
		categoryIDs = append(categoryIDs, id)
	}
	count, ok := positiveInt(body.QuestionCount)
	if !ok {
		response.ValidationError(w, "Invalid question count", "questionCount must be a positive integer")
		return
	}

	result, err := h.service.StartQuiz(r.Context(), userID, StartQuizRequest{
		ExamID:        examID,
		CategoryIDs:   categoryIDs,
		QuestionCount: int(count),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"attemptId":   result.AttemptID,
		"questionIds": result.QuestionIDs,
	})
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var body submitQuizBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.ValidationError(w, "Invalid request body", "")
		return
	}

	attemptID, ok := positiveInt(body.AttemptID)
	if !ok {
		response.ValidationError(w, "Invalid attempt id", "attemptId must be a positive integer")
		return
	}
	if body.Answers == nil {
		response.ValidationError(w, "Answers are required", "answers must be an array")
		return
	}

	req := SubmitQuizRequest{AttemptID: attemptID, Answers: make([]AnswerSubmission, 0, len(body.Answers))}
	for i, a := range body.Answers {
		questionID, ok := positiveInt(a.QuestionID)
		if !ok {
			response.ValidationError(w, "Invalid answer", fmt.Sprintf("answers[%d].questionId must be a positive integer", i))
			return
		}
		answerIDs := make([]int64, 0, len(a.AnswerIDs))
		for _, raw := range a.AnswerIDs {
			if raw != math.Trunc(raw) || math.IsInf(raw, 0) {
				response.ValidationError(w, "Invalid answer", fmt.Sprintf("answers[%d].answerIds must be integers", i))
				return
			}
			answerIDs = append(answerIDs, int64(raw))
		}
		req.Answers = append(req.Answers, AnswerSubmission{QuestionID: questionID, AnswerIDs: answerIDs})
	}

	result, err := h.service.SubmitQuiz(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"totalQuestions": result.TotalQuestions,
		"correctCount":   result.CorrectCount,
		"attemptId":      result.AttemptID,
	})
}

func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	attemptID, err := pathID(r, "attemptId")
	if err != nil {
		response.ValidationError(w, "Invalid attempt id", err.Error())
		return
	}

	results, err := h.service.GetQuizResults(r.Context(), attemptID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) GetExamAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	attemptID, err := pathID(r, "id")
	if err != nil {
		response.ValidationError(w, "Invalid attempt id", err.Error())
		return
	}

	attempt, err := h.service.GetExamAttempt(r.Context(), attemptID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, attemptView{
		AttemptID:   attempt.ID,
		QuestionIDs: attempt.QuestionIDs,
		ExamID:      attempt.ExamID,
		StartedAt:   attempt.StartedAt,
		FinishedAt:  attempt.FinishedAt,
	})
}

func (h *Handler) GetAttemptQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	attemptID, err := pathID(r, "id")
	if err != nil {
		response.ValidationError(w, "Invalid attempt id", err.Error())
		return
	}

	questions, err := h.service.GetAttemptQuestions(r.Context(), attemptID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, questions)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	questionID, err := pathID(r, "id")
	if err != nil {
		response.ValidationError(w, "Invalid question id", err.Error())
		return
	}

	question, err := h.service.GetQuestionForAttempt(r.Context(), questionID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"question": question})
}

// writeServiceError is the single place service errors become HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.ValidationError(w, validationErr.Message, validationErr.Details)
	case errors.Is(err, auth.ErrUnauthorized):
		response.Unauthorized(w, "Authentication required")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Resource not found")
	case errors.Is(err, ErrAttemptFinished):
		response.Conflict(w, "Exam attempt is already finished")
	case errors.Is(err, ErrDataIntegrity):
		log.Printf("Data integrity error: %v", err)
		response.WriteError(w, http.StatusInternalServerError, response.CodeInternal, "An internal error occurred", "")
	default:
		response.DatabaseError(w, err)
	}
}

func pathID(r *http.Request, key string) (uint, error) {
	value := strings.TrimSpace(mux.Vars(r)[key])
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return uint(parsed), nil
}

func positiveInt(v float64) (uint, bool) {
	if v < 1 || v != math.Trunc(v) || v > math.MaxUint32 {
		return 0, false
	}
	return uint(v), true
}
