// internal/quiz/types.go
package quiz

import (
	"time"

	"exam-quiz/internal/models"
)

type StartQuizRequest struct {
	ExamID        uint
	CategoryIDs   []uint
	QuestionCount int
}

type StartQuizResult struct {
	AttemptID   uint   `json:"attemptId"`
	QuestionIDs []uint `json:"questionIds"`
}

type AnswerSubmission struct {
	QuestionID uint
	AnswerIDs  []int64
}

type SubmitQuizRequest struct {
	AttemptID uint
	Answers   []AnswerSubmission
}

type SubmitQuizResult struct {
	AttemptID      uint `json:"attemptId"`
	TotalQuestions int  `json:"totalQuestions"`
	CorrectCount   int  `json:"correctCount"`
}

type ExamCategories struct {
	Categories     []models.CategoryWithCount `json:"categories"`
	TotalQuestions int                        `json:"totalQuestions"`
}

type AttemptQuestions struct {
	Attempt   *models.ExamAttempt        `json:"attempt"`
	Questions []models.QuestionForClient `json:"questions"`
}

type QuizResults struct {
	Attempt         *models.ExamAttempt                  `json:"attempt"`
	Exam            *models.Exam                         `json:"exam"`
	TotalQuestions  int                                  `json:"totalQuestions"`
	CorrectCount    int                                  `json:"correctCount"`
	IncorrectCount  int                                  `json:"incorrectCount"`
	ScorePercentage int                                  `json:"scorePercentage"`
	Responses       []models.QuestionResponseWithDetails `json:"responses"`
}

// Event payloads pushed to the attempt owner's live connections.
const (
	EventAttemptStarted  = "attempt_started"
	EventAttemptFinished = "attempt_finished"
)

type AttemptEvent struct {
	AttemptID      uint       `json:"attemptId"`
	ExamID         uint       `json:"examId"`
	QuestionCount  int        `json:"questionCount,omitempty"`
	CorrectCount   int        `json:"correctCount,omitempty"`
	TotalQuestions int        `json:"totalQuestions,omitempty"`
	At             time.Time  `json:"at"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}
