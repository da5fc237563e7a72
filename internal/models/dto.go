// internal/models/dto.go
package models

import "time"

// QuestionForClient is what a quiz taker sees before submitting: no correct
// answer and no explanation.
type QuestionForClient struct {
	ID               uint     `json:"id"`
	Body             string   `json:"body"`
	Choices          []Choice `json:"choices"`
	SelectionCount   int      `json:"selection_count"`
	ExamCategoriesID uint     `json:"exam_categories_id"`
}

func (q Question) ToClientDTO() QuestionForClient {
	choices := q.Choices
	if choices == nil {
		choices = []Choice{}
	}

	selectionCount := q.SelectionCount
	if selectionCount <= 0 {
		selectionCount = len(q.CorrectKey)
	}
	if selectionCount <= 0 {
		selectionCount = 1 // Single choice if nothing else is known
	}

	return QuestionForClient{
		ID:               q.ID,
		Body:             q.Body,
		Choices:          choices,
		SelectionCount:   selectionCount,
		ExamCategoriesID: q.ExamCategoriesID,
	}
}

type CategoryWithCount struct {
	ID            uint    `json:"id"`
	CategoryName  string  `json:"category_name"`
	Description   *string `json:"description"`
	QuestionCount int     `json:"question_count"`
}

type CategoryQuestionCount struct {
	CategoryID    uint `json:"category_id"`
	QuestionCount int  `json:"question_count"`
}

// ExamWithStats is an exam row plus the numbers shown on the exam list. The
// per-user part is nil for anonymous callers and then left out of the JSON.
type ExamWithStats struct {
	Exam
	TotalQuestions int `json:"totalQuestions"`
	*UserExamStats
}

type UserExamStats struct {
	UserAttempts          int        `json:"userAttempts"`
	UserAnsweredQuestions int        `json:"userAnsweredQuestions"`
	UserCorrectAnswers    int        `json:"userCorrectAnswers"`
	BestScore             int        `json:"bestScore"`
	LastAttemptDate       *time.Time `json:"lastAttemptDate"`
	Accuracy              int        `json:"accuracy"`
}

type ExamStats struct {
	TotalQuestions    int `json:"totalQuestions"`
	TotalCategories   int `json:"totalCategories"`
	ActiveUsers       int `json:"activeUsers"`
	CompletedAttempts int `json:"completedAttempts"`
}

type QuestionResponseWithDetails struct {
	QuestionResponse
	Question *Question `json:"question"`
}

// UserProfile is the sanitised user record returned to its owner.
type UserProfile struct {
	ID          uint       `json:"id"`
	SubjectID   string     `json:"subject_id"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Provider    string     `json:"provider"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

func (u User) ToProfile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		SubjectID:   u.SubjectID,
		Name:        u.Name,
		Role:        u.Role,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
