// internal/models/quiz.go
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderGoogle = "google"
	ProviderLocal  = "local"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Provider     string         `json:"provider" gorm:"not null;uniqueIndex:idx_users_provider_subject"`
	SubjectID    string         `json:"subject_id" gorm:"not null;uniqueIndex:idx_users_provider_subject"`
	Name         string         `json:"name" gorm:"not null"`
	Role         string         `json:"role" gorm:"not null;default:'user'"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

type Exam struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ExamName    string    `json:"exam_name" gorm:"not null"`
	ExamCode    string    `json:"exam_code" gorm:"not null;uniqueIndex"`
	Level       *string   `json:"level"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Category struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CategoryName string    `json:"category_name" gorm:"not null;uniqueIndex"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

type ExamCategory struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExamID     uint      `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_categories_pair"`
	CategoryID uint      `json:"category_id" gorm:"not null;uniqueIndex:idx_exam_categories_pair"`
	Exam       *Exam     `json:"-" gorm:"foreignKey:ExamID"`
	Category   *Category `json:"-" gorm:"foreignKey:CategoryID"`
}

// Choice is one selectable answer of a question.
type Choice struct {
	ChoiceID   int64  `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
}

// Question keeps choices and correct_key as JSON columns. The decoded forms
// live in Choices and CorrectKey and are filled by the repository on read.
type Question struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Body             string         `json:"body" gorm:"not null"`
	Explanation      string         `json:"explanation" gorm:"not null"`
	ChoicesJSON      datatypes.JSON `json:"-" gorm:"column:choices;not null"`
	CorrectKeyJSON   datatypes.JSON `json:"-" gorm:"column:correct_key;not null"`
	SelectionCount   int            `json:"selection_count" gorm:"not null"`
	ExamCategoriesID uint           `json:"exam_categories_id" gorm:"column:exam_categories_id;not null;index"`
	ExamCategory     *ExamCategory  `json:"-" gorm:"foreignKey:ExamCategoriesID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	Choices    []Choice `json:"choices" gorm:"-"`
	CorrectKey []int64  `json:"correct_key" gorm:"-"`
}

type ExamAttempt struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          uint           `json:"user_id" gorm:"not null;index"`
	ExamID          uint           `json:"exam_id" gorm:"not null;index"`
	QuestionIDsJSON datatypes.JSON `json:"-" gorm:"column:question_ids;not null"`
	StartedAt       time.Time      `json:"started_at" gorm:"not null"`
	FinishedAt      *time.Time     `json:"finished_at"`
	AnswerCount     *int           `json:"answer_count"`
	CorrectCount    *int           `json:"correct_count"`
	User            *User          `json:"-" gorm:"foreignKey:UserID"`
	Exam            *Exam          `json:"-" gorm:"foreignKey:ExamID"`

	QuestionIDs []uint `json:"question_ids" gorm:"-"`
}

// IsFinished reports whether the attempt reached its terminal state.
func (a *ExamAttempt) IsFinished() bool {
	return a.FinishedAt != nil
}

type QuestionResponse struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	AttemptID     uint           `json:"attempt_id" gorm:"not null;index"`
	QuestionID    uint           `json:"question_id" gorm:"not null;index"`
	AnswerIDsJSON datatypes.JSON `json:"-" gorm:"column:answer_ids;not null"`
	IsCorrect     bool           `json:"is_correct" gorm:"not null"`
	AnsweredAt    time.Time      `json:"answered_at" gorm:"not null"`
	Feedback      *string        `json:"feedback"`
	Attempt       *ExamAttempt   `json:"-" gorm:"foreignKey:AttemptID"`
	Question      *Question      `json:"-" gorm:"foreignKey:QuestionID"`

	AnswerIDs []int64 `json:"answer_ids" gorm:"-"`
}

// Session is the server-side record behind a signed session token.
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	SubjectID string    `json:"subject_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Exam{},
		&Category{},
		&ExamCategory{},
		&Question{},
		&ExamAttempt{},
		&QuestionResponse{},
	}
}
