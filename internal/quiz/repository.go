// internal/quiz/repository.go
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"exam-quiz/internal/models"

	"gorm.io/gorm"
)

const maxRandomQuestions = 1000

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn with a repository bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) GetActiveExams(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc, id asc").
		Find(&exams).Error
	if err != nil {
		log.Printf("Error listing active exams: %v", err)
		return nil, err
	}
	return exams, nil
}

func (r *Repository) GetExamByID(ctx context.Context, examID uint) (*models.Exam, error) {
	var exam models.Exam
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", examID, true).
		First(&exam).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &exam, nil
}

// GetAnyExamByID ignores is_active; finished attempts keep their exam.
func (r *Repository) GetAnyExamByID(ctx context.Context, examID uint) (*models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).First(&exam, examID).Error; err != nil {
		return nil, notFound(err)
	}
	return &exam, nil
}

func (r *Repository) GetExamCategories(ctx context.Context, examID uint) ([]models.CategoryWithCount, error) {
	var categories []models.CategoryWithCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.id, c.category_name, c.description, COUNT(q.id) AS question_count
		FROM categories c
		INNER JOIN exam_categories ec ON c.id = ec.category_id
		LEFT JOIN questions q ON ec.id = q.exam_categories_id AND q.deleted_at IS NULL
		WHERE ec.exam_id = ?
		GROUP BY c.id, c.category_name, c.description
		ORDER BY c.category_name
	`, examID).Scan(&categories).Error
	if err != nil {
		log.Printf("Error getting categories for exam %d: %v", examID, err)
		return nil, err
	}
	return categories, nil
}

func (r *Repository) GetCategoryQuestionCounts(ctx context.Context, examID uint, categoryIDs []uint) ([]models.CategoryQuestionCount, error) {
	if len(categoryIDs) == 0 {
		return []models.CategoryQuestionCount{}, nil
	}

	var counts []models.CategoryQuestionCount
	err := r.db.WithContext(ctx).Raw(`
		SELECT ec.category_id, COUNT(q.id) AS question_count
		FROM questions q
		INNER JOIN exam_categories ec ON q.exam_categories_id = ec.id
		WHERE ec.exam_id = ?
		  AND ec.category_id IN ?
		  AND q.deleted_at IS NULL
		GROUP BY ec.category_id
	`, examID, categoryIDs).Scan(&counts).Error
	if err != nil {
		log.Printf("Error counting questions for exam %d: %v", examID, err)
		return nil, err
	}
	return counts, nil
}

// GetRandomQuestions samples in the database. No per-category balance is
// attempted, and limit is clamped to [1, 1000].
func (r *Repository) GetRandomQuestions(ctx context.Context, examID uint, categoryIDs []uint, limit int) ([]models.Question, error) {
	if len(categoryIDs) == 0 {
		return []models.Question{}, nil
	}
	limit = clampLimit(limit)

	var questions []models.Question
	err := r.db.WithContext(ctx).
		Select("questions.*").
		Joins("INNER JOIN exam_categories ec ON questions.exam_categories_id = ec.id").
		Where("ec.exam_id = ? AND ec.category_id IN ?", examID, categoryIDs).
		Order("RANDOM()").
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		log.Printf("Error sampling questions for exam %d: %v", examID, err)
		return nil, err
	}

	for i := range questions {
		hydrateQuestion(&questions[i])
	}
	return questions, nil
}

func (r *Repository) CreateExamAttempt(ctx context.Context, attempt *models.ExamAttempt) error {
	data, err := models.EncodeJSONList(attempt.QuestionIDs)
	if err != nil {
		return err
	}
	attempt.QuestionIDsJSON = data

	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		log.Printf("Error creating exam attempt: %v", err)
		return err
	}
	if attempt.ID == 0 {
		return fmt.Errorf("create exam attempt: no id assigned")
	}
	return nil
}

// GetExamAttempt filters by owner in the query itself, so a foreign attempt
// is indistinguishable from a missing one.
func (r *Repository) GetExamAttempt(ctx context.Context, attemptID, userID uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", attemptID, userID).
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	hydrateAttempt(&attempt)
	return &attempt, nil
}

func (r *Repository) GetUnfinishedAttempts(ctx context.Context, userID uint) ([]models.ExamAttempt, error) {
	var attempts []models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND finished_at IS NULL", userID).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	for i := range attempts {
		hydrateAttempt(&attempts[i])
	}
	return attempts, nil
}

func (r *Repository) GetFinishedAttempts(ctx context.Context, userID uint) ([]models.ExamAttempt, error) {
	var attempts []models.ExamAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND finished_at IS NOT NULL", userID).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *Repository) GetQuestionByID(ctx context.Context, questionID uint) (*models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, questionID).Error; err != nil {
		return nil, notFound(err)
	}
	hydrateQuestion(&question)
	return &question, nil
}

// GetQuestionsByIDs returns the non-deleted questions among ids, in the order
// of ids. Missing ids are simply absent from the result.
func (r *Repository) GetQuestionsByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}

	var found []models.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Question, len(found))
	for _, q := range found {
		hydrateQuestion(&q)
		byID[q.ID] = q
	}

	ordered := make([]models.Question, 0, len(found))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// SaveQuestionResponse appends a response. A missing attempt or question is
// a referential problem on our side, not a user error.
func (r *Repository) SaveQuestionResponse(ctx context.Context, response *models.QuestionResponse) error {
	var attempts int64
	if err := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("id = ?", response.AttemptID).
		Count(&attempts).Error; err != nil {
		return err
	}
	if attempts == 0 {
		return fmt.Errorf("%w: exam attempt %d does not exist", ErrDataIntegrity, response.AttemptID)
	}

	var questions int64
	if err := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", response.QuestionID).
		Count(&questions).Error; err != nil {
		return err
	}
	if questions == 0 {
		return fmt.Errorf("%w: question %d does not exist or is deleted", ErrDataIntegrity, response.QuestionID)
	}

	data, err := models.EncodeJSONList(response.AnswerIDs)
	if err != nil {
		return err
	}
	response.AnswerIDsJSON = data
	if response.AnsweredAt.IsZero() {
		response.AnsweredAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		log.Printf("Error saving response for attempt %d question %d: %v", response.AttemptID, response.QuestionID, err)
		return err
	}
	return nil
}

// FinishExamAttempt only touches an attempt that is still open. It reports
// false when another request finished it first.
func (r *Repository) FinishExamAttempt(ctx context.Context, attemptID uint, answerCount, correctCount int, finishedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ExamAttempt{}).
		Where("id = ? AND finished_at IS NULL", attemptID).
		Updates(map[string]interface{}{
			"finished_at":   finishedAt,
			"answer_count":  answerCount,
			"correct_count": correctCount,
		})
	if result.Error != nil {
		log.Printf("Error finishing exam attempt %d: %v", attemptID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetLatestResponses returns one response per question of the attempt: the
// one answered last, with the higher id winning a timestamp tie. The result is
// ordered by answer time.
func (r *Repository) GetLatestResponses(ctx context.Context, attemptID uint) ([]models.QuestionResponse, error) {
	var responses []models.QuestionResponse
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("answered_at asc, id asc").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]models.QuestionResponse, len(responses))
	for _, resp := range responses {
		latest[resp.QuestionID] = resp
	}

	out := make([]models.QuestionResponse, 0, len(latest))
	for _, resp := range latest {
		hydrateResponse(&resp)
		out = append(out, resp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.Before(out[j].AnsweredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// QuestionTotalsByExam counts non-deleted questions per exam.
func (r *Repository) QuestionTotalsByExam(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		ExamID         uint
		TotalQuestions int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT ec.exam_id, COUNT(DISTINCT q.id) AS total_questions
		FROM exam_categories ec
		INNER JOIN questions q ON ec.id = q.exam_categories_id
		WHERE q.deleted_at IS NULL
		GROUP BY ec.exam_id
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.ExamID] = row.TotalQuestions
	}
	return totals, nil
}

func (r *Repository) GetExamStats(ctx context.Context, examID uint) (*models.ExamStats, error) {
	var stats models.ExamStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM questions q
			 INNER JOIN exam_categories ec ON q.exam_categories_id = ec.id
			 WHERE ec.exam_id = ? AND q.deleted_at IS NULL) AS total_questions,
			(SELECT COUNT(DISTINCT ec.category_id) FROM exam_categories ec
			 WHERE ec.exam_id = ?) AS total_categories,
			(SELECT COUNT(DISTINCT ea.user_id) FROM exam_attempts ea
			 WHERE ea.exam_id = ?) AS active_users,
			(SELECT COUNT(*) FROM exam_attempts ea
			 WHERE ea.exam_id = ? AND ea.finished_at IS NOT NULL) AS completed_attempts
	`, examID, examID, examID, examID).Scan(&stats).Error
	if err != nil {
		log.Printf("Error getting stats for exam %d: %v", examID, err)
		return nil, err
	}
	return &stats, nil
}

func hydrateQuestion(q *models.Question) {
	choices, err := models.DecodeJSONList[models.Choice](q.ChoicesJSON)
	if err != nil {
		log.Printf("Failed to parse choices of question %d: %v", q.ID, err)
		choices = []models.Choice{}
	}
	q.Choices = choices

	correct, err := models.DecodeIDList(q.CorrectKeyJSON)
	if err != nil {
		log.Printf("Failed to parse correct_key of question %d: %v", q.ID, err)
		correct = []int64{}
	}
	q.CorrectKey = correct
}

func hydrateAttempt(a *models.ExamAttempt) {
	ids, err := models.DecodeIDList(a.QuestionIDsJSON)
	if err != nil {
		log.Printf("Failed to parse question_ids of attempt %d: %v", a.ID, err)
		a.QuestionIDs = []uint{}
		return
	}
	a.QuestionIDs = models.PositiveIDs(ids)
}

func hydrateResponse(resp *models.QuestionResponse) {
	ids, err := models.DecodeIDList(resp.AnswerIDsJSON)
	if err != nil {
		log.Printf("Failed to parse answer_ids of response %d: %v", resp.ID, err)
		ids = []int64{}
	}
	resp.AnswerIDs = ids
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxRandomQuestions {
		return maxRandomQuestions
	}
	return limit
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
