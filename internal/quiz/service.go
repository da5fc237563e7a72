// internal/quiz/service.go
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"exam-quiz/internal/models"
)

// EventPublisher delivers a live event to every connection of one user.
type EventPublisher interface {
	PublishToUser(userID uint, eventType string, data interface{})
}

type Service struct {
	repo   *Repository
	events EventPublisher
	now    func() time.Time
}

func NewService(repo *Repository, events EventPublisher) *Service {
	return &Service{
		repo:   repo,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetExamByID(ctx context.Context, examID uint) (*models.Exam, error) {
	return s.repo.GetExamByID(ctx, examID)
}

// ListExams returns the active exams with their question totals. When userID
// is set each exam also carries that user's attempt statistics.
func (s *Service) ListExams(ctx context.Context, userID *uint) ([]models.ExamWithStats, error) {
	exams, err := s.repo.GetActiveExams(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.QuestionTotalsByExam(ctx)
	if err != nil {
		log.Printf("Error counting questions per exam: %v", err)
		return nil, err
	}

	var perExam map[uint]*models.UserExamStats
	if userID != nil {
		attempts, err := s.repo.GetFinishedAttempts(ctx, *userID)
		if err != nil {
			log.Printf("Error loading finished attempts for user %d: %v", *userID, err)
			return nil, err
		}
		perExam = aggregateUserStats(attempts)
	}

	out := make([]models.ExamWithStats, 0, len(exams))
	for _, exam := range exams {
		item := models.ExamWithStats{Exam: exam, TotalQuestions: totals[exam.ID]}
		if userID != nil {
			stats, ok := perExam[exam.ID]
			if !ok {
				stats = &models.UserExamStats{}
			}
			item.UserExamStats = stats
		}
		out = append(out, item)
	}
	return out, nil
}

func aggregateUserStats(attempts []models.ExamAttempt) map[uint]*models.UserExamStats {
	stats := make(map[uint]*models.UserExamStats)
	for _, a := range attempts {
		st, ok := stats[a.ExamID]
		if !ok {
			st = &models.UserExamStats{}
			stats[a.ExamID] = st
		}

		answered, correct := 0, 0
		if a.AnswerCount != nil {
			answered = *a.AnswerCount
		}
		if a.CorrectCount != nil {
			correct = *a.CorrectCount
		}

		st.UserAttempts++
		st.UserAnsweredQuestions += answered
		st.UserCorrectAnswers += correct
		if score := ScorePercentage(correct, answered); score > st.BestScore {
			st.BestScore = score
		}
		if a.FinishedAt != nil && (st.LastAttemptDate == nil || a.FinishedAt.After(*st.LastAttemptDate)) {
			finished := *a.FinishedAt
			st.LastAttemptDate = &finished
		}
	}

	for _, st := range stats {
		st.Accuracy = ScorePercentage(st.UserCorrectAnswers, st.UserAnsweredQuestions)
	}
	return stats
}

func (s *Service) GetExamCategories(ctx context.Context, examID uint) (*ExamCategories, error) {
	if _, err := s.repo.GetExamByID(ctx, examID); err != nil {
		return nil, err
	}

	categories, err := s.repo.GetExamCategories(ctx, examID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range categories {
		total += c.QuestionCount
	}
	if categories == nil {
		categories = []models.CategoryWithCount{}
	}
	return &ExamCategories{Categories: categories, TotalQuestions: total}, nil
}

func (s *Service) GetExamStats(ctx context.Context, examID uint) (*models.ExamStats, error) {
	if _, err := s.repo.GetExamByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.repo.GetExamStats(ctx, examID)
}

func (s *Service) GetCategoryQuestionCounts(ctx context.Context, examID uint, categoryIDs []uint) ([]models.CategoryQuestionCount, error) {
	return s.repo.GetCategoryQuestionCounts(ctx, examID, uniqueIDs(categoryIDs))
}

func (s *Service) GetRandomQuestions(ctx context.Context, examID uint, categoryIDs []uint, limit int) ([]models.Question, error) {
	return s.repo.GetRandomQuestions(ctx, examID, uniqueIDs(categoryIDs), limit)
}

// CreateExamAttempt freezes the served question set. Non-positive ids are
// dropped with a warning; nothing left is an error.
func (s *Service) CreateExamAttempt(ctx context.Context, userID, examID uint, questionIDs []int64) (uint, error) {
	valid := models.PositiveIDs(questionIDs)
	if dropped := len(questionIDs) - len(valid); dropped > 0 {
		log.Printf("Warning: dropped %d invalid question ids for user %d exam %d", dropped, userID, examID)
	}
	if len(valid) == 0 {
		return 0, &ValidationError{Message: "No valid question ids for exam attempt"}
	}

	attempt := &models.ExamAttempt{
		UserID:      userID,
		ExamID:      examID,
		QuestionIDs: valid,
		StartedAt:   s.now(),
	}
	if err := s.repo.CreateExamAttempt(ctx, attempt); err != nil {
		return 0, err
	}
	return attempt.ID, nil
}

func (s *Service) GetExamAttempt(ctx context.Context, attemptID, userID uint) (*models.ExamAttempt, error) {
	return s.repo.GetExamAttempt(ctx, attemptID, userID)
}

func (s *Service) GetQuestionByID(ctx context.Context, questionID uint) (*models.Question, error) {
	return s.repo.GetQuestionByID(ctx, questionID)
}

func (s *Service) SaveQuestionResponse(ctx context.Context, attemptID, questionID uint, answerIDs []int64, isCorrect bool, feedback *string) (*models.QuestionResponse, error) {
	response := &models.QuestionResponse{
		AttemptID:  attemptID,
		QuestionID: questionID,
		AnswerIDs:  answerIDs,
		IsCorrect:  isCorrect,
		AnsweredAt: s.now(),
		Feedback:   feedback,
	}
	if err := s.repo.SaveQuestionResponse(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// FinishExamAttempt closes an open attempt. ErrAttemptFinished means another
// request closed it first.
func (s *Service) FinishExamAttempt(ctx context.Context, attemptID uint, answerCount, correctCount int) error {
	ok, err := s.repo.FinishExamAttempt(ctx, attemptID, answerCount, correctCount, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAttemptFinished
	}
	return nil
}

func (s *Service) StartQuiz(ctx context.Context, userID uint, req StartQuizRequest) (*StartQuizResult, error) {
	if req.QuestionCount < 1 || req.QuestionCount > maxRandomQuestions {
		return nil, newValidationError("Invalid question count", "questionCount must be between 1 and %d", maxRandomQuestions)
	}
	categoryIDs := uniqueIDs(req.CategoryIDs)
	if len(categoryIDs) == 0 {
		return nil, &ValidationError{Message: "At least one category is required"}
	}

	if _, err := s.repo.GetExamByID(ctx, req.ExamID); err != nil {
		return nil, err
	}

	counts, err := s.repo.GetCategoryQuestionCounts(ctx, req.ExamID, categoryIDs)
	if err != nil {
		return nil, err
	}
	available := 0
	for _, c := range counts {
		available += c.QuestionCount
	}
	if available < req.QuestionCount {
		log.Printf("User %d asked for %d questions of exam %d, only %d available", userID, req.QuestionCount, req.ExamID, available)
		return nil, newValidationError("Not enough questions available", "required: %d, available: %d", req.QuestionCount, available)
	}

	questions, err := s.repo.GetRandomQuestions(ctx, req.ExamID, categoryIDs, req.QuestionCount)
	if err != nil {
		return nil, err
	}
	if len(questions) != req.QuestionCount {
		return nil, fmt.Errorf("%w: sampled %d questions, expected %d", ErrDataIntegrity, len(questions), req.QuestionCount)
	}

	ids := make([]int64, 0, len(questions))
	seen := make(map[uint]bool, len(questions))
	for _, q := range questions {
		if q.ID == 0 || seen[q.ID] {
			return nil, fmt.Errorf("%w: invalid question id %d in sample", ErrDataIntegrity, q.ID)
		}
		seen[q.ID] = true
		ids = append(ids, int64(q.ID))
	}

	attemptID, err := s.CreateExamAttempt(ctx, userID, req.ExamID, ids)
	if err != nil {
		return nil, err
	}
	log.Printf("User %d started attempt %d for exam %d with %d questions", userID, attemptID, req.ExamID, len(ids))

	s.publish(userID, EventAttemptStarted, AttemptEvent{
		AttemptID:     attemptID,
		ExamID:        req.ExamID,
		QuestionCount: len(ids),
		At:            s.now(),
	})

	return &StartQuizResult{AttemptID: attemptID, QuestionIDs: models.PositiveIDs(ids)}, nil
}

// SubmitQuiz scores and records the answers and finishes the attempt in one
// transaction. Answers for questions outside the frozen set, repeats within
// the request and questions that no longer exist are skipped.
func (s *Service) SubmitQuiz(ctx context.Context, userID uint, req SubmitQuizRequest) (*SubmitQuizResult, error) {
	var (
		result   SubmitQuizResult
		examID   uint
		finished time.Time
	)

	err := s.repo.WithTx(ctx, func(tx *Repository) error {
		attempt, err := tx.GetExamAttempt(ctx, req.AttemptID, userID)
		if err != nil {
			return err
		}
		if attempt.IsFinished() {
			return ErrAttemptFinished
		}
		examID = attempt.ExamID

		frozen := make(map[uint]bool, len(attempt.QuestionIDs))
		for _, id := range attempt.QuestionIDs {
			frozen[id] = true
		}

		recorded, correct := 0, 0
		answered := make(map[uint]bool, len(req.Answers))
		for _, answer := range req.Answers {
			if !frozen[answer.QuestionID] {
				log.Printf("Skipping answer for question %d: not part of attempt %d", answer.QuestionID, attempt.ID)
				continue
			}
			if answered[answer.QuestionID] {
				log.Printf("Skipping repeated answer for question %d in attempt %d", answer.QuestionID, attempt.ID)
				continue
			}

			question, err := tx.GetQuestionByID(ctx, answer.QuestionID)
			if errors.Is(err, ErrNotFound) {
				log.Printf("Skipping answer for question %d in attempt %d: question not found", answer.QuestionID, attempt.ID)
				continue
			}
			if err != nil {
				return err
			}

			isCorrect := IsCorrectAnswer(answer.AnswerIDs, question.CorrectKey)
			response := &models.QuestionResponse{
				AttemptID:  attempt.ID,
				QuestionID: question.ID,
				AnswerIDs:  answer.AnswerIDs,
				IsCorrect:  isCorrect,
				AnsweredAt: s.now(),
			}
			if err := tx.SaveQuestionResponse(ctx, response); err != nil {
				return err
			}

			answered[answer.QuestionID] = true
			recorded++
			if isCorrect {
				correct++
			}
		}

		finished = s.now()
		ok, err := tx.FinishExamAttempt(ctx, attempt.ID, recorded, correct, finished)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("Attempt %d was finished by a concurrent submit", attempt.ID)
			return ErrAttemptFinished
		}

		result = SubmitQuizResult{AttemptID: attempt.ID, TotalQuestions: recorded, CorrectCount: correct}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %d finished attempt %d: %d/%d correct", userID, result.AttemptID, result.CorrectCount, result.TotalQuestions)
	s.publish(userID, EventAttemptFinished, AttemptEvent{
		AttemptID:      result.AttemptID,
		ExamID:         examID,
		CorrectCount:   result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		At:             finished,
		FinishedAt:     &finished,
	})
	return &result, nil
}

// GetAttemptQuestions returns the frozen question set in attempt order,
// stripped of answers and explanations.
func (s *Service) GetAttemptQuestions(ctx context.Context, attemptID, userID uint) (*AttemptQuestions, error) {
	attempt, err := s.repo.GetExamAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.GetQuestionsByIDs(ctx, attempt.QuestionIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(attempt.QuestionIDs) {
		log.Printf("Attempt %d references %d questions, %d still available", attempt.ID, len(attempt.QuestionIDs), len(questions))
	}

	out := make([]models.QuestionForClient, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ToClientDTO())
	}
	return &AttemptQuestions{Attempt: attempt, Questions: out}, nil
}

// GetQuestionForAttempt serves a single question only to a user with an open
// attempt that contains it.
func (s *Service) GetQuestionForAttempt(ctx context.Context, questionID, userID uint) (*models.QuestionForClient, error) {
	attempts, err := s.repo.GetUnfinishedAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}

	referenced := false
	for _, a := range attempts {
		for _, id := range a.QuestionIDs {
			if id == questionID {
				referenced = true
				break
			}
		}
		if referenced {
			break
		}
	}
	if !referenced {
		return nil, ErrNotFound
	}

	question, err := s.repo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	dto := question.ToClientDTO()
	return &dto, nil
}

// GetQuizResults reports a finished attempt using the latest response per
// question. Responses whose question has since been deleted are left out.
func (s *Service) GetQuizResults(ctx context.Context, attemptID, userID uint) (*QuizResults, error) {
	attempt, err := s.repo.GetExamAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsFinished() {
		return nil, ErrNotFound
	}

	exam, err := s.repo.GetAnyExamByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	responses, err := s.repo.GetLatestResponses(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.QuestionID)
	}
	questions, err := s.repo.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	results := &QuizResults{
		Attempt:   attempt,
		Exam:      exam,
		Responses: make([]models.QuestionResponseWithDetails, 0, len(responses)),
	}
	for _, r := range responses {
		q, ok := byID[r.QuestionID]
		if !ok {
			log.Printf("Question %d of attempt %d is gone, leaving it out of the results", r.QuestionID, attempt.ID)
			continue
		}
		results.Responses = append(results.Responses, models.QuestionResponseWithDetails{QuestionResponse: r, Question: q})
		if r.IsCorrect {
			results.CorrectCount++
		}
	}
	results.TotalQuestions = len(results.Responses)
	results.IncorrectCount = results.TotalQuestions - results.CorrectCount
	results.ScorePercentage = ScorePercentage(results.CorrectCount, results.TotalQuestions)
	return results, nil
}

func (s *Service) publish(userID uint, eventType string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.PublishToUser(userID, eventType, data)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
