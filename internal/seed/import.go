package seed

import (
	"context"
	"errors"
	"log"
	"strings"

	"exam-quiz/internal/models"

	"gorm.io/gorm"
)

type Stats struct {
	Exams             int
	Categories        int
	QuestionsAdded    int
	QuestionsExisting int
}

// Import writes the bank in one transaction. Exams are matched by code,
// categories by name and questions by body within their exam category, so
// importing the same file twice adds nothing.
func Import(ctx context.Context, db *gorm.DB, bank *Bank) (*Stats, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}

	stats := &Stats{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range bank.Exams {
			exam, err := upsertExam(tx, def)
			if err != nil {
				return err
			}
			stats.Exams++

			for _, catDef := range def.Categories {
				category, err := upsertCategory(tx, catDef)
				if err != nil {
					return err
				}
				stats.Categories++

				link := models.ExamCategory{ExamID: exam.ID, CategoryID: category.ID}
				if err := tx.Where(link).FirstOrCreate(&link).Error; err != nil {
					return err
				}

				for _, qDef := range catDef.Questions {
					added, err := addQuestion(tx, link.ID, qDef)
					if err != nil {
						return err
					}
					if added {
						stats.QuestionsAdded++
					} else {
						stats.QuestionsExisting++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Imported %d exams, %d categories, %d new questions (%d already present)",
		stats.Exams, stats.Categories, stats.QuestionsAdded, stats.QuestionsExisting)
	return stats, nil
}

func upsertExam(tx *gorm.DB, def ExamDef) (*models.Exam, error) {
	active := true
	if def.Active != nil {
		active = *def.Active
	}

	var exam models.Exam
	err := tx.Where("exam_code = ?", def.Code).First(&exam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		exam = models.Exam{
			ExamCode:    def.Code,
			ExamName:    def.Name,
			Level:       optional(def.Level),
			Description: optional(def.Description),
			IsActive:    active,
		}
		return &exam, tx.Create(&exam).Error
	}
	if err != nil {
		return nil, err
	}

	err = tx.Model(&exam).Updates(map[string]interface{}{
		"exam_name":   def.Name,
		"level":       optional(def.Level),
		"description": optional(def.Description),
		"is_active":   active,
	}).Error
	return &exam, err
}

func upsertCategory(tx *gorm.DB, def CategoryDef) (*models.Category, error) {
	var category models.Category
	err := tx.Where("category_name = ?", def.Name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = models.Category{CategoryName: def.Name, Description: optional(def.Description)}
		return &category, tx.Create(&category).Error
	}
	return &category, err
}

func addQuestion(tx *gorm.DB, examCategoryID uint, def QuestionDef) (bool, error) {
	var existing int64
	err := tx.Model(&models.Question{}).
		Where("exam_categories_id = ? AND body = ?", examCategoryID, def.Body).
		Count(&existing).Error
	if err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	choices := make([]models.Choice, 0, len(def.Choices))
	for _, c := range def.Choices {
		choices = append(choices, models.Choice{ChoiceID: c.ID, ChoiceText: c.Text})
	}
	choicesJSON, err := models.EncodeJSONList(choices)
	if err != nil {
		return false, err
	}
	correctJSON, err := models.EncodeJSONList(def.Correct)
	if err != nil {
		return false, err
	}

	selection := def.SelectionCount
	if selection <= 0 {
		selection = len(def.Correct)
	}

	question := models.Question{
		Body:             def.Body,
		Explanation:      def.Explanation,
		ChoicesJSON:      choicesJSON,
		CorrectKeyJSON:   correctJSON,
		SelectionCount:   selection,
		ExamCategoriesID: examCategoryID,
	}
	return true, tx.Create(&question).Error
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
