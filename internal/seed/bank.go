// Package seed loads question banks from YAML files into the store.
package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Bank struct {
	Exams []ExamDef `yaml:"exams"`
}

type ExamDef struct {
	Code        string        `yaml:"code"`
	Name        string        `yaml:"name"`
	Level       string        `yaml:"level"`
	Description string        `yaml:"description"`
	Active      *bool         `yaml:"active"`
	Categories  []CategoryDef `yaml:"categories"`
}

type CategoryDef struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Questions   []QuestionDef `yaml:"questions"`
}

type QuestionDef struct {
	Body           string      `yaml:"body"`
	Explanation    string      `yaml:"explanation"`
	Choices        []ChoiceDef `yaml:"choices"`
	Correct        []int64     `yaml:"correct"`
	SelectionCount int         `yaml:"selection_count"`
}

type ChoiceDef struct {
	ID   int64  `yaml:"id"`
	Text string `yaml:"text"`
}

var validLevels = map[string]bool{"": true, "beginner": true, "intermediate": true, "advanced": true}

func LoadFile(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	bank := &Bank{}
	if err := dec.Decode(bank); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := bank.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bank, nil
}

// Validate checks every question can be answered: choice ids are unique and
// the correct ids are a non-empty subset of them.
func (b *Bank) Validate() error {
	if len(b.Exams) == 0 {
		return fmt.Errorf("bank has no exams")
	}
	for i, exam := range b.Exams {
		if strings.TrimSpace(exam.Code) == "" || strings.TrimSpace(exam.Name) == "" {
			return fmt.Errorf("exams[%d]: code and name are required", i)
		}
		if !validLevels[exam.Level] {
			return fmt.Errorf("exam %s: unknown level %q", exam.Code, exam.Level)
		}
		for j, cat := range exam.Categories {
			if strings.TrimSpace(cat.Name) == "" {
				return fmt.Errorf("exam %s categories[%d]: name is required", exam.Code, j)
			}
			for k, q := range cat.Questions {
				if err := q.validate(); err != nil {
					return fmt.Errorf("exam %s category %s questions[%d]: %w", exam.Code, cat.Name, k, err)
				}
			}
		}
	}
	return nil
}

func (q QuestionDef) validate() error {
	if strings.TrimSpace(q.Body) == "" {
		return fmt.Errorf("body is required")
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("at least two choices are required")
	}

	ids := make(map[int64]bool, len(q.Choices))
	for _, c := range q.Choices {
		if ids[c.ID] {
			return fmt.Errorf("duplicate choice id %d", c.ID)
		}
		ids[c.ID] = true
	}

	if len(q.Correct) == 0 {
		return fmt.Errorf("correct answer is required")
	}
	seen := make(map[int64]bool, len(q.Correct))
	for _, id := range q.Correct {
		if !ids[id] {
			return fmt.Errorf("correct id %d is not a choice", id)
		}
		if seen[id] {
			return fmt.Errorf("correct id %d listed twice", id)
		}
		seen[id] = true
	}

	if q.SelectionCount != 0 && q.SelectionCount != len(q.Correct) {
		return fmt.Errorf("selection_count %d does not match %d correct answers", q.SelectionCount, len(q.Correct))
	}
	return nil
}
