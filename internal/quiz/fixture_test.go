package quiz

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"exam-quiz/internal/models"
	"exam-quiz/pkg/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type publishedEvent struct {
	userID    uint
	eventType string
	data      interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *eventRecorder) PublishToUser(userID uint, eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{userID: userID, eventType: eventType, data: data})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	repo   *Repository
	svc    *Service
	events *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(&database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "quiz.db"),
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	repo := NewRepository(db)
	events := &eventRecorder{}
	return &fixture{db: db, repo: repo, svc: NewService(repo, events), events: events}
}

func (f *fixture) user(t *testing.T, subject string) uint {
	t.Helper()
	u := models.User{Provider: models.ProviderLocal, SubjectID: subject, Name: subject, Role: models.RoleUser}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (f *fixture) exam(t *testing.T, id uint, code string, active bool) uint {
	t.Helper()
	e := models.Exam{ID: id, ExamName: "Exam " + code, ExamCode: code, IsActive: active}
	if err := f.db.Create(&e).Error; err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return e.ID
}

// category creates a category linked to examID and returns the link id.
func (f *fixture) category(t *testing.T, examID, categoryID uint, name string) uint {
	t.Helper()
	c := models.Category{ID: categoryID, CategoryName: name}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	link := models.ExamCategory{ExamID: examID, CategoryID: c.ID}
	if err := f.db.Create(&link).Error; err != nil {
		t.Fatalf("link category: %v", err)
	}
	return link.ID
}

func (f *fixture) question(t *testing.T, linkID uint, correct ...int64) uint {
	t.Helper()
	choices := []models.Choice{{ChoiceID: 1, ChoiceText: "one"}, {ChoiceID: 2, ChoiceText: "two"}, {ChoiceID: 3, ChoiceText: "three"}, {ChoiceID: 4, ChoiceText: "four"}}
	return f.rawQuestion(t, linkID, mustJSON(t, choices), mustJSON(t, correct), len(correct))
}

func (f *fixture) rawQuestion(t *testing.T, linkID uint, choices, correct datatypes.JSON, selection int) uint {
	t.Helper()
	q := models.Question{
		Body:             fmt.Sprintf("question in %d", linkID),
		Explanation:      "because",
		ChoicesJSON:      choices,
		CorrectKeyJSON:   correct,
		SelectionCount:   selection,
		ExamCategoriesID: linkID,
	}
	if err := f.db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q.ID
}

func (f *fixture) questions(t *testing.T, linkID uint, n int) []uint {
	t.Helper()
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, f.question(t, linkID, 1))
	}
	return ids
}

func (f *fixture) responseCount(t *testing.T, attemptID uint) int64 {
	t.Helper()
	var n int64
	err := f.db.Model(&models.QuestionResponse{}).Where("attempt_id = ?", attemptID).Count(&n).Error
	if err != nil {
		t.Fatalf("count responses: %v", err)
	}
	return n
}

func mustJSON(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(data)
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}
