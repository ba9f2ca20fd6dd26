package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func adminRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.POST("/quizzes", CreateQuiz(db))
	admin.PUT("/quizzes/:id", UpdateQuiz(db))
	admin.PUT("/quizzes/:id/questions", ReplaceQuestions(db))
	admin.POST("/quizzes/:id/publish", PublishQuiz(db))
	admin.POST("/quizzes/:id/archive", ArchiveQuiz(db))
	admin.DELETE("/quizzes/:id", DeleteQuiz(db))
	return r
}

func createDraftQuiz(t *testing.T, db *gorm.DB) *Quiz {
	t.Helper()
	quiz := Quiz{
		ID:           uuid.New().String(),
		CourseID:     "khoa-hoc-lap-trinh-web",
		Title:        "Bản nháp",
		MaxAttempts:  2,
		PassingScore: 50,
		Status:       QuizDraft,
	}
	if err := db.Create(&quiz).Error; err != nil {
		t.Fatalf("create draft quiz: %v", err)
	}
	return &quiz
}

func TestCheckQuestionInput(t *testing.T) {
	tests := []struct {
		name    string
		input   QuestionInput
		wantErr bool
	}{
		{
			name: "valid multiple choice",
			input: QuestionInput{
				Type: "multiple_choice", Text: "Câu hỏi", Points: 5,
				Options: []OptionInput{
					{Key: "a", Text: "A"},
					{Key: "b", Text: "B"},
				},
				CorrectAnswers: []string{"a"},
			},
		},
		{
			name: "essay without options",
			input: QuestionInput{
				Type: "essay", Text: "Trình bày", Points: 10,
			},
		},
		{
			name: "choice without correct answers",
			input: QuestionInput{
				Type: "true_false", Text: "Đúng hay sai", Points: 5,
				Options: []OptionInput{
					{Key: "true", Text: "Đúng"},
					{Key: "false", Text: "Sai"},
				},
			},
			wantErr: true,
		},
		{
			name: "correct answer is not an option key",
			input: QuestionInput{
				Type: "multiple_choice", Text: "Câu hỏi", Points: 5,
				Options: []OptionInput{
					{Key: "a", Text: "A"},
					{Key: "b", Text: "B"},
				},
				CorrectAnswers: []string{"z"},
			},
			wantErr: true,
		},
		{
			name: "choice with a single option",
			input: QuestionInput{
				Type: "multiple_choice", Text: "Câu hỏi", Points: 5,
				Options:        []OptionInput{{Key: "a", Text: "A"}},
				CorrectAnswers: []string{"a"},
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			input: QuestionInput{
				Type: "ranking", Text: "Câu hỏi", Points: 5,
			},
			wantErr: true,
		},
		{
			name: "non-positive points",
			input: QuestionInput{
				Type: "essay", Text: "Trình bày", Points: 0,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkQuestionInput(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkQuestionInput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishQuizRequiresQuestions(t *testing.T) {
	db := openTestDB(t)
	quiz := createDraftQuiz(t, db)
	r := adminRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/publish", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}

	var got Quiz
	if err := db.First(&got, "id = ?", quiz.ID).Error; err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if got.Status != QuizDraft {
		t.Errorf("status = %s, want draft (publish must not go through)", got.Status)
	}
}

// The publish check re-validates the stored rows: a choice question whose
// accepted keys drifted away from its option keys blocks publication.
func TestPublishQuizRejectsBadCorrectKey(t *testing.T) {
	db := openTestDB(t)
	quiz := createDraftQuiz(t, db)
	q := Question{
		ID: uuid.New().String(), QuizID: quiz.ID,
		Type: QuestionMultipleChoice, Text: "Câu hỏi", Points: 5, Position: 1,
		CorrectAnswers: keysJSON(t, []string{"z"}),
		Options: []Option{
			{OptionKey: "a", Text: "A"},
			{OptionKey: "b", Text: "B"},
		},
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}

	r := adminRouter(db)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/publish", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestQuizLifecycle(t *testing.T) {
	db := openTestDB(t)
	quiz := createDraftQuiz(t, db)
	r := adminRouter(db)

	// add a valid question list via the authoring endpoint
	body := `[{
		"type": "multiple_choice",
		"text": "Thẻ nào tạo liên kết?",
		"points": 5,
		"options": [
			{"key": "a", "text": "<a>"},
			{"key": "b", "text": "<link>"}
		],
		"correctAnswers": ["a"]
	}]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/quizzes/"+quiz.ID+"/questions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replace questions: status = %d: %s", w.Code, w.Body.String())
	}

	// publish
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/publish", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("publish: status = %d: %s", w.Code, w.Body.String())
	}
	var got Quiz
	if err := db.First(&got, "id = ?", quiz.ID).Error; err != nil {
		t.Fatalf("reload quiz: %v", err)
	}
	if got.Status != QuizPublished {
		t.Fatalf("status = %s, want published", got.Status)
	}

	// publishing again is a no-op
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/publish", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("re-publish: status = %d, want 200", w.Code)
	}

	// published quizzes reject question edits
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/quizzes/"+quiz.ID+"/questions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("edit published: status = %d, want 409", w.Code)
	}

	// archive, then publishing is refused
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/archive", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: status = %d: %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/quizzes/"+quiz.ID+"/publish", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("publish archived: status = %d, want 409", w.Code)
	}

	// archived quizzes cannot be deleted
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/quizzes/"+quiz.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("delete archived: status = %d, want 409", w.Code)
	}
}
