package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// validate checks authoring payloads beyond what gin binding covers.
var validate = validator.New()

/*** Authoring DTOs ***/

type CreateQuizReq struct {
	CourseID     string  `json:"courseId" binding:"required"`
	LessonID     *string `json:"lessonId"`
	Title        string  `json:"title" binding:"required"`
	Description  *string `json:"description"`
	TimeLimitSec *int    `json:"timeLimitSec"`
	MaxAttempts  int     `json:"maxAttempts" binding:"required,gte=1"`
	PassingScore float64 `json:"passingScore" binding:"gte=0,lte=100"`
}

type UpdateQuizReq struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	TimeLimitSec *int     `json:"timeLimitSec"`
	MaxAttempts  *int     `json:"maxAttempts"`
	PassingScore *float64 `json:"passingScore"`
}

type OptionInput struct {
	Key         string  `json:"key" validate:"required,max=8"`
	Text        string  `json:"text" validate:"required"`
	Explanation *string `json:"explanation"`
}

type QuestionInput struct {
	Type           string        `json:"type" validate:"required,oneof=multiple_choice true_false essay fill_blank matching"`
	Text           string        `json:"text" validate:"required"`
	Explanation    *string       `json:"explanation"`
	Points         float64       `json:"points" validate:"required,gt=0"`
	MediaURL       *string       `json:"mediaUrl"`
	Options        []OptionInput `json:"options" validate:"dive"`
	CorrectAnswers []string      `json:"correctAnswers"`
}

// checkQuestionInput enforces the invariants the validator tags cannot
// express: choice questions must accept a non-empty subset of their own
// option keys.
func checkQuestionInput(in *QuestionInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if !QuestionType(in.Type).IsChoice() {
		return nil
	}
	if len(in.Options) < 2 {
		return fmt.Errorf("question %q: choice questions need at least 2 options", in.Text)
	}
	if len(in.CorrectAnswers) == 0 {
		return fmt.Errorf("question %q: correctAnswers must not be empty", in.Text)
	}
	keys := map[string]bool{}
	for _, o := range in.Options {
		keys[o.Key] = true
	}
	for _, k := range in.CorrectAnswers {
		if !keys[k] {
			return fmt.Errorf("question %q: correct answer %q is not an option key", in.Text, k)
		}
	}
	return nil
}

/*** Quiz CRUD ***/

// CreateQuiz creates a new quiz in draft status.
func CreateQuiz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateQuizReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		quiz := Quiz{
			ID:           uuid.New().String(),
			CourseID:     req.CourseID,
			LessonID:     req.LessonID,
			Title:        req.Title,
			Description:  req.Description,
			TimeLimitSec: req.TimeLimitSec,
			MaxAttempts:  req.MaxAttempts,
			PassingScore: req.PassingScore,
			Status:       QuizDraft,
		}
		if err := db.Create(&quiz).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusCreated, quiz)
	}
}

// GetQuizAdmin returns the full quiz including correct answers.
func GetQuizAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var quiz Quiz
		if err := db.Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position")
		}).Preload("Questions.Options").
			First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		c.JSON(http.StatusOK, quiz)
	}
}

// UpdateQuiz edits quiz metadata. Only drafts are editable.
func UpdateQuiz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var quiz Quiz
		if err := db.First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		if quiz.Status != QuizDraft {
			c.JSON(http.StatusConflict, gin.H{"error": "only draft quizzes can be edited"})
			return
		}

		var req UpdateQuizReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		if req.Title != nil {
			quiz.Title = *req.Title
		}
		if req.Description != nil {
			quiz.Description = req.Description
		}
		if req.TimeLimitSec != nil {
			quiz.TimeLimitSec = req.TimeLimitSec
		}
		if req.MaxAttempts != nil {
			if *req.MaxAttempts < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "maxAttempts must be >= 1"})
				return
			}
			quiz.MaxAttempts = *req.MaxAttempts
		}
		if req.PassingScore != nil {
			if *req.PassingScore < 0 || *req.PassingScore > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "passingScore must be 0..100"})
				return
			}
			quiz.PassingScore = *req.PassingScore
		}
		if err := db.Save(&quiz).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, quiz)
	}
}

// ReplaceQuestions swaps the full question list of a draft quiz. Questions
// keep their payload order as display order.
func ReplaceQuestions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var quiz Quiz
		if err := db.First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		if quiz.Status != QuizDraft {
			c.JSON(http.StatusConflict, gin.H{"error": "only draft quizzes can be edited"})
			return
		}

		var inputs []QuestionInput
		if err := c.BindJSON(&inputs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		for i := range inputs {
			if err := checkQuestionInput(&inputs[i]); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var old []Question
			if err := tx.Where("quiz_id = ?", quiz.ID).Find(&old).Error; err != nil {
				return err
			}
			for _, q := range old {
				if err := tx.Where("question_id = ?", q.ID).Delete(&Option{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&Question{}).Error; err != nil {
				return err
			}

			for i, in := range inputs {
				raw, err := json.Marshal(in.CorrectAnswers)
				if err != nil {
					return err
				}
				q := Question{
					ID:             uuid.New().String(),
					QuizID:         quiz.ID,
					Type:           QuestionType(in.Type),
					Text:           in.Text,
					Explanation:    in.Explanation,
					Points:         in.Points,
					Position:       i + 1,
					MediaURL:       in.MediaURL,
					CorrectAnswers: datatypes.JSON(raw),
				}
				correct := map[string]bool{}
				for _, k := range in.CorrectAnswers {
					correct[k] = true
				}
				for _, o := range in.Options {
					q.Options = append(q.Options, Option{
						OptionKey:   o.Key,
						Text:        o.Text,
						IsCorrect:   correct[o.Key],
						Explanation: o.Explanation,
					})
				}
				if err := tx.Create(&q).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"quizId": quiz.ID, "questions": len(inputs)})
	}
}

/*** Lifecycle transitions ***/

// PublishQuiz moves a draft to published after checking the publish
// invariants (at least one question, choice invariants already enforced at
// write time but re-checked here against the stored rows).
func PublishQuiz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var quiz Quiz
		if err := db.Preload("Questions.Options").
			First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		if quiz.Status == QuizPublished {
			c.JSON(http.StatusOK, gin.H{"status": string(QuizPublished)})
			return
		}
		if quiz.Status != QuizDraft {
			c.JSON(http.StatusConflict, gin.H{"error": "archived quizzes cannot be published"})
			return
		}
		if len(quiz.Questions) == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "a published quiz needs at least one question"})
			return
		}
		for i := range quiz.Questions {
			q := &quiz.Questions[i]
			if !q.Type.IsChoice() {
				continue
			}
			keys := map[string]bool{}
			for _, o := range q.Options {
				keys[o.OptionKey] = true
			}
			correct := q.CorrectKeys()
			if len(correct) == 0 {
				c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("question %s has no correct answers", q.ID)})
				return
			}
			for _, k := range correct {
				if !keys[k] {
					c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("question %s: correct answer %q is not an option key", q.ID, k)})
					return
				}
			}
		}

		if err := db.Model(&Quiz{}).Where("id = ?", quiz.ID).
			Update("status", QuizPublished).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": string(QuizPublished)})
	}
}

// ArchiveQuiz moves a quiz to archived. Archived quizzes disappear from the
// course list and stop accepting attempts; existing attempts stay readable.
func ArchiveQuiz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := db.Model(&Quiz{}).Where("id = ?", c.Param("id")).
			Update("status", QuizArchived)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": string(QuizArchived)})
	}
}

// DeleteQuiz removes a draft quiz with its questions and options.
// Published or archived quizzes may have attempts and cannot be deleted.
func DeleteQuiz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var quiz Quiz
		if err := db.First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		if quiz.Status != QuizDraft {
			c.JSON(http.StatusConflict, gin.H{"error": "only draft quizzes can be deleted"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			var qs []Question
			if err := tx.Where("quiz_id = ?", quiz.ID).Find(&qs).Error; err != nil {
				return err
			}
			for _, q := range qs {
				if err := tx.Where("question_id = ?", q.ID).Delete(&Option{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("quiz_id = ?", quiz.ID).Delete(&Question{}).Error; err != nil {
				return err
			}
			return tx.Delete(&quiz).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
