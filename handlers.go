package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

/*** DTOs shared across handlers ***/

type OptionDTO struct {
	Key  string `json:"key"` // "a"/"b"/"c"/"d"
	Text string `json:"text"`
}

type QuestionDTO struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Text     string      `json:"text"`
	Points   float64     `json:"points"`
	Position int         `json:"position"`
	MediaURL *string     `json:"mediaUrl,omitempty"`
	Options  []OptionDTO `json:"options,omitempty"`
}

type QuizSummaryDTO struct {
	ID           string      `json:"id"`
	CourseID     string      `json:"courseId"`
	LessonID     *string     `json:"lessonId,omitempty"`
	Title        string      `json:"title"`
	Description  *string     `json:"description,omitempty"`
	TimeLimitSec *int        `json:"timeLimitSec,omitempty"`
	MaxAttempts  int         `json:"maxAttempts"`
	PassingScore float64     `json:"passingScore"`
	Eligibility  Eligibility `json:"eligibility"`
}

func toQuestionDTO(q *Question) QuestionDTO {
	opts := make([]OptionDTO, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, OptionDTO{Key: o.OptionKey, Text: o.Text})
	}
	return QuestionDTO{
		ID: q.ID, Type: string(q.Type), Text: q.Text,
		Points: q.Points, Position: q.Position, MediaURL: q.MediaURL,
		Options: opts,
	}
}

func studentFromCtx(c *gin.Context) (uint, bool) {
	v, ok := c.Get("studentDBID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

/*** Course quiz list ***/

// ListCourseQuizzes returns the published quizzes of a course, each
// annotated with the calling student's eligibility.
func ListCourseQuizzes(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := studentFromCtx(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no student"})
			return
		}
		courseID := c.Param("courseId")

		var quizzes []Quiz
		if err := db.Where("course_id = ? AND status = ?", courseID, QuizPublished).
			Order("created_at").
			Find(&quizzes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		out := make([]QuizSummaryDTO, 0, len(quizzes))
		for i := range quizzes {
			q := &quizzes[i]
			out = append(out, QuizSummaryDTO{
				ID: q.ID, CourseID: q.CourseID, LessonID: q.LessonID,
				Title: q.Title, Description: q.Description,
				TimeLimitSec: q.TimeLimitSec, MaxAttempts: q.MaxAttempts,
				PassingScore: q.PassingScore,
				Eligibility:  CanTakeQuiz(db, log, sid, q),
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

/*** Quiz-for-taking view ***/

// GetQuizForTaking returns a published quiz with its questions in display
// order. Correct answers and per-option correctness are stripped.
func GetQuizForTaking(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := studentFromCtx(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no student"})
			return
		}

		var quiz Quiz
		if err := db.Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position")
		}).Preload("Questions.Options").
			First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		if quiz.Status != QuizPublished {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}

		questions := make([]QuestionDTO, 0, len(quiz.Questions))
		for i := range quiz.Questions {
			questions = append(questions, toQuestionDTO(&quiz.Questions[i]))
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           quiz.ID,
			"courseId":     quiz.CourseID,
			"title":        quiz.Title,
			"description":  quiz.Description,
			"timeLimitSec": quiz.TimeLimitSec,
			"maxAttempts":  quiz.MaxAttempts,
			"passingScore": quiz.PassingScore,
			"eligibility":  CanTakeQuiz(db, log, sid, &quiz),
			"questions":    questions,
		})
	}
}

/*** Attempt submission ***/

type SubmitAttemptReq struct {
	StartedAt time.Time                  `json:"startedAt" binding:"required"`
	Answers   map[string]SubmittedAnswer `json:"answers" binding:"required"`
}

// SubmitAttemptHandler grades and persists one attempt. The server
// recomputes the result; client-side scores are never trusted.
func SubmitAttemptHandler(db *gorm.DB, log *zap.Logger, grace time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := studentFromCtx(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no student"})
			return
		}

		var req SubmitAttemptReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		var quiz Quiz
		if err := db.Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position")
		}).Preload("Questions.Options").
			First(&quiz, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}

		attempt, result, err := SubmitAttempt(db, log, SubmitAttemptInput{
			Quiz:      &quiz,
			StudentID: sid,
			StartedAt: req.StartedAt,
			Answers:   req.Answers,
			Grace:     grace,
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrQuizNotPublished):
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		case errors.Is(err, ErrAttemptLimit), errors.Is(err, ErrAlreadyPassed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, ErrBadSubmission):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		default:
			log.Error("submit attempt failed", zap.String("quizId", quiz.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"attemptId":     attempt.ID,
			"attemptNumber": attempt.AttemptNumber,
			"timeSpentSec":  attempt.TimeSpentSec,
			"timeExceeded":  attempt.TimeExceeded,
			"result":        result,
		})
	}
}

/*** Attempt history: list & detail (read-only) ***/

type AttemptSummaryDTO struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	AttemptNumber int       `json:"attemptNumber"`
	Score         float64   `json:"score"`
	MaxScore      float64   `json:"maxScore"`
	Percentage    int       `json:"percentage"`
	Passed        bool      `json:"passed"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
	TimeSpentSec  int       `json:"timeSpentSec"`
}

// ListMyAttempts returns the student's attempts with pagination.
// Query params: ?quizId=&limit=20&offset=0 (limit max 100)
func ListMyAttempts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := studentFromCtx(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no student"})
			return
		}

		limit := 20
		offset := 0
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				if n > 100 {
					n = 100
				}
				limit = n
			}
		}
		if o := c.Query("offset"); o != "" {
			if n, err := strconv.Atoi(o); err == nil && n >= 0 {
				offset = n
			}
		}

		scope := db.Model(&Attempt{}).Where("student_id = ?", sid)
		if qid := c.Query("quizId"); qid != "" {
			scope = scope.Where("quiz_id = ?", qid)
		}

		var total int64
		if err := scope.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		var attempts []Attempt
		if err := scope.
			Order("completed_at DESC").
			Limit(limit).Offset(offset).
			Find(&attempts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		items := make([]AttemptSummaryDTO, 0, len(attempts))
		for _, a := range attempts {
			items = append(items, AttemptSummaryDTO{
				ID: a.ID, QuizID: a.QuizID, AttemptNumber: a.AttemptNumber,
				Score: a.Score, MaxScore: a.MaxScore, Percentage: a.Percentage,
				Passed: a.Passed, StartedAt: a.StartedAt,
				CompletedAt: a.CompletedAt, TimeSpentSec: a.TimeSpentSec,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
			"items":  items,
		})
	}
}

// GetMyAttempt returns one attempt with a per-question review: selected vs
// correct keys, explanations and points. Ownership is enforced.
func GetMyAttempt(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := studentFromCtx(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no student"})
			return
		}

		var attempt Attempt
		if err := db.Preload("Answers").
			First(&attempt, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
			return
		}
		if attempt.StudentID != sid {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		var questions []Question
		if err := db.Preload("Options").
			Where("quiz_id = ?", attempt.QuizID).
			Order("position").
			Find(&questions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		type ReviewRow struct {
			QuestionID   string   `json:"questionId"`
			QuestionText string   `json:"questionText"`
			Type         string   `json:"type"`
			Selected     []string `json:"selected,omitempty"`
			Text         string   `json:"text,omitempty"`
			Correct      []string `json:"correct,omitempty"`
			WasCorrect   bool     `json:"wasCorrect"`
			Points       float64  `json:"points"`
			PointsEarned float64  `json:"pointsEarned"`
			Explanation  *string  `json:"explanation,omitempty"`
		}

		byQuestion := map[string]AttemptAnswer{}
		for _, a := range attempt.Answers {
			byQuestion[a.QuestionID] = a
		}

		review := make([]ReviewRow, 0, len(questions))
		for i := range questions {
			q := &questions[i]
			a := byQuestion[q.ID]
			review = append(review, ReviewRow{
				QuestionID:   q.ID,
				QuestionText: q.Text,
				Type:         string(q.Type),
				Selected:     a.SelectedKeys(),
				Text:         a.Text,
				Correct:      q.CorrectKeys(),
				WasCorrect:   a.IsCorrect,
				Points:       q.Points,
				PointsEarned: a.PointsEarned,
				Explanation:  q.Explanation,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"attemptId":     attempt.ID,
			"quizId":        attempt.QuizID,
			"attemptNumber": attempt.AttemptNumber,
			"score":         attempt.Score,
			"maxScore":      attempt.MaxScore,
			"percentage":    attempt.Percentage,
			"passed":        attempt.Passed,
			"startedAt":     attempt.StartedAt,
			"completedAt":   attempt.CompletedAt,
			"timeSpentSec":  attempt.TimeSpentSec,
			"timeExceeded":  attempt.TimeExceeded,
			"items":         review,
		})
	}
}
