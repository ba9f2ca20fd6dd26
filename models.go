package main

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// --- Student ---

type Student struct {
	ID          uint    `gorm:"primaryKey"`
	PublicID    string  `gorm:"uniqueIndex;size:36;not null"` // UUID carried in cookie / X-Student-Id
	DisplayName *string
	Email       *string `gorm:"uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// --- Quiz lifecycle status ---

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizArchived  QuizStatus = "archived"
)

func (s QuizStatus) Valid() bool {
	switch s {
	case QuizDraft, QuizPublished, QuizArchived:
		return true
	}
	return false
}

func (s *QuizStatus) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = ""
	case string:
		*s = QuizStatus(v)
	case []byte:
		*s = QuizStatus(string(v))
	default:
		return fmt.Errorf("unsupported type for QuizStatus: %T", value)
	}
	return nil
}

func (s QuizStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid QuizStatus: %q", s)
	}
	return string(s), nil
}

// --- Question types ---

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionEssay          QuestionType = "essay"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionMatching       QuestionType = "matching"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionEssay, QuestionFillBlank, QuestionMatching:
		return true
	}
	return false
}

// IsChoice reports whether the type is graded against option keys.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// IsFreeText reports whether the type is graded as free text.
func (t QuestionType) IsFreeText() bool {
	return t == QuestionEssay || t == QuestionFillBlank
}

// --- Quiz ---

type Quiz struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	CourseID     string     `gorm:"index;size:36;not null" json:"courseId"`
	LessonID     *string    `gorm:"size:36" json:"lessonId,omitempty"`
	Title        string     `gorm:"not null" json:"title"`
	Description  *string    `json:"description,omitempty"`
	TimeLimitSec *int       `json:"timeLimitSec,omitempty"` // nil = untimed
	MaxAttempts  int        `gorm:"not null;default:1" json:"maxAttempts"`
	PassingScore float64    `gorm:"not null" json:"passingScore"` // percent, 0..100
	Status       QuizStatus `gorm:"size:16;not null;default:'draft';index" json:"status"`
	Questions    []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// --- Question ---

type Question struct {
	ID          string       `gorm:"primaryKey;size:36" json:"id"`
	QuizID      string       `gorm:"index;size:36;not null" json:"quizId"`
	Type        QuestionType `gorm:"size:16;not null" json:"type"`
	Text        string       `gorm:"type:text;not null" json:"text"`
	Explanation *string      `gorm:"type:text" json:"explanation,omitempty"` // shown after grading
	Points      float64      `gorm:"not null;default:1" json:"points"`
	Position    int          `gorm:"not null" json:"position"`
	MediaURL    *string      `json:"mediaUrl,omitempty"`
	Options     []Option     `gorm:"foreignKey:QuestionID" json:"options,omitempty"`

	// CorrectAnswers holds the accepted option keys (choice types) or
	// reference strings (free-text types) as a JSON array.
	CorrectAnswers datatypes.JSON `json:"correctAnswers,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CorrectKeys decodes the CorrectAnswers column. A malformed or empty
// column decodes to an empty slice, which grades every answer incorrect.
func (q *Question) CorrectKeys() []string {
	if len(q.CorrectAnswers) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(q.CorrectAnswers, &keys); err != nil {
		return nil
	}
	return keys
}

// --- Option ---

type Option struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	QuestionID  string    `gorm:"index;size:36;not null" json:"questionId"`
	OptionKey   string    `gorm:"size:8;not null" json:"key"` // "a","b","c","d"
	Text        string    `gorm:"type:text;not null" json:"text"`
	IsCorrect   bool      `gorm:"not null" json:"-"`
	Explanation *string   `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// --- Attempt ---

// Attempt is write-once: it is inserted fully formed at submission and
// never updated afterwards. The unique (quiz, student, number) index keeps
// attempt numbers collision-free even when two transactions read the same
// prior count.
type Attempt struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	QuizID        string    `gorm:"uniqueIndex:uniq_attempts_quiz_student_number,priority:1;size:36;not null" json:"quizId"`
	StudentID     uint      `gorm:"uniqueIndex:uniq_attempts_quiz_student_number,priority:2;not null" json:"-"`
	AttemptNumber int       `gorm:"uniqueIndex:uniq_attempts_quiz_student_number,priority:3;not null" json:"attemptNumber"` // 1-based per student per quiz
	Score         float64   `gorm:"not null" json:"score"`         // points earned
	MaxScore      float64   `gorm:"not null" json:"maxScore"`      // sum of question points
	Percentage    int       `gorm:"not null" json:"percentage"`    // count-based, see CalculateResult
	Passed        bool      `gorm:"not null" json:"passed"`
	StartedAt     time.Time `gorm:"not null" json:"startedAt"`
	CompletedAt   time.Time `gorm:"not null" json:"completedAt"`
	TimeSpentSec  int       `gorm:"not null" json:"timeSpentSec"`
	TimeExceeded  bool      `gorm:"not null;default:false" json:"timeExceeded"`

	Answers   []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	CreatedAt time.Time       `json:"-"`
}

// --- AttemptAnswer ---

type AttemptAnswer struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	AttemptID  string `gorm:"index;size:36;not null" json:"-"`
	QuestionID string `gorm:"size:36;not null" json:"questionId"`

	Selected     datatypes.JSON `json:"selected,omitempty"` // JSON array of option keys
	Text         string         `gorm:"type:text" json:"text,omitempty"`
	IsCorrect    bool           `gorm:"not null" json:"isCorrect"`
	PointsEarned float64        `gorm:"not null" json:"pointsEarned"`
}

// SelectedKeys decodes the Selected column.
func (a *AttemptAnswer) SelectedKeys() []string {
	if len(a.Selected) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(a.Selected, &keys); err != nil {
		return nil
	}
	return keys
}
