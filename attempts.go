package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrQuizNotPublished = errors.New("quiz is not published")
	ErrAttemptLimit     = errors.New(ReasonAttemptsExhausted)
	ErrAlreadyPassed    = errors.New(ReasonAlreadyPassed)
	ErrBadSubmission    = errors.New("invalid attempt submission")
)

// SubmitAttemptInput is a fully-formed submission. Answers may omit
// questions; absent answers grade as incorrect.
type SubmitAttemptInput struct {
	Quiz      *Quiz
	StudentID uint
	StartedAt time.Time
	Answers   map[string]SubmittedAnswer
	Grace     time.Duration // tolerance added to the quiz time limit
}

// SubmitAttempt grades the answers and persists the attempt as a new,
// immutable record. Eligibility is re-checked and the attempt number
// assigned inside the same transaction as the insert. Under read-committed
// isolation two concurrent submissions can still read the same prior
// count; the unique (quiz, student, number) index then rejects the second
// insert, and the error propagates so the client can retry.
//
// A submission whose elapsed time exceeds the quiz time limit plus the
// grace period is accepted but flagged TimeExceeded; the client clock is
// advisory and answers must not be lost over it.
func SubmitAttempt(db *gorm.DB, log *zap.Logger, in SubmitAttemptInput) (*Attempt, Result, error) {
	quiz := in.Quiz
	if quiz.Status != QuizPublished {
		return nil, Result{}, ErrQuizNotPublished
	}
	if in.StartedAt.IsZero() {
		return nil, Result{}, fmt.Errorf("%w: startedAt is required", ErrBadSubmission)
	}
	now := time.Now()
	if in.StartedAt.After(now.Add(time.Minute)) {
		return nil, Result{}, fmt.Errorf("%w: startedAt is in the future", ErrBadSubmission)
	}

	result := CalculateResult(log, quiz, in.Answers)
	elapsed := int(now.Sub(in.StartedAt) / time.Second)
	if elapsed < 0 {
		// startedAt may sit slightly ahead of the server clock (skew
		// tolerance above); never report negative time spent
		elapsed = 0
	}

	attempt := Attempt{
		ID:           uuid.New().String(),
		QuizID:       quiz.ID,
		StudentID:    in.StudentID,
		Score:        result.PointsEarned,
		MaxScore:     result.TotalPoints,
		Percentage:   result.Percentage,
		Passed:       result.Passed,
		StartedAt:    in.StartedAt,
		CompletedAt:  now,
		TimeSpentSec: elapsed,
	}
	if quiz.TimeLimitSec != nil {
		limit := time.Duration(*quiz.TimeLimitSec)*time.Second + in.Grace
		if now.Sub(in.StartedAt) > limit {
			attempt.TimeExceeded = true
			log.Warn("attempt exceeded quiz time limit",
				zap.String("quizId", quiz.ID),
				zap.Uint("studentId", in.StudentID),
				zap.Int("timeSpentSec", elapsed),
				zap.Int("timeLimitSec", *quiz.TimeLimitSec))
		}
	}

	for _, qr := range result.Questions {
		ans := AttemptAnswer{
			QuestionID:   qr.QuestionID,
			Text:         qr.Text,
			IsCorrect:    qr.IsCorrect,
			PointsEarned: qr.PointsEarned,
		}
		if len(qr.Selected) > 0 {
			raw, err := json.Marshal(qr.Selected)
			if err != nil {
				return nil, Result{}, fmt.Errorf("%w: %v", ErrBadSubmission, err)
			}
			ans.Selected = datatypes.JSON(raw)
		}
		attempt.Answers = append(attempt.Answers, ans)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var prior []Attempt
		if err := tx.Where("quiz_id = ? AND student_id = ?", quiz.ID, in.StudentID).
			Find(&prior).Error; err != nil {
			return fmt.Errorf("load prior attempts: %w", err)
		}
		if len(prior) >= quiz.MaxAttempts {
			return ErrAttemptLimit
		}
		for _, a := range prior {
			if a.Passed {
				return ErrAlreadyPassed
			}
		}
		attempt.AttemptNumber = len(prior) + 1
		return tx.Create(&attempt).Error
	})
	if err != nil {
		return nil, Result{}, err
	}

	log.Info("attempt submitted",
		zap.String("attemptId", attempt.ID),
		zap.String("quizId", quiz.ID),
		zap.Uint("studentId", in.StudentID),
		zap.Int("attemptNumber", attempt.AttemptNumber),
		zap.Int("percentage", attempt.Percentage),
		zap.Bool("passed", attempt.Passed))
	return &attempt, result, nil
}
