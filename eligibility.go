package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Eligibility is the answer to "may this student begin a new attempt".
type Eligibility struct {
	CanTake bool   `json:"canTake"`
	Reason  string `json:"reason,omitempty"`
}

const (
	ReasonAttemptsExhausted = "maximum attempts exhausted"
	ReasonAlreadyPassed     = "already passed"
	ReasonCheckFailed       = "eligibility check failed"
)

// CanTakeQuiz applies the attempt policy against the student's prior
// attempts:
//
//  1. no prior attempts: eligible
//  2. prior count >= quiz.MaxAttempts: ineligible (hard ceiling,
//     independent of pass status)
//  3. any prior attempt passed: ineligible (a passed quiz cannot be retaken
//     even with attempts remaining)
//
// A store failure degrades to ineligible with ReasonCheckFailed instead of
// propagating; callers render the reason, they never crash the quiz list.
func CanTakeQuiz(db *gorm.DB, log *zap.Logger, studentID uint, quiz *Quiz) Eligibility {
	var prior []Attempt
	if err := db.Where("quiz_id = ? AND student_id = ?", quiz.ID, studentID).
		Find(&prior).Error; err != nil {
		log.Error("eligibility query failed",
			zap.String("quizId", quiz.ID),
			zap.Uint("studentId", studentID),
			zap.Error(err))
		return Eligibility{CanTake: false, Reason: ReasonCheckFailed}
	}

	if len(prior) == 0 {
		return Eligibility{CanTake: true}
	}
	if len(prior) >= quiz.MaxAttempts {
		return Eligibility{CanTake: false, Reason: ReasonAttemptsExhausted}
	}
	for _, a := range prior {
		if a.Passed {
			return Eligibility{CanTake: false, Reason: ReasonAlreadyPassed}
		}
	}
	return Eligibility{CanTake: true}
}
