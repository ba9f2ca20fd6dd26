package main

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createStudent(t *testing.T, db *gorm.DB) *Student {
	t.Helper()
	s := Student{PublicID: uuid.New().String()}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return &s
}

func insertAttempt(t *testing.T, db *gorm.DB, quizID string, studentID uint, number int, passed bool) {
	t.Helper()
	a := Attempt{
		ID:            uuid.New().String(),
		QuizID:        quizID,
		StudentID:     studentID,
		AttemptNumber: number,
		Passed:        passed,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("insert attempt: %v", err)
	}
}

func TestCanTakeQuizNoPriorAttempts(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 2, PassingScore: 50}

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if !got.CanTake {
		t.Errorf("CanTake = false, want true: %+v", got)
	}
	if got.Reason != "" {
		t.Errorf("Reason = %q, want empty", got.Reason)
	}
}

func TestCanTakeQuizAttemptsExhausted(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 2, PassingScore: 50}

	insertAttempt(t, db, quiz.ID, s.ID, 1, false)
	insertAttempt(t, db, quiz.ID, s.ID, 2, false)

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if got.CanTake {
		t.Errorf("CanTake = true, want false")
	}
	if got.Reason != ReasonAttemptsExhausted {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonAttemptsExhausted)
	}
}

// Once the limit is reached the result stays ineligible regardless of pass
// status: exhaustion takes reporting precedence over already-passed.
func TestCanTakeQuizExhaustedBeatsPassed(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 2, PassingScore: 50}

	insertAttempt(t, db, quiz.ID, s.ID, 1, false)
	insertAttempt(t, db, quiz.ID, s.ID, 2, true)

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if got.CanTake {
		t.Errorf("CanTake = true, want false")
	}
	if got.Reason != ReasonAttemptsExhausted {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonAttemptsExhausted)
	}
}

func TestCanTakeQuizPassLock(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 5, PassingScore: 50}

	// one passed attempt, plenty of budget left
	insertAttempt(t, db, quiz.ID, s.ID, 1, true)

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if got.CanTake {
		t.Errorf("CanTake = true, want false: a passed quiz cannot be retaken")
	}
	if got.Reason != ReasonAlreadyPassed {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonAlreadyPassed)
	}
}

func TestCanTakeQuizFailedAttemptsRemaining(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 3, PassingScore: 50}

	insertAttempt(t, db, quiz.ID, s.ID, 1, false)

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if !got.CanTake {
		t.Errorf("CanTake = false, want true: %+v", got)
	}
}

func TestCanTakeQuizIsolatedPerStudent(t *testing.T) {
	db := openTestDB(t)
	s1 := createStudent(t, db)
	s2 := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 1, PassingScore: 50}

	insertAttempt(t, db, quiz.ID, s1.ID, 1, true)

	if got := CanTakeQuiz(db, zap.NewNop(), s1.ID, quiz); got.CanTake {
		t.Errorf("s1 CanTake = true, want false")
	}
	if got := CanTakeQuiz(db, zap.NewNop(), s2.ID, quiz); !got.CanTake {
		t.Errorf("s2 CanTake = false, want true: %+v", got)
	}
}

// A failing store degrades to a conservative "cannot take" result instead
// of an error.
func TestCanTakeQuizStoreFailure(t *testing.T) {
	db := openTestDB(t)
	s := createStudent(t, db)
	quiz := &Quiz{ID: uuid.New().String(), MaxAttempts: 2, PassingScore: 50}

	if err := db.Migrator().DropTable(&Attempt{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	got := CanTakeQuiz(db, zap.NewNop(), s.ID, quiz)
	if got.CanTake {
		t.Errorf("CanTake = true, want false on store failure")
	}
	if got.Reason != ReasonCheckFailed {
		t.Errorf("Reason = %q, want %q", got.Reason, ReasonCheckFailed)
	}
}
