package main

import (
	"testing"
)

func TestIsQuizTableEmpty(t *testing.T) {
	db := openTestDB(t)

	empty, err := IsQuizTableEmpty(db)
	if err != nil {
		t.Fatalf("IsQuizTableEmpty: %v", err)
	}
	if !empty {
		t.Errorf("empty = false, want true on a fresh database")
	}

	createDraftQuiz(t, db)
	empty, err = IsQuizTableEmpty(db)
	if err != nil {
		t.Fatalf("IsQuizTableEmpty: %v", err)
	}
	if empty {
		t.Errorf("empty = true, want false after inserting a quiz")
	}

	// a failing count must surface as an error, not as "empty"
	if err := db.Migrator().DropTable(&Quiz{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := IsQuizTableEmpty(db); err == nil {
		t.Errorf("IsQuizTableEmpty returned no error on a missing table")
	}
}
