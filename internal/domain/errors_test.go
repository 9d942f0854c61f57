package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := NotFoundError("quiz.next", "no questions")
	wrapped := Wrap(CodeStorage, "outer", fmt.Errorf("ctx: %w", inner))
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected not_found to survive, got %q", CodeOf(wrapped))
	}
}

func TestStorageErrorUnwraps(t *testing.T) {
	base := errors.New("connection reset")
	err := StorageError("progress.create", base)
	if !IsCode(err, CodeStorage) {
		t.Fatalf("expected storage code, got %q", CodeOf(err))
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be reachable")
	}
	if Wrap(CodeStorage, "noop", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestValidationErrorFields(t *testing.T) {
	err := ValidationError("quiz.answer",
		FieldError{Path: "xp", Message: "xp must be non-negative"},
		FieldError{Path: "topic", Message: "topic is required"},
	)
	fields := FieldsOf(err)
	if len(fields) != 2 || fields[0].Path != "xp" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if got := err.Error(); got != "quiz.answer: xp must be non-negative (validation)" {
		t.Fatalf("unexpected message: %q", got)
	}
}
