package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedQuestions inserts multiple-choice questions named "{topic}-q{n}" for each n.
func SeedQuestions(tb testing.TB, ctx context.Context, tx *gorm.DB, topic string, ns ...int) []*types.Question {
	tb.Helper()
	out := make([]*types.Question, 0, len(ns))
	for _, n := range ns {
		q := &types.Question{
			ExternalID:    fmt.Sprintf("%s-q%d", topic, n),
			Topic:         topic,
			Type:          learning.QuestionTypeMultipleChoice,
			Prompt:        fmt.Sprintf("question %d", n),
			Options:       []types.Option{{Value: "a"}, {Value: "b"}},
			CorrectAnswer: "a",
			Feedback:      "a is right",
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return out
	}
	if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
		tb.Fatalf("seed questions: %v", err)
	}
	return out
}
