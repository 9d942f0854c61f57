package services

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/yungbote/sparkquest-backend/internal/data/db"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

// SessionLength is the number of questions in one quiz run.
const SessionLength = 10

const sessionCompleteMessage = "Quiz completed! Great job."

// Picker returns an index in [0, n).
type Picker func(n int) int

type QuestionView struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Question       string            `json:"question"`
	Options        []learning.Option `json:"options"`
	CorrectAnswer  string            `json:"correctAnswer"`
	Feedback       string            `json:"feedback"`
	Topic          string            `json:"topic"`
	QuestionNumber int               `json:"questionNumber"`
}

// Selection is either a completed session or the next question.
type Selection struct {
	Completed bool
	Message   string
	TotalXP   int
	Question  *QuestionView
}

type QuizService interface {
	NextQuestion(ctx context.Context, topic string, userID uuid.UUID, questionNumber int) (*Selection, error)
	Topics(ctx context.Context) ([]repos.TopicCount, error)
}

type quizService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	questionRepo repos.QuestionRepo
	progressRepo repos.ProgressRepo
	pick         Picker
}

// NewQuizService builds the selector. A nil pick draws uniformly at random.
func NewQuizService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	questionRepo repos.QuestionRepo,
	progressRepo repos.ProgressRepo,
	pick Picker,
) QuizService {
	if pick == nil {
		pick = rand.IntN
	}
	return &quizService{
		log:          log.With("service", "QuizService"),
		userRepo:     userRepo,
		questionRepo: questionRepo,
		progressRepo: progressRepo,
		pick:         pick,
	}
}

func (qs *quizService) NextQuestion(ctx context.Context, topic string, userID uuid.UUID, questionNumber int) (*Selection, error) {
	const op = "quiz.next_question"
	topic = learning.NormalizeTopic(topic)
	if topic == "" {
		return nil, types.ValidationError(op, types.FieldError{Path: "topic", Message: "topic is required"})
	}
	if questionNumber < 0 {
		return nil, types.ValidationError(op, types.FieldError{Path: "questionNumber", Message: "questionNumber must be a non-negative integer"})
	}
	dbc := dbctx.Context{Ctx: ctx}

	if questionNumber >= SessionLength {
		users, err := qs.userRepo.GetByIDs(dbc, []uuid.UUID{userID})
		if err != nil {
			return nil, db.MapError(op, err)
		}
		sel := &Selection{Completed: true, Message: sessionCompleteMessage}
		if len(users) > 0 && users[0] != nil {
			sel.TotalXP = users[0].TotalXP
		}
		return sel, nil
	}

	questions, err := qs.questionRepo.ListByTopic(dbc, topic)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if len(questions) == 0 {
		return nil, &types.Error{
			Code:    types.CodeNotFound,
			Op:      op,
			Message: "No questions available for this topic",
			Fields:  []types.FieldError{{Path: "questions", Message: "No questions available for this topic"}},
		}
	}

	answered, err := qs.progressRepo.AnsweredQuestionIDs(dbc, userID, topic)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	available := excludeAnswered(questions, answered)
	if len(available) == 0 {
		qs.log.Debug("Deck exhausted, cycling", "user_id", userID, "topic", topic)
		available = questions
	}

	q := available[qs.pick(len(available))]
	return &Selection{Question: toQuestionView(q, questionNumber)}, nil
}

func (qs *quizService) Topics(ctx context.Context) ([]repos.TopicCount, error) {
	counts, err := qs.questionRepo.TopicCounts(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, db.MapError("quiz.topics", err)
	}
	return counts, nil
}

func excludeAnswered(questions []*types.Question, answered []string) []*types.Question {
	if len(answered) == 0 {
		return questions
	}
	seen := make(map[string]struct{}, len(answered))
	for _, id := range answered {
		seen[id] = struct{}{}
	}
	out := make([]*types.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := seen[q.ExternalID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

func toQuestionView(q *types.Question, questionNumber int) *QuestionView {
	opts := make([]learning.Option, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, learning.Option{Value: o.Value, Description: o.Description, ImageURL: o.ImageURL})
	}
	return &QuestionView{
		ID:             q.ExternalID,
		Type:           string(q.Type),
		Question:       q.Prompt,
		Options:        opts,
		CorrectAnswer:  q.CorrectAnswer,
		Feedback:       q.Feedback,
		Topic:          q.Topic,
		QuestionNumber: questionNumber,
	}
}
