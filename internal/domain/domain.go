package domain

import (
	"github.com/yungbote/sparkquest-backend/internal/domain/auth"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/domain/user"
)

type User = user.User
type UserAggregates = user.Aggregates
type UserToken = auth.UserToken

type Question = learning.Question
type QuestionType = learning.QuestionType
type Option = learning.Option
type Progress = learning.Progress
type ProgressKind = learning.ProgressKind
type Correctness = learning.Correctness
