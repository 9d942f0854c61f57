package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
)

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func newProgressFixture(t *testing.T, u *types.User) (*progressService, *memUserRepo, *memProgressRepo, *memBoard) {
	t.Helper()
	users := newMemUserRepo(u)
	progress := &memProgressRepo{}
	board := &memBoard{}
	svc := NewProgressService(testLogger(t), users, progress, board, time.UTC).(*progressService)
	return svc, users, progress, board
}

func answer(u *types.User, qid string, c learning.Correctness, xp int) RecordAnswerInput {
	return RecordAnswerInput{UserID: u.ID, Topic: "Magnetism", QuestionID: qid, XP: xp, Correctness: c, UserAnswer: "a"}
}

func TestRecordAnswerSkipIsNoop(t *testing.T) {
	last := at(1, 9)
	u := &types.User{ID: uuid.New(), TotalXP: 40, DailyXP: 5, Streak: 3, LastProgressDate: &last}
	svc, users, progress, _ := newProgressFixture(t, u)
	ctx := context.Background()

	for _, in := range []RecordAnswerInput{
		answer(u, "magnetism-q1", learning.Skipped, 10),
		answer(u, "", learning.Correct, 10),
		answer(u, "   ", learning.Incorrect, 10),
	} {
		res, err := svc.RecordAnswer(ctx, in, at(2, 9))
		require.NoError(t, err)
		assert.False(t, res.Recorded)
		assert.False(t, res.Applied)
	}

	assert.Equal(t, 0, progress.count())
	got := users.get(u.ID)
	assert.Equal(t, 40, got.TotalXP)
	assert.Equal(t, 5, got.DailyXP)
	assert.Equal(t, 3, got.Streak)
	assert.True(t, got.LastProgressDate.Equal(last))
}

func TestRecordAnswerNewDayBumpsStreakAndResetsDaily(t *testing.T) {
	yesterday := at(1, 20)
	u := &types.User{ID: uuid.New(), TotalXP: 100, DailyXP: 30, Streak: 4, LastProgressDate: &yesterday}
	svc, users, progress, board := newProgressFixture(t, u)

	res, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q1", learning.Correct, 7), at(2, 8))
	require.NoError(t, err)
	require.True(t, res.Recorded)
	require.True(t, res.Applied)

	got := users.get(u.ID)
	assert.Equal(t, 5, got.Streak)
	assert.Equal(t, 7, got.DailyXP)
	assert.Equal(t, 107, got.TotalXP)
	assert.True(t, got.LastProgressDate.Equal(at(2, 8)))
	assert.Equal(t, got.Aggregates(), res.Aggregates)

	require.Equal(t, 1, progress.count())
	rec := progress.records[0]
	assert.Equal(t, "magnetism", rec.Topic)
	assert.Equal(t, learning.Correct, rec.Correctness)
	assert.Equal(t, learning.ProgressKindAnswer, rec.Kind)
	assert.Equal(t, int64(107), board.scores[u.ID])
}

func TestRecordAnswerSameDayAccumulates(t *testing.T) {
	earlier := at(2, 7)
	u := &types.User{ID: uuid.New(), TotalXP: 20, DailyXP: 20, Streak: 2, LastProgressDate: &earlier}
	svc, users, _, _ := newProgressFixture(t, u)

	_, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q2", learning.Correct, 5), at(2, 23))
	require.NoError(t, err)

	got := users.get(u.ID)
	assert.Equal(t, 2, got.Streak)
	assert.Equal(t, 25, got.DailyXP)
	assert.Equal(t, 25, got.TotalXP)
}

func TestRecordAnswerIncorrectWritesRecordOnly(t *testing.T) {
	last := at(1, 9)
	u := &types.User{ID: uuid.New(), TotalXP: 12, DailyXP: 12, Streak: 1, LastProgressDate: &last}
	svc, users, progress, board := newProgressFixture(t, u)

	res, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q3", learning.Incorrect, 9), at(2, 9))
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.False(t, res.Applied)
	assert.Equal(t, 1, progress.count())
	assert.Equal(t, learning.Incorrect, progress.records[0].Correctness)

	got := users.get(u.ID)
	assert.Equal(t, 12, got.TotalXP)
	assert.Equal(t, 12, got.DailyXP)
	assert.Equal(t, 1, got.Streak)
	assert.True(t, got.LastProgressDate.Equal(last))
	assert.Empty(t, board.scores)
}

func TestRecordAnswerValidation(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, _, progress, _ := newProgressFixture(t, u)

	_, err := svc.RecordAnswer(context.Background(), RecordAnswerInput{UserID: u.ID, Topic: " ", QuestionID: "x", XP: -1, Correctness: learning.Correct}, at(2, 9))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	fields := types.FieldsOf(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "topic", fields[0].Path)
	assert.Equal(t, "xp", fields[1].Path)
	assert.Equal(t, 0, progress.count())
}

func TestRecordAnswerUnknownUser(t *testing.T) {
	svc, _, progress, _ := newProgressFixture(t, &types.User{ID: uuid.New()})
	_, err := svc.RecordAnswer(context.Background(), RecordAnswerInput{UserID: uuid.New(), Topic: "gravity", QuestionID: "gravity-q1", Correctness: learning.Correct}, at(2, 9))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeNotFound))
	assert.Equal(t, 0, progress.count())
}

func TestRecordAnswerStorageFailureKeepsOrdering(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, users, progress, _ := newProgressFixture(t, u)

	progress.createErr = errors.New("connection reset")
	_, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q1", learning.Correct, 5), at(2, 9))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeStorage))
	assert.Equal(t, 0, users.get(u.ID).TotalXP, "aggregate must not move when the record write fails")

	progress.createErr = nil
	users.applyErr = errors.New("connection reset")
	_, err = svc.RecordAnswer(context.Background(), answer(u, "magnetism-q1", learning.Correct, 5), at(2, 9))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeStorage))
	assert.Equal(t, 1, progress.count(), "record stays durable when the aggregate write fails")
}

func TestRecordAnswerRetriesLostCompareAndSwap(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, users, _, _ := newProgressFixture(t, u)
	users.casMisses = 2

	res, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q1", learning.Correct, 5), at(2, 9))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 5, users.get(u.ID).TotalXP)

	users.casMisses = maxAggregateAttempts
	_, err = svc.RecordAnswer(context.Background(), answer(u, "magnetism-q2", learning.Correct, 5), at(2, 10))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeUnavailable))
}

func TestLeaderboardFailureDoesNotFailAnswer(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, users, _, board := newProgressFixture(t, u)
	board.err = errors.New("redis down")

	_, err := svc.RecordAnswer(context.Background(), answer(u, "magnetism-q1", learning.Correct, 5), at(2, 9))
	require.NoError(t, err)
	assert.Equal(t, 5, users.get(u.ID).TotalXP)
}

func TestLeaderboardWriteFailureInvalidatesCache(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, users, _, board := newProgressFixture(t, u)
	ctx := context.Background()
	require.NoError(t, board.MarkWarmed(ctx, 0))
	board.setErr = errors.New("redis timeout")

	_, err := svc.RecordAnswer(ctx, answer(u, "magnetism-q1", learning.Correct, 5), at(2, 9))
	require.NoError(t, err)
	assert.Equal(t, 5, users.get(u.ID).TotalXP)
	_, warmed, err := board.Warmed(ctx)
	require.NoError(t, err)
	assert.False(t, warmed)
}

func TestCompleteLessonSharesRollover(t *testing.T) {
	yesterday := at(1, 9)
	u := &types.User{ID: uuid.New(), TotalXP: 10, DailyXP: 10, Streak: 1, LastProgressDate: &yesterday}
	svc, users, progress, _ := newProgressFixture(t, u)
	ctx := context.Background()

	res, err := svc.CompleteLesson(ctx, u.ID, 20, at(2, 9))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	res, err = svc.CompleteLesson(ctx, u.ID, 5, at(2, 10))
	require.NoError(t, err)

	got := users.get(u.ID)
	assert.Equal(t, 2, got.Streak)
	assert.Equal(t, 25, got.DailyXP)
	assert.Equal(t, 35, got.TotalXP)
	assert.Equal(t, got.Aggregates(), res.Aggregates)

	require.Equal(t, 2, progress.count())
	assert.Equal(t, learning.GeneralTopic, progress.records[0].Topic)
	assert.Equal(t, learning.ProgressKindLesson, progress.records[0].Kind)
	assert.Empty(t, progress.records[0].QuestionID)

	_, err = svc.CompleteLesson(ctx, u.ID, -3, at(2, 11))
	assert.True(t, types.IsCode(err, types.CodeValidation))
}

func TestMagnetismScenario(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, users, _, _ := newProgressFixture(t, u)
	ctx := context.Background()

	day1 := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	steps := []struct {
		qid                    string
		xp                     int
		now                    time.Time
		streak, daily, totalXP int
	}{
		{"magnetism-q1", 10, day1, 1, 10, 10},
		{"magnetism-q2", 5, day1.Add(9 * time.Hour), 1, 15, 15},
		{"magnetism-q4", 7, day1.Add(24 * time.Hour), 2, 7, 22},
	}
	for _, s := range steps {
		_, err := svc.RecordAnswer(ctx, answer(u, s.qid, learning.Correct, s.xp), s.now)
		require.NoError(t, err)
		got := users.get(u.ID)
		assert.Equal(t, s.streak, got.Streak, s.qid)
		assert.Equal(t, s.daily, got.DailyXP, s.qid)
		assert.Equal(t, s.totalXP, got.TotalXP, s.qid)
	}
}

func TestApplyDayRolloverUsesLocalMidnight(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	// 14:00 UTC on the 1st is 23:00 on the 1st in tokyo; 16:00 UTC is 01:00 on the 2nd.
	last := time.Date(2026, time.March, 1, 14, 0, 0, 0, time.UTC)
	cur := types.UserAggregates{TotalXP: 10, DailyXP: 10, Streak: 1, LastProgressDate: &last}

	sameUTCDay := time.Date(2026, time.March, 1, 16, 0, 0, 0, time.UTC)
	next := ApplyDayRollover(cur, 4, sameUTCDay, tokyo)
	assert.Equal(t, 2, next.Streak)
	assert.Equal(t, 4, next.DailyXP)

	next = ApplyDayRollover(cur, 4, sameUTCDay, time.UTC)
	assert.Equal(t, 1, next.Streak)
	assert.Equal(t, 14, next.DailyXP)
	assert.Equal(t, 14, next.TotalXP)
}

func TestApplyDayRolloverFirstEverAndGap(t *testing.T) {
	first := ApplyDayRollover(types.UserAggregates{}, 3, at(5, 12), time.UTC)
	assert.Equal(t, types.UserAggregates{TotalXP: 3, DailyXP: 3, Streak: 1, LastProgressDate: first.LastProgressDate}, first)

	// A multi-day gap still counts as a new day and continues the counter.
	old := at(1, 12)
	gap := ApplyDayRollover(types.UserAggregates{TotalXP: 9, DailyXP: 9, Streak: 6, LastProgressDate: &old}, 2, at(5, 12), time.UTC)
	assert.Equal(t, 7, gap.Streak)
	assert.Equal(t, 2, gap.DailyXP)
}

func TestHistoryDefaultsLimit(t *testing.T) {
	u := &types.User{ID: uuid.New()}
	svc, _, _, _ := newProgressFixture(t, u)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.RecordAnswer(ctx, answer(u, "magnetism-q1", learning.Incorrect, 1), at(2, 9+i))
		require.NoError(t, err)
	}
	rows, err := svc.History(ctx, u.ID, "MAGNETISM", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.True(t, rows[0].AnsweredAt.After(rows[2].AnsweredAt))
}
