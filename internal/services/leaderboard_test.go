package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
)

func leaderboardUsers() (alice, bob, carol *types.User) {
	today := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)
	alice = &types.User{ID: uuid.New(), FirstName: "Alice", TotalXP: 300, DailyXP: 5, Streak: 2, LastProgressDate: &today}
	bob = &types.User{ID: uuid.New(), FirstName: "Bob", TotalXP: 100, DailyXP: 90, Streak: 9, LastProgressDate: &yesterday}
	carol = &types.User{ID: uuid.New(), FirstName: "Carol", TotalXP: 200, DailyXP: 40, Streak: 1, LastProgressDate: &today}
	return
}

func newTestLeaderboard(t *testing.T, board redis.LeaderboardCache, users ...*types.User) *leaderboardService {
	t.Helper()
	svc := NewLeaderboardService(testLogger(t), newMemUserRepo(users...), board, time.UTC).(*leaderboardService)
	svc.now = func() time.Time { return time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC) }
	return svc
}

func names(entries []LeaderboardEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.FirstName)
	}
	return out
}

func TestLeaderboardTopByColumn(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	svc := newTestLeaderboard(t, nil, alice, bob, carol)
	ctx := context.Background()

	total, err := svc.Top(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol", "Bob"}, names(total))
	assert.Equal(t, int64(1), total[0].Rank)
	assert.Equal(t, int64(3), total[2].Rank)

	streak, err := svc.Top(ctx, "STREAK", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, names(streak))
}

func TestLeaderboardDailyIgnoresStaleDays(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	svc := newTestLeaderboard(t, nil, alice, bob, carol)

	daily, err := svc.Top(context.Background(), "daily_xp", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Alice"}, names(daily))
}

func TestLeaderboardValidatesInput(t *testing.T) {
	svc := newTestLeaderboard(t, nil)
	_, err := svc.Top(context.Background(), "coins", 101)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	assert.Len(t, types.FieldsOf(err), 2)
}

func TestLeaderboardUsesWarmCache(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	board := &memBoard{}
	svc := newTestLeaderboard(t, board, alice, bob, carol)
	ctx := context.Background()

	n, err := svc.Warm(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The cache is authoritative for total XP ordering once warm.
	require.NoError(t, board.SetTotalXP(ctx, bob.ID, 1000))
	top, err := svc.Top(ctx, "total_xp", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, names(top))

	n, err = svc.Warm(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLeaderboardPartialCacheUsesDatabase(t *testing.T) {
	alice := &types.User{ID: uuid.New(), FirstName: "Alice", TotalXP: 100}
	bob := &types.User{ID: uuid.New(), FirstName: "Bob", TotalXP: 50}
	carol := &types.User{ID: uuid.New(), FirstName: "Carol", TotalXP: 10}
	board := &memBoard{}
	svc := newTestLeaderboard(t, board, alice, bob, carol)
	ctx := context.Background()

	n, err := svc.Warm(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Carol answers correctly; only her new score reaches the set.
	carol.TotalXP = 15
	require.NoError(t, board.SetTotalXP(ctx, carol.ID, 15))

	top, err := svc.Top(ctx, "total_xp", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(top))

	me, err := svc.Me(ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: carol.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), me.Rank)

	leader, err := svc.Me(ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: alice.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), leader.Rank)
}

func TestLeaderboardIgnoresUnwarmedCache(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	board := &memBoard{}
	svc := newTestLeaderboard(t, board, alice, bob, carol)
	ctx := context.Background()
	require.NoError(t, board.SetTotalXP(ctx, bob.ID, 5000))

	top, err := svc.Top(ctx, "total_xp", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol", "Bob"}, names(top))

	me, err := svc.Me(ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: bob.ID}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), me.Rank)
}

func TestLeaderboardCachedRankMatchesDatabaseOnTies(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	bob.TotalXP = 300
	ctx := context.Background()

	uncached := newTestLeaderboard(t, nil, alice, bob, carol)
	board := &memBoard{}
	cached := newTestLeaderboard(t, board, alice, bob, carol)
	_, err := cached.Warm(ctx, 100)
	require.NoError(t, err)

	for _, u := range []*types.User{alice, bob, carol} {
		authed := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: u.ID})
		fromDB, err := uncached.Me(authed)
		require.NoError(t, err)
		fromCache, err := cached.Me(authed)
		require.NoError(t, err)
		assert.Equal(t, fromDB.Rank, fromCache.Rank, u.FirstName)
	}
}

func TestLeaderboardFallsBackWhenCacheFails(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	board := &memBoard{err: errors.New("connection refused")}
	svc := newTestLeaderboard(t, board, alice, bob, carol)

	top, err := svc.Top(context.Background(), "total_xp", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol", "Bob"}, names(top))
}

func TestLeaderboardMe(t *testing.T) {
	alice, bob, carol := leaderboardUsers()
	svc := newTestLeaderboard(t, nil, alice, bob, carol)
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: carol.ID})

	me, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), me.Rank)
	assert.Equal(t, 200, me.TotalXP)

	_, err = svc.Me(context.Background())
	assert.True(t, types.IsCode(err, types.CodeUnauthorized))
}
