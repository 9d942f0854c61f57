package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	"github.com/yungbote/sparkquest-backend/internal/data/repos/testutil"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/objectstore"
)

func newTestUserService(t *testing.T, board *memBoard) (UserService, repos.UserRepo, context.Context, *types.User) {
	t.Helper()
	conn := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := objectstore.NewLocal(t.TempDir(), "/avatars", log)
	require.NoError(t, err)
	avatars, err := NewAvatarService(log, store)
	require.NoError(t, err)
	userRepo := repos.NewUserRepo(conn, log)

	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, conn, "curie@example.com")
	other := testutil.SeedUser(t, ctx, conn, "faraday@example.com")
	require.NoError(t, conn.Model(other).Update("total_xp", 50).Error)
	require.NoError(t, conn.Model(u).Update("total_xp", 20).Error)

	var cache redis.LeaderboardCache
	if board != nil {
		cache = board
	}
	svc := NewUserService(conn, log, userRepo, avatars, cache)
	authed := ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: u.ID})
	return svc, userRepo, authed, u
}

func TestGetProfileRanksFromDatabase(t *testing.T) {
	svc, _, ctx, u := newTestUserService(t, nil)
	p, err := svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.User.ID)
	assert.Equal(t, 20, p.Aggregates.TotalXP)
	assert.Equal(t, int64(2), p.Rank)
}

func TestGetProfilePrefersCachedRank(t *testing.T) {
	board := &memBoard{}
	svc, _, ctx, u := newTestUserService(t, board)
	require.NoError(t, board.SetTotalXP(ctx, u.ID, 999))

	p, err := svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Rank, "an unwarmed set is not trusted")

	require.NoError(t, board.MarkWarmed(ctx, 0))
	p, err = svc.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Rank)
}

func TestGetProfileRequiresAuth(t *testing.T) {
	svc, _, _, _ := newTestUserService(t, nil)
	_, err := svc.GetProfile(context.Background())
	assert.True(t, types.IsCode(err, types.CodeUnauthorized))
}

func TestUpdateNameRegeneratesAvatar(t *testing.T) {
	svc, userRepo, ctx, u := newTestUserService(t, nil)
	first := "Marie"
	got, err := svc.UpdateName(ctx, &first, nil)
	require.NoError(t, err)
	assert.Equal(t, "Marie", got.FirstName)
	assert.Equal(t, "B", got.LastName)
	assert.NotEmpty(t, got.AvatarBucketKey)

	stored, err := userRepo.GetByIDs(testDBC(ctx), []uuid.UUID{u.ID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Marie", stored[0].FirstName)
	assert.Equal(t, got.AvatarURL, stored[0].AvatarURL)
	assert.Equal(t, got.AvatarColor, stored[0].AvatarColor)

	blank := "  "
	_, err = svc.UpdateName(ctx, nil, &blank)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	_, err = svc.UpdateName(ctx, nil, nil)
	assert.True(t, types.IsCode(err, types.CodeValidation))
}

func TestUploadAvatarImage(t *testing.T) {
	svc, _, ctx, _ := newTestUserService(t, nil)

	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, image.NewRGBA(image.Rect(0, 0, 64, 64))))
	got, err := svc.UploadAvatarImage(ctx, raw.Bytes())
	require.NoError(t, err)
	assert.Contains(t, got.AvatarURL, "/avatars/user_avatar/"+got.ID.String()+"/")

	_, err = svc.UploadAvatarImage(ctx, []byte("garbage"))
	assert.True(t, types.IsCode(err, types.CodeValidation))

	_, err = svc.UploadAvatarImage(ctx, make([]byte, MaxAvatarUploadBytes+1))
	assert.True(t, types.IsCode(err, types.CodeValidation))
}
