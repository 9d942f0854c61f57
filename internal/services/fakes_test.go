package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/sparkquest-backend/internal/clients/redis"
	"github.com/yungbote/sparkquest-backend/internal/data/repos"
	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/platform/dbctx"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
	// casMisses forces ApplyProgress to report a lost race this many times.
	casMisses int
	applyErr  error
}

func newMemUserRepo(users ...*types.User) *memUserRepo {
	r := &memUserRepo{users: map[uuid.UUID]*types.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) get(id uuid.UUID) *types.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (r *memUserRepo) Create(_ dbctx.Context, users []*types.User) ([]*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		for _, existing := range r.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return nil, errors.New("UNIQUE constraint failed: user.email")
			}
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.CreatedAt = time.Now()
		cp := *u
		r.users[u.ID] = &cp
	}
	return users, nil
}

func (r *memUserRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	out := []*types.User{}
	for _, id := range ids {
		if u := r.get(id); u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUserRepo) GetByEmails(_ dbctx.Context, emails []string) ([]*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.User{}
	for _, e := range emails {
		for _, u := range r.users {
			if u.Email == e {
				cp := *u
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (r *memUserRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	found, _ := r.GetByEmails(dbc, []string{email})
	return len(found) > 0, nil
}

func (r *memUserRepo) UpdateName(_ dbctx.Context, id uuid.UUID, first, last string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[id]; u != nil {
		u.FirstName, u.LastName = first, last
	}
	return nil
}

func (r *memUserRepo) UpdateAvatarColor(_ dbctx.Context, id uuid.UUID, c string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[id]; u != nil {
		u.AvatarColor = c
	}
	return nil
}

func (r *memUserRepo) UpdateAvatarFields(_ dbctx.Context, id uuid.UUID, key, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.users[id]; u != nil {
		u.AvatarBucketKey, u.AvatarURL = key, url
	}
	return nil
}

func (r *memUserRepo) ApplyProgress(_ dbctx.Context, id uuid.UUID, expected int64, next types.UserAggregates) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return false, r.applyErr
	}
	u := r.users[id]
	if u == nil {
		return false, nil
	}
	if r.casMisses > 0 {
		r.casMisses--
		u.ProgressVersion++
		return false, nil
	}
	if u.ProgressVersion != expected {
		return false, nil
	}
	u.TotalXP, u.DailyXP, u.Streak, u.LastProgressDate = next.TotalXP, next.DailyXP, next.Streak, next.LastProgressDate
	u.ProgressVersion++
	return true, nil
}

func (r *memUserRepo) Top(_ dbctx.Context, col repos.RankColumn, since *time.Time, limit int) ([]*types.User, error) {
	r.mu.Lock()
	all := make([]*types.User, 0, len(r.users))
	for _, u := range r.users {
		if since != nil && (u.LastProgressDate == nil || u.LastProgressDate.Before(*since)) {
			continue
		}
		cp := *u
		all = append(all, &cp)
	}
	r.mu.Unlock()
	score := func(u *types.User) int {
		switch col {
		case repos.RankByDailyXP:
			return u.DailyXP
		case repos.RankByStreak:
			return u.Streak
		}
		return u.TotalXP
	}
	sort.SliceStable(all, func(i, j int) bool {
		if score(all[i]) != score(all[j]) {
			return score(all[i]) > score(all[j])
		}
		return all[i].TotalXP > all[j].TotalXP
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memUserRepo) RankByTotalXP(_ dbctx.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	me := r.users[id]
	if me == nil {
		return 0, errors.New("record not found")
	}
	var ahead int64
	for _, u := range r.users {
		if u.TotalXP > me.TotalXP {
			ahead++
		}
	}
	return ahead + 1, nil
}

type memProgressRepo struct {
	mu        sync.Mutex
	records   []*types.Progress
	createErr error
}

func (r *memProgressRepo) Create(_ dbctx.Context, recs []*types.Progress) ([]*types.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, p := range recs {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.Topic = learning.NormalizeTopic(p.Topic)
		r.records = append(r.records, p)
	}
	return recs, nil
}

func (r *memProgressRepo) AnsweredQuestionIDs(_ dbctx.Context, userID uuid.UUID, topic string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, p := range r.records {
		if p.UserID == userID && p.Topic == learning.NormalizeTopic(topic) && p.QuestionID != "" && !seen[p.QuestionID] {
			seen[p.QuestionID] = true
			out = append(out, p.QuestionID)
		}
	}
	return out, nil
}

func (r *memProgressRepo) ListByUser(_ dbctx.Context, userID uuid.UUID, topic string, limit int) ([]*types.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.Progress{}
	for i := len(r.records) - 1; i >= 0; i-- {
		p := r.records[i]
		if p.UserID != userID || (topic != "" && p.Topic != learning.NormalizeTopic(topic)) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memProgressRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memQuestionRepo struct {
	mu        sync.Mutex
	questions []*types.Question
	listCalls int
}

func (r *memQuestionRepo) Create(_ dbctx.Context, qs []*types.Question) ([]*types.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range qs {
		q.Topic = learning.NormalizeTopic(q.Topic)
		r.questions = append(r.questions, q)
	}
	return qs, nil
}

func (r *memQuestionRepo) ListByTopic(_ dbctx.Context, topic string) ([]*types.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := []*types.Question{}
	for _, q := range r.questions {
		if q.Topic == learning.NormalizeTopic(topic) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memQuestionRepo) CountByTopic(dbc dbctx.Context, topic string) (int64, error) {
	list, _ := r.ListByTopic(dbc, topic)
	return int64(len(list)), nil
}

func (r *memQuestionRepo) TopicCounts(_ dbctx.Context) ([]repos.TopicCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, q := range r.questions {
		counts[q.Topic]++
	}
	out := []repos.TopicCount{}
	for t, c := range counts {
		out = append(out, repos.TopicCount{Topic: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

func questionsFor(topic string, ids ...string) []*types.Question {
	out := make([]*types.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, &types.Question{
			ExternalID:    id,
			Topic:         topic,
			Type:          learning.QuestionTypeMultipleChoice,
			Prompt:        "prompt " + id,
			Options:       []learning.Option{{Value: "a"}, {Value: "b", Description: "bee"}},
			CorrectAnswer: "a",
		})
	}
	return out
}

type memBoard struct {
	mu     sync.Mutex
	scores map[uuid.UUID]int64
	floor  int64
	warmed bool
	err    error
	// setErr fails only SetTotalXP.
	setErr error
}

func (b *memBoard) SetTotalXP(_ context.Context, id uuid.UUID, xp int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if b.setErr != nil {
		return b.setErr
	}
	if b.scores == nil {
		b.scores = map[uuid.UUID]int64{}
	}
	if cur, ok := b.scores[id]; !ok || xp > cur {
		b.scores[id] = xp
	}
	return nil
}

func (b *memBoard) MarkWarmed(_ context.Context, floor int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.floor, b.warmed = floor, true
	return nil
}

func (b *memBoard) Invalidate(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.warmed = false
	return nil
}

func (b *memBoard) Warmed(_ context.Context) (int64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, false, b.err
	}
	return b.floor, b.warmed, nil
}

func (b *memBoard) Top(_ context.Context, limit int64) ([]redis.ScoreEntry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, false, b.err
	}
	if !b.warmed {
		return nil, false, nil
	}
	if limit <= 0 {
		return []redis.ScoreEntry{}, true, nil
	}
	out := []redis.ScoreEntry{}
	for id, s := range b.scores {
		out = append(out, redis.ScoreEntry{UserID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	if int64(len(out)) < limit || out[len(out)-1].Score <= b.floor {
		return nil, false, nil
	}
	for i := range out {
		out[i].Rank = int64(i) + 1
	}
	return out, true, nil
}

func (b *memBoard) Rank(_ context.Context, id uuid.UUID) (int64, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, false, b.err
	}
	score, ok := b.scores[id]
	if !b.warmed || !ok || score <= b.floor {
		return 0, false, nil
	}
	var ahead int64
	for _, s := range b.scores {
		if s > score {
			ahead++
		}
	}
	return ahead + 1, true, nil
}

func testLogger(t testing.TB) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testDBC(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func itoa(n int) string { return strconv.Itoa(n) }
