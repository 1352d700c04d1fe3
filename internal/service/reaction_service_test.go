package service

import (
	"Insightful/internal/model"
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/testutil"
	"Insightful/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReactionService_CreateAndDestroy(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	res, err := env.svc.Create(ctx, 2, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Success || res.Count != 1 || !res.Active || !res.ActedByCurrentUser || !res.CanUndo {
		t.Fatalf("unexpected create result: %+v", res)
	}
	if got := env.postCount(t, 10); got != 1 {
		t.Fatalf("expected post count 1, got %d", got)
	}
	if n, _ := env.quota.CountFor(ctx, 2, time.Now()); n != 1 {
		t.Fatalf("expected quota 1, got %d", n)
	}
	given, _ := env.stats.GetStat(ctx, 2)
	received, _ := env.stats.GetStat(ctx, 1)
	if given.ReactionsGiven != 1 || received.ReactionsReceived != 1 {
		t.Fatalf("unexpected stats: given=%+v received=%+v", given, received)
	}

	if _, err = env.svc.Create(ctx, 2, 10); !errors.Is(err, ErrReactionAlreadyActioned) {
		t.Fatalf("expected already actioned, got %v", err)
	}

	res, err = env.svc.Destroy(ctx, 2, 10)
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if !res.Success || res.Count != 0 || res.Active || !res.CanToggle {
		t.Fatalf("unexpected destroy result: %+v", res)
	}
	if got := env.postCount(t, 10); got != 0 {
		t.Fatalf("expected post count 0, got %d", got)
	}
	if n, _ := env.quota.CountFor(ctx, 2, time.Now()); n != 0 {
		t.Fatalf("expected quota 0 after destroy, got %d", n)
	}
	given, _ = env.stats.GetStat(ctx, 2)
	received, _ = env.stats.GetStat(ctx, 1)
	if given.ReactionsGiven != 0 || received.ReactionsReceived != 0 {
		t.Fatalf("stats not restored: given=%+v received=%+v", given, received)
	}

	// 撤销后可以再次添加
	if res, err = env.svc.Create(ctx, 2, 10); err != nil || res.Count != 1 {
		t.Fatalf("recreate: res=%+v err=%v", res, err)
	}

	events := env.pub.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	first := events[0]
	if first.Kind != event.KindCreated || first.PostID != 10 || first.ActorID != 2 || first.OwnerID != 1 || first.Count != 1 {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if events[1].Kind != event.KindDestroyed || events[1].Count != 0 {
		t.Fatalf("unexpected destroy event: %+v", events[1])
	}
	if first.Reaction != "insightful" {
		t.Fatalf("expected reaction name, got %q", first.Reaction)
	}
}

func TestReactionService_CreateDenied(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		setup   func(env *reactionEnv)
		actorID uint64
		postID  uint64
		want    error
	}{
		{
			name:    "own post",
			actorID: 1,
			postID:  10,
			want:    ErrReactionPolicyDenied,
		},
		{
			name:    "missing post",
			actorID: 2,
			postID:  99,
			want:    ErrPostNotFound,
		},
		{
			name:    "anonymous actor",
			actorID: 0,
			postID:  10,
			want:    ErrReactionPolicyDenied,
		},
		{
			name: "closed post",
			setup: func(env *reactionEnv) {
				env.db.Model(&model.Post{}).Where("id = ?", 10).Update("is_closed", true)
			},
			actorID: 2,
			postID:  10,
			want:    ErrReactionPolicyDenied,
		},
		{
			name: "banned actor",
			setup: func(env *reactionEnv) {
				env.db.Model(&model.User{}).Where("id = ?", 2).Update("is_ban", true)
			},
			actorID: 2,
			postID:  10,
			want:    ErrReactionPolicyDenied,
		},
		{
			name: "trust level too low",
			setup: func(env *reactionEnv) {
				env.db.Model(&model.User{}).Where("id = ?", 2).Update("trust_level", 0)
			},
			actorID: 2,
			postID:  10,
			want:    ErrReactionPolicyDenied,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testReactionConfig()
			cfg.MinTrustLevel = 1
			env := newReactionEnv(t, cfg)
			testutil.SeedUser(t, env.db, 1, 1)
			testutil.SeedUser(t, env.db, 2, 1)
			testutil.SeedPost(t, env.db, 10, 1)
			if tc.setup != nil {
				tc.setup(env)
			}

			_, err := env.svc.Create(ctx, tc.actorID, tc.postID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if count, _ := env.reaction.CountActiveByPostID(ctx, 10, model.ReactionKindInsightful); count != 0 {
				t.Fatalf("expected no reaction rows, got %d", count)
			}
			if n, _ := env.quota.CountFor(ctx, tc.actorID, time.Now()); n != 0 {
				t.Fatalf("expected untouched quota, got %d", n)
			}
			if len(env.pub.Events()) != 0 {
				t.Fatal("expected no events")
			}
		})
	}
}

func TestReactionService_Disabled(t *testing.T) {
	cfg := testReactionConfig()
	cfg.Enabled = false
	env := newReactionEnv(t, cfg)
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	if _, err := env.svc.Create(ctx, 2, 10); !errors.Is(err, ErrReactionDisabled) {
		t.Fatalf("create: expected disabled, got %v", err)
	}
	if _, err := env.svc.Destroy(ctx, 2, 10); !errors.Is(err, ErrReactionDisabled) {
		t.Fatalf("destroy: expected disabled, got %v", err)
	}
	state, err := env.svc.GetState(ctx, 2, 10)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.ShowReactions || state.CanToggle {
		t.Fatalf("expected hidden reactions, got %+v", state)
	}
}

func TestReactionService_RateLimit(t *testing.T) {
	cfg := testReactionConfig()
	cfg.MaxPerDay = 2
	env := newReactionEnv(t, cfg)
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	for _, id := range []uint64{10, 11, 12} {
		testutil.SeedPost(t, env.db, id, 1)
	}

	for _, id := range []uint64{10, 11} {
		if _, err := env.svc.Create(ctx, 2, id); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}
	if _, err := env.svc.Create(ctx, 2, 12); !errors.Is(err, ErrReactionRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if count, _ := env.reaction.CountActiveByPostID(ctx, 12, model.ReactionKindInsightful); count != 0 {
		t.Fatalf("rate limited create must not persist, got %d", count)
	}
	if n, _ := env.quota.CountFor(ctx, 2, time.Now()); n != 2 {
		t.Fatalf("expected quota 2, got %d", n)
	}

	// 撤销释放当日配额
	if _, err := env.svc.Destroy(ctx, 2, 10); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := env.svc.Create(ctx, 2, 12); err != nil {
		t.Fatalf("create after destroy: %v", err)
	}
}

func TestReactionService_DestroyMissing(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedUser(t, env.db, 3, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	if _, err := env.svc.Create(ctx, 3, 10); err != nil {
		t.Fatalf("seed reaction: %v", err)
	}
	before := len(env.pub.Events())

	if _, err := env.svc.Destroy(ctx, 2, 10); !errors.Is(err, ErrReactionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.svc.Destroy(ctx, 2, 99); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected post not found, got %v", err)
	}
	if got := env.postCount(t, 10); got != 1 {
		t.Fatalf("count changed: %d", got)
	}
	if n, _ := env.quota.CountFor(ctx, 3, time.Now()); n != 1 {
		t.Fatalf("quota changed: %d", n)
	}
	if len(env.pub.Events()) != before {
		t.Fatal("failed destroy must not publish")
	}
}

func TestReactionService_ConcurrentCreateSamePost(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Create(ctx, 2, 10)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrReactionAlreadyActioned):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d", workers-1, successes, conflicts)
	}
	if got := env.postCount(t, 10); got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
	if n, _ := env.quota.CountFor(ctx, 2, time.Now()); n != 1 {
		t.Fatalf("expected quota 1, got %d", n)
	}
}

func TestReactionService_ConcurrentQuota(t *testing.T) {
	cfg := testReactionConfig()
	cfg.MaxPerDay = 3
	env := newReactionEnv(t, cfg)
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	posts := []uint64{10, 11, 12, 13, 14, 15}
	for _, id := range posts {
		testutil.SeedPost(t, env.db, id, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, id := range posts {
		wg.Add(1)
		go func(postID uint64) {
			defer wg.Done()
			_, err := env.svc.Create(ctx, 2, postID)
			if err != nil && !errors.Is(err, ErrReactionRateLimited) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if successes != 3 {
		t.Fatalf("expected 3 successes, got %d", successes)
	}
	if n, _ := env.quota.CountFor(ctx, 2, time.Now()); n != 3 {
		t.Fatalf("expected quota 3, got %d", n)
	}
}

func TestReactionService_GetState(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)
	if _, err := env.svc.Create(ctx, 2, 10); err != nil {
		t.Fatalf("create: %v", err)
	}

	state, err := env.svc.GetState(ctx, 2, 10)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.ReactionCount != 1 || !state.ActedByCurrentUser || !state.CanToggle || !state.CanUndo {
		t.Fatalf("unexpected actor state: %+v", state)
	}

	state, err = env.svc.GetState(ctx, 1, 10)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.ActedByCurrentUser || state.CanToggle || state.CanUndo {
		t.Fatalf("author must not toggle own post: %+v", state)
	}

	state, err = env.svc.GetState(ctx, 0, 10)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.CanToggle || !state.ShowReactions {
		t.Fatalf("unexpected anonymous state: %+v", state)
	}

	env.db.Model(&model.Post{}).Where("id = ?", 10).Update("status", model.PostStatusPending)
	if _, err = env.svc.GetState(ctx, 2, 10); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("unpublished post should be hidden, got %v", err)
	}
}

func TestReactionService_ListActors(t *testing.T) {
	cfg := testReactionConfig()
	cfg.WhoListLimit = 2
	env := newReactionEnv(t, cfg)
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedPost(t, env.db, 10, 1)
	for _, uid := range []uint64{4, 2, 3} {
		testutil.SeedUser(t, env.db, uid, 1)
		if _, err := env.svc.Create(ctx, uid, 10); err != nil {
			t.Fatalf("create %d: %v", uid, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list, err := env.svc.ListActors(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list actors: %v", err)
	}
	if list.TotalCount != 3 || len(list.Users) != 2 {
		t.Fatalf("unexpected list: total=%d users=%d", list.TotalCount, len(list.Users))
	}
	if list.Users[0].ID != 4 || list.Users[0].Username != "user4" || list.Users[1].ID != 2 {
		t.Fatalf("unexpected order: %+v %+v", list.Users[0], list.Users[1])
	}

	hidden := testReactionConfig()
	hidden.ShowWhoActioned = false
	env2 := newReactionEnv(t, hidden)
	testutil.SeedUser(t, env2.db, 1, 1)
	testutil.SeedPost(t, env2.db, 10, 1)
	if _, err = env2.svc.ListActors(ctx, 0, 10); !errors.Is(err, ErrReactionPolicyDenied) {
		t.Fatalf("expected policy denied, got %v", err)
	}
}

func TestReactionService_GetCounts(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)
	testutil.SeedPost(t, env.db, 11, 1)
	if _, err := env.svc.Create(ctx, 2, 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.mr.Set(PostCountCacheKey(11), "42"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	res, err := env.svc.GetCounts(ctx, 2, []uint64{10, 11, 10, 0, 99})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if res.Counts[10] != 1 || res.Counts[11] != 42 {
		t.Fatalf("unexpected counts: %v", res.Counts)
	}
	if _, ok := res.Counts[99]; ok {
		t.Fatal("missing post should be absent")
	}
	if len(res.ActedPostIDs) != 1 || res.ActedPostIDs[0] != 10 {
		t.Fatalf("unexpected acted posts: %v", res.ActedPostIDs)
	}
	cached, err := env.mr.Get(PostCountCacheKey(10))
	if err != nil || cached != "1" {
		t.Fatalf("expected backfilled cache, got %q err=%v", cached, err)
	}
	if ttl := env.mr.TTL(PostCountCacheKey(10)); ttl != 600*time.Second {
		t.Fatalf("unexpected cache ttl %v", ttl)
	}

	anon, err := env.svc.GetCounts(ctx, 0, []uint64{10})
	if err != nil || anon.Counts[10] != 1 || len(anon.ActedPostIDs) != 0 {
		t.Fatalf("unexpected anonymous result %+v err=%v", anon, err)
	}
}

func TestReactionService_GetCountsHidesUnreadablePosts(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedPost(t, env.db, 10, 1)
	testutil.SeedPost(t, env.db, 11, 1)
	if err := env.db.Model(&model.Post{}).Where("id = ?", 10).Update("status", model.PostStatusPending).Error; err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if err := env.db.Model(&model.Post{}).Where("id = ?", 11).Update("is_deleted", true).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}

	res, err := env.svc.GetCounts(ctx, 9, []uint64{10, 11})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(res.Counts) != 0 {
		t.Fatalf("unreadable posts leaked: %v", res.Counts)
	}

	// 作者可以看到自己未发布的帖子，但不写入共享缓存
	res, err = env.svc.GetCounts(ctx, 1, []uint64{10})
	if err != nil {
		t.Fatalf("author counts: %v", err)
	}
	if _, ok := res.Counts[10]; !ok {
		t.Fatal("author should see own pending post")
	}
	if env.mr.Exists(PostCountCacheKey(10)) {
		t.Fatal("pending post count must not be cached")
	}

	disabled := testReactionConfig()
	disabled.Enabled = false
	env2 := newReactionEnv(t, disabled)
	if _, err = env2.svc.GetCounts(ctx, 1, []uint64{10}); !errors.Is(err, ErrReactionDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
}

// invalidatingPostRepo 在读取帖子后触发一次失效，模拟并发提交的变更
type invalidatingPostRepo struct {
	repository.PostRepo
	invalidate func()
}

func (r *invalidatingPostRepo) GetPostByIds(ctx context.Context, ids []uint64) ([]*model.Post, error) {
	posts, err := r.PostRepo.GetPostByIds(ctx, ids)
	if r.invalidate != nil {
		r.invalidate()
		r.invalidate = nil
	}
	return posts, err
}

func TestReactionService_GetCountsSkipsStaleRefill(t *testing.T) {
	cfg := testReactionConfig()
	env := newReactionEnv(t, cfg)
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	svc := env.svc.(*reactionServiceImpl)
	svc.postRepo = &invalidatingPostRepo{
		PostRepo: svc.postRepo,
		invalidate: func() {
			if _, err := env.svc.Create(ctx, 2, 10); err != nil {
				t.Errorf("concurrent create: %v", err)
			}
		},
	}

	res, err := env.svc.GetCounts(ctx, 0, []uint64{10})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if res.Counts[10] != 0 {
		t.Fatalf("expected the count read before the change, got %d", res.Counts[10])
	}
	if env.mr.Exists(PostCountCacheKey(10)) {
		t.Fatal("count read before an invalidation must not be cached")
	}

	res, err = env.svc.GetCounts(ctx, 0, []uint64{10})
	if err != nil || res.Counts[10] != 1 {
		t.Fatalf("expected fresh count 1, got %+v err=%v", res, err)
	}
	if cached, _ := env.mr.Get(PostCountCacheKey(10)); cached != "1" {
		t.Fatalf("expected fresh count cached, got %q", cached)
	}
}

func TestReactionService_InvalidatesSummaryCache(t *testing.T) {
	env := newReactionEnv(t, testReactionConfig())
	ctx := context.Background()
	testutil.SeedUser(t, env.db, 1, 1)
	testutil.SeedUser(t, env.db, 2, 1)
	testutil.SeedPost(t, env.db, 10, 1)

	keys := append(SummaryCacheKeys(testReactionConfig(), 1), SummaryCacheKeys(testReactionConfig(), 2)...)
	for _, k := range keys {
		if err := env.mr.Set(k, "{}"); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	if _, err := env.svc.Create(ctx, 2, 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, k := range keys {
		if env.mr.Exists(k) {
			t.Fatalf("expected %s to be invalidated", k)
		}
	}
}
