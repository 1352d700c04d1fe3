package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/model"
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/pkg/testutil"
	"Insightful/internal/repository"
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.ReactionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.ReactionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []event.ReactionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.ReactionEvent(nil), p.events...)
}

func testReactionConfig() config.ReactionConfig {
	return config.ReactionConfig{
		Enabled:             true,
		Kind:                "insightful",
		MinTrustLevel:       0,
		MaxPerDay:           50,
		ShowWhoActioned:     true,
		WhoListLimit:        50,
		DailyRetentionDays:  90,
		SummaryLocales:      []string{"en", "zh"},
		DefaultLocale:       "en",
		SummaryCacheTTL:     30,
		CountCacheTTL:       600,
		MaxSummaryResults:   6,
		InvalidationRetries: 2,
	}
}

// useRedis 将全局客户端替换为 miniredis
func useRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, client := testutil.NewRedis(t)
	setRdb(t, client)
	return mr
}

func setRdb(t *testing.T, client *redisv9.Client) {
	t.Helper()
	orig := redis.Rdb
	redis.Rdb = client
	t.Cleanup(func() { redis.Rdb = orig })
}

type reactionEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	svc      ReactionService
	summary  SummaryService
	quota    QuotaTracker
	stats    repository.UserReactionStatRepo
	reaction repository.ReactionRepo
	pub      *recordingPublisher
}

func newReactionEnv(t *testing.T, cfg config.ReactionConfig) *reactionEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := useRedis(t)

	reactionRepo := repository.NewReactionRepo(db)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepo(db)
	statRepo := repository.NewUserReactionStatRepo(db)
	quota := NewQuotaTracker(repository.NewReactionDailyRepo(db), cfg)
	invalidator := NewCacheInvalidator(cfg)
	pub := &recordingPublisher{}

	return &reactionEnv{
		db: db,
		mr: mr,
		svc: NewReactionService(cfg, model.ReactionKindInsightful, repository.NewTxManager(db),
			reactionRepo, postRepo, userRepo, statRepo, quota, invalidator, pub),
		summary:  NewSummaryService(cfg, model.ReactionKindInsightful, reactionRepo, statRepo, userRepo),
		quota:    quota,
		stats:    statRepo,
		reaction: reactionRepo,
		pub:      pub,
	}
}

func (e *reactionEnv) postCount(t *testing.T, postID uint64) int {
	t.Helper()
	var post model.Post
	if err := e.db.First(&post, postID).Error; err != nil {
		t.Fatalf("load post %d: %v", postID, err)
	}
	return post.ReactionCount
}
