package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"
)

// CacheInvalidator 反应变更后清理用户汇总与帖子计数缓存
type CacheInvalidator interface {
	Invalidate(ctx context.Context, postID uint64, userIDs ...uint64) error
	RetryPending(ctx context.Context) (int, error)
}

type cacheInvalidatorImpl struct {
	cfg     config.ReactionConfig
	backoff time.Duration
}

func NewCacheInvalidator(cfg config.ReactionConfig) CacheInvalidator {
	return &cacheInvalidatorImpl{
		cfg:     cfg,
		backoff: 20 * time.Millisecond,
	}
}

// SummaryCacheKey viewerID 等于 userID 时为本人视角，否则为公开视角 0，locale 为空时不带后缀
func SummaryCacheKey(userID, viewerID uint64, locale string) string {
	viewerKey := uint64(0)
	if viewerID != 0 && viewerID == userID {
		viewerKey = userID
	}
	key := consts.UserReactionSummaryKey + strconv.FormatUint(userID, 10) + ":" + strconv.FormatUint(viewerKey, 10)
	if locale != "" {
		key += ":" + locale
	}
	return key
}

// SummaryCacheKeys 用户所有视角与语言的汇总缓存键
func SummaryCacheKeys(cfg config.ReactionConfig, userID uint64) []string {
	locales := localeVariants(cfg)
	keys := make([]string, 0, 2*(len(locales)+1))
	for _, viewer := range []uint64{userID, 0} {
		keys = append(keys, SummaryCacheKey(userID, viewer, ""))
		for _, locale := range locales {
			keys = append(keys, SummaryCacheKey(userID, viewer, locale))
		}
	}
	return keys
}

func localeVariants(cfg config.ReactionConfig) []string {
	seen := make(map[string]struct{}, len(cfg.SummaryLocales)+1)
	locales := make([]string, 0, len(cfg.SummaryLocales)+1)
	for _, l := range append(append([]string{}, cfg.SummaryLocales...), cfg.DefaultLocale) {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		locales = append(locales, l)
	}
	return locales
}

func PostCountCacheKey(postID uint64) string {
	return consts.PostReactionCountKey + strconv.FormatUint(postID, 10)
}

// 版本号在每次失效时递增，回填前后版本不一致说明读到的数据可能已过期
const generationExpiration = 24 * time.Hour

func PostCountGenKey(postID uint64) string {
	return consts.PostReactionCountGenKey + strconv.FormatUint(postID, 10)
}

func SummaryGenKey(userID uint64) string {
	return consts.UserReactionSummaryGenKey + strconv.FormatUint(userID, 10)
}

// generationOrZero 版本号不存在时为 "0"
func generationOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

// Invalidate 重试若干次，仍失败则写入重试集合由定时任务补偿
func (s *cacheInvalidatorImpl) Invalidate(ctx context.Context, postID uint64, userIDs ...uint64) error {
	keys := make([]string, 0)
	gens := make([]string, 0, len(userIDs)+1)
	if postID != 0 {
		keys = append(keys, PostCountCacheKey(postID))
		gens = append(gens, PostCountGenKey(postID))
	}
	seen := make(map[uint64]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if uid == 0 {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		keys = append(keys, SummaryCacheKeys(s.cfg, uid)...)
		gens = append(gens, SummaryGenKey(uid))
	}
	if len(keys) == 0 {
		return nil
	}

	attempts := s.cfg.InvalidationRetries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	wait := s.backoff
	for i := 0; i < attempts; i++ {
		// 先递增版本号，阻止并发读者回填删除前读到的旧值
		if err = redis.IncrGenerations(ctx, generationExpiration, gens...); err == nil {
			if err = redis.DeleteKey(ctx, keys...); err == nil {
				return nil
			}
		}
		log.WarnContext(ctx, "cache invalidation failed", "attempt", i+1, "err", err)
		if i < attempts-1 {
			time.Sleep(wait)
			wait *= 2
		}
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	if addErr := redis.SAdd(ctx, consts.ReactionInvalidateRetryKey, members...); addErr != nil {
		log.ErrorContext(ctx, "enqueue cache invalidation retry failed", "keys", len(keys), "err", addErr)
	}
	return fmt.Errorf("invalidate reaction caches: %w", err)
}

// RetryPending 删除重试集合中积压的键，返回处理数量
func (s *cacheInvalidatorImpl) RetryPending(ctx context.Context) (int, error) {
	if err := redis.Rename(ctx, consts.ReactionInvalidateRetryKey, consts.ReactionInvalidateWorkKey); err != nil {
		// 集合不存在
		return 0, nil
	}
	keys, err := redis.GetSet(ctx, consts.ReactionInvalidateWorkKey)
	if err != nil {
		return 0, err
	}
	if err = redis.DeleteKey(ctx, keys...); err != nil {
		members := make([]interface{}, len(keys))
		for i, k := range keys {
			members[i] = k
		}
		_ = redis.SAdd(ctx, consts.ReactionInvalidateRetryKey, members...)
		return 0, err
	}
	if err = redis.DeleteKey(ctx, consts.ReactionInvalidateWorkKey); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}
