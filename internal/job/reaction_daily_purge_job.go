package job

import (
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/logger"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/service"
	log "log/slog"
	"time"
)

// ReactionDailyPurgeJob 清理过期的每日配额记录，多实例下只有拿到锁的实例执行
type ReactionDailyPurgeJob struct {
	quota    service.QuotaTracker
	keepDays int
}

func NewReactionDailyPurgeJob(quota service.QuotaTracker, keepDays int) *ReactionDailyPurgeJob {
	return &ReactionDailyPurgeJob{
		quota:    quota,
		keepDays: keepDays,
	}
}

func (s *ReactionDailyPurgeJob) Run() {
	ctx, traceID := logger.NewJobContext("job")

	locked, err := redis.TryLock(ctx, consts.ReactionDailyPurgeLock, traceID, 10*time.Minute, 1)
	if err != nil {
		log.ErrorContext(ctx, "acquire purge lock error", "err", err)
		return
	}
	if !locked {
		return
	}
	defer redis.UnLock(ctx, consts.ReactionDailyPurgeLock, traceID)

	deleted, err := s.quota.Purge(ctx, s.keepDays)
	if err != nil {
		log.ErrorContext(ctx, "purge reaction daily error", "err", err)
		return
	}

	log.InfoContext(ctx, "purge reaction daily success", "deleted", deleted, "keep_days", s.keepDays)
}
