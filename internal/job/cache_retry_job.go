package job

import (
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/logger"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/service"
	log "log/slog"
	"time"
)

// CacheRetryJob 补偿之前清理失败的缓存键
type CacheRetryJob struct {
	invalidator service.CacheInvalidator
}

func NewCacheRetryJob(invalidator service.CacheInvalidator) *CacheRetryJob {
	return &CacheRetryJob{invalidator: invalidator}
}

func (s *CacheRetryJob) Run() {
	ctx, traceID := logger.NewJobContext("job")

	locked, err := redis.TryLock(ctx, consts.ReactionRetryLock, traceID, time.Minute, 1)
	if err != nil || !locked {
		return
	}
	defer redis.UnLock(ctx, consts.ReactionRetryLock, traceID)

	n, err := s.invalidator.RetryPending(ctx)
	if err != nil {
		log.ErrorContext(ctx, "retry cache invalidation error", "err", err)
		return
	}
	if n > 0 {
		log.InfoContext(ctx, "retry cache invalidation success", "keys", n)
	}
}
