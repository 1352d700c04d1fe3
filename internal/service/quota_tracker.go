package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/model"
	"Insightful/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"time"
)

const (
	quotaDateLayout = "2006-01-02"
	// 并发插入冲突的最大重试次数
	quotaMaxAttempts = 5
)

// QuotaTracker 用户每日反应配额
type QuotaTracker interface {
	Increment(ctx context.Context, userID uint64) error
	Reserve(ctx context.Context, userID uint64, limit int) (bool, error)
	Decrement(ctx context.Context, userID uint64) error
	CountFor(ctx context.Context, userID uint64, date time.Time) (int, error)
	WithinLimit(ctx context.Context, userID uint64, limit int) (bool, error)
	Purge(ctx context.Context, keepDays int) (int64, error)
}

type quotaTrackerImpl struct {
	dailyRepo repository.ReactionDailyRepo
	cfg       config.ReactionConfig
	now       func() time.Time
}

func NewQuotaTracker(dailyRepo repository.ReactionDailyRepo, cfg config.ReactionConfig) QuotaTracker {
	return &quotaTrackerImpl{
		dailyRepo: dailyRepo,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *quotaTrackerImpl) today() string {
	return s.now().Format(quotaDateLayout)
}

// Increment 今日计数 +1，不设上限
func (s *quotaTrackerImpl) Increment(ctx context.Context, userID uint64) error {
	_, err := s.bump(ctx, userID, 0)
	return err
}

// Reserve 计数小于 limit 时 +1，返回是否成功占用
func (s *quotaTrackerImpl) Reserve(ctx context.Context, userID uint64, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	return s.bump(ctx, userID, limit)
}

// bump 先原子更新已有行，缺失时插入，插入冲突说明并发请求已建行，回到更新重试
// 冲突后更新仍未命中时行一定存在，只能是已达上限
func (s *quotaTrackerImpl) bump(ctx context.Context, userID uint64, limit int) (bool, error) {
	date := s.today()
	rowSeen := false
	for attempt := 0; attempt < quotaMaxAttempts; attempt++ {
		affected, err := s.dailyRepo.IncrementCount(ctx, userID, date, limit)
		if err != nil {
			return false, fmt.Errorf("increment quota: %w", err)
		}
		if affected > 0 {
			return true, nil
		}
		if rowSeen && limit > 0 {
			return false, nil
		}

		exists, err := s.dailyRepo.Exists(ctx, userID, date)
		if err != nil {
			return false, fmt.Errorf("check quota row: %w", err)
		}
		if exists {
			// 行存在但更新未命中，已达上限
			return false, nil
		}

		err = s.dailyRepo.CreateDaily(ctx, &model.ReactionDaily{
			UserID:        userID,
			ReactionDate:  date,
			ReactionCount: 1,
		})
		if err == nil {
			return true, nil
		}
		if !repository.IsDuplicateKey(err) {
			return false, fmt.Errorf("create quota row: %w", err)
		}
		rowSeen = true
		log.DebugContext(ctx, "quota row created concurrently, retrying", "user_id", userID, "attempt", attempt+1)
	}
	return false, errQuotaConflict
}

// Decrement 今日计数 -1，计数为 0 或无记录时不做任何事
func (s *quotaTrackerImpl) Decrement(ctx context.Context, userID uint64) error {
	if _, err := s.dailyRepo.DecrementCount(ctx, userID, s.today()); err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}
	return nil
}

func (s *quotaTrackerImpl) CountFor(ctx context.Context, userID uint64, date time.Time) (int, error) {
	return s.dailyRepo.GetCount(ctx, userID, date.Format(quotaDateLayout))
}

func (s *quotaTrackerImpl) WithinLimit(ctx context.Context, userID uint64, limit int) (bool, error) {
	count, err := s.CountFor(ctx, userID, s.now())
	if err != nil {
		return false, err
	}
	return count < limit, nil
}

// Purge 删除 keepDays 天之前的计数，keepDays <= 0 时使用配置的保留天数
func (s *quotaTrackerImpl) Purge(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		keepDays = s.cfg.DailyRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -keepDays).Format(quotaDateLayout)
	deleted, err := s.dailyRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge quota rows: %w", err)
	}
	log.InfoContext(ctx, "purged reaction daily rows", "before", cutoff, "deleted", deleted)
	return deleted, nil
}
