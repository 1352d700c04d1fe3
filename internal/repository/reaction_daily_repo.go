package repository

import (
	"Insightful/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionDailyRepo 每日配额计数，所有变更均为单条原子语句
type ReactionDailyRepo interface {
	IncrementCount(ctx context.Context, userID uint64, date string, limit int) (int64, error)
	DecrementCount(ctx context.Context, userID uint64, date string) (int64, error)
	CreateDaily(ctx context.Context, daily *model.ReactionDaily) error
	Exists(ctx context.Context, userID uint64, date string) (bool, error)
	GetCount(ctx context.Context, userID uint64, date string) (int, error)
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

type reactionDailyRepoImpl struct {
	db *gorm.DB
}

func NewReactionDailyRepo(db *gorm.DB) ReactionDailyRepo {
	return &reactionDailyRepoImpl{db: db}
}

// IncrementCount limit <= 0 时不设上限，返回受影响行数
func (s *reactionDailyRepoImpl) IncrementCount(ctx context.Context, userID uint64, date string, limit int) (int64, error) {
	q := conn(ctx, s.db).Model(&model.ReactionDaily{}).
		Where("user_id = ? AND reaction_date = ?", userID, date)
	if limit > 0 {
		q = q.Where("reaction_count < ?", limit)
	}
	result := q.UpdateColumns(map[string]interface{}{
		"reaction_count": gorm.Expr("reaction_count + ?", 1),
		"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
	})
	return result.RowsAffected, result.Error
}

func (s *reactionDailyRepoImpl) DecrementCount(ctx context.Context, userID uint64, date string) (int64, error) {
	result := conn(ctx, s.db).Model(&model.ReactionDaily{}).
		Where("user_id = ? AND reaction_date = ? AND reaction_count > 0", userID, date).
		UpdateColumns(map[string]interface{}{
			"reaction_count": gorm.Expr("reaction_count - ?", 1),
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

// CreateDaily 在保存点内插入，唯一键冲突不会破坏外层事务
func (s *reactionDailyRepoImpl) CreateDaily(ctx context.Context, daily *model.ReactionDaily) error {
	return conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(daily).Error
	})
}

// Exists 加共享锁读取最新提交的数据，与同事务中的 UPDATE 看到同一版本
func (s *reactionDailyRepoImpl) Exists(ctx context.Context, userID uint64, date string) (bool, error) {
	var ids []uint64
	err := conn(ctx, s.db).Model(&model.ReactionDaily{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
		Where("user_id = ? AND reaction_date = ?", userID, date).
		Limit(1).
		Pluck("id", &ids).Error
	return len(ids) > 0, err
}

func (s *reactionDailyRepoImpl) GetCount(ctx context.Context, userID uint64, date string) (int, error) {
	var counts []int
	err := conn(ctx, s.db).Model(&model.ReactionDaily{}).
		Where("user_id = ? AND reaction_date = ?", userID, date).
		Limit(1).
		Pluck("reaction_count", &counts).Error
	if err != nil || len(counts) == 0 {
		return 0, err
	}
	return counts[0], nil
}

func (s *reactionDailyRepoImpl) DeleteBefore(ctx context.Context, date string) (int64, error) {
	result := conn(ctx, s.db).
		Where("reaction_date < ?", date).
		Delete(&model.ReactionDaily{})
	return result.RowsAffected, result.Error
}
