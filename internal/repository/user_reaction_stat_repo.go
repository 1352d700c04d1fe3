package repository

import (
	"Insightful/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	StatGiven    = "reactions_given"
	StatReceived = "reactions_received"
)

type UserReactionStatRepo interface {
	IncrementStat(ctx context.Context, userID uint64, column string) error
	DecrementStat(ctx context.Context, userID uint64, column string) error
	GetStat(ctx context.Context, userID uint64) (*model.UserReactionStat, error)
}

type userReactionStatRepoImpl struct {
	db *gorm.DB
}

func NewUserReactionStatRepo(db *gorm.DB) UserReactionStatRepo {
	return &userReactionStatRepoImpl{db: db}
}

func (s *userReactionStatRepoImpl) IncrementStat(ctx context.Context, userID uint64, column string) error {
	if column != StatGiven && column != StatReceived {
		return errors.New("unknown stat column " + column)
	}
	stat := &model.UserReactionStat{UserID: userID, UpdatedAt: time.Now()}
	if column == StatGiven {
		stat.ReactionsGiven = 1
	} else {
		stat.ReactionsReceived = 1
	}
	return conn(ctx, s.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": stat.UpdatedAt,
		}),
	}).Create(stat).Error
}

// DecrementStat 计数不会低于 0
func (s *userReactionStatRepoImpl) DecrementStat(ctx context.Context, userID uint64, column string) error {
	if column != StatGiven && column != StatReceived {
		return errors.New("unknown stat column " + column)
	}
	return conn(ctx, s.db).Model(&model.UserReactionStat{}).
		Where("user_id = ? AND "+column+" > 0", userID).
		UpdateColumns(map[string]interface{}{
			column:       gorm.Expr(column+" - ?", 1),
			"updated_at": time.Now(),
		}).Error
}

// GetStat 不存在时返回零值
func (s *userReactionStatRepoImpl) GetStat(ctx context.Context, userID uint64) (*model.UserReactionStat, error) {
	var stat model.UserReactionStat
	err := conn(ctx, s.db).Where("user_id = ?", userID).First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UserReactionStat{UserID: userID}, nil
		}
		return nil, err
	}
	return &stat, nil
}
