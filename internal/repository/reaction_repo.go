package repository

import (
	"Insightful/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Counterpart 与某用户互动最多的对象
type Counterpart struct {
	UserID uint64
	Total  int64
}

type ReactionRepo interface {
	CreateReaction(ctx context.Context, reaction *model.PostReaction) error
	GetActiveReaction(ctx context.Context, postID, userID uint64, kind model.ReactionKind) (*model.PostReaction, error)
	SoftDeleteReaction(ctx context.Context, id uint64, at time.Time) (int64, error)
	CountActiveByPostID(ctx context.Context, postID uint64, kind model.ReactionKind) (int64, error)
	GetActiveUserIDs(ctx context.Context, postID uint64, kind model.ReactionKind, limit int) ([]uint64, error)
	GetActedPostIDs(ctx context.Context, userID uint64, postIDs []uint64, kind model.ReactionKind) ([]uint64, error)
	GetTopGivers(ctx context.Context, ownerID uint64, kind model.ReactionKind, limit int) ([]Counterpart, error)
	GetTopReceivers(ctx context.Context, userID uint64, kind model.ReactionKind, limit int) ([]Counterpart, error)
}

type reactionRepoImpl struct {
	db *gorm.DB
}

func NewReactionRepo(db *gorm.DB) ReactionRepo {
	return &reactionRepoImpl{db}
}

func (s *reactionRepoImpl) CreateReaction(ctx context.Context, reaction *model.PostReaction) error {
	return conn(ctx, s.db).Create(reaction).Error
}

// GetActiveReaction 不存在时返回 nil
func (s *reactionRepoImpl) GetActiveReaction(ctx context.Context, postID, userID uint64, kind model.ReactionKind) (*model.PostReaction, error) {
	var reaction model.PostReaction
	err := conn(ctx, s.db).
		Where("post_id = ? AND user_id = ? AND kind = ? AND deleted_at IS NULL", postID, userID, kind).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// SoftDeleteReaction 清除 active 标记，释放唯一索引
func (s *reactionRepoImpl) SoftDeleteReaction(ctx context.Context, id uint64, at time.Time) (int64, error) {
	result := conn(ctx, s.db).Model(&model.PostReaction{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": at,
			"active":     nil,
		})
	return result.RowsAffected, result.Error
}

func (s *reactionRepoImpl) CountActiveByPostID(ctx context.Context, postID uint64, kind model.ReactionKind) (int64, error) {
	var count int64
	err := conn(ctx, s.db).Model(&model.PostReaction{}).
		Where("post_id = ? AND kind = ? AND deleted_at IS NULL", postID, kind).
		Count(&count).Error
	return count, err
}

func (s *reactionRepoImpl) GetActiveUserIDs(ctx context.Context, postID uint64, kind model.ReactionKind, limit int) ([]uint64, error) {
	var userIDs []uint64
	err := conn(ctx, s.db).Model(&model.PostReaction{}).
		Where("post_id = ? AND kind = ? AND deleted_at IS NULL", postID, kind).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// GetActedPostIDs 返回 postIDs 中该用户有有效反应的帖子
func (s *reactionRepoImpl) GetActedPostIDs(ctx context.Context, userID uint64, postIDs []uint64, kind model.ReactionKind) ([]uint64, error) {
	acted := make([]uint64, 0)
	if userID == 0 || len(postIDs) == 0 {
		return acted, nil
	}
	err := conn(ctx, s.db).Model(&model.PostReaction{}).
		Where("user_id = ? AND kind = ? AND deleted_at IS NULL", userID, kind).
		Where("post_id IN ?", postIDs).
		Pluck("post_id", &acted).Error
	return acted, err
}

// GetTopGivers 给 ownerID 反应最多的用户
func (s *reactionRepoImpl) GetTopGivers(ctx context.Context, ownerID uint64, kind model.ReactionKind, limit int) ([]Counterpart, error) {
	return s.topCounterparts(ctx, "owner_id", "user_id", ownerID, kind, limit)
}

// GetTopReceivers userID 反应最多的作者
func (s *reactionRepoImpl) GetTopReceivers(ctx context.Context, userID uint64, kind model.ReactionKind, limit int) ([]Counterpart, error) {
	return s.topCounterparts(ctx, "user_id", "owner_id", userID, kind, limit)
}

func (s *reactionRepoImpl) topCounterparts(ctx context.Context, filterCol, groupCol string, id uint64, kind model.ReactionKind, limit int) ([]Counterpart, error) {
	result := make([]Counterpart, 0)
	err := conn(ctx, s.db).Model(&model.PostReaction{}).
		Select(groupCol+" AS user_id, COUNT(*) AS total").
		Where(filterCol+" = ? AND kind = ? AND deleted_at IS NULL", id, kind).
		Group(groupCol).
		Order("total DESC").Order(groupCol + " ASC").
		Limit(limit).
		Scan(&result).Error
	return result, err
}
