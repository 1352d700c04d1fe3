package model

import (
	"time"
)

// PostReaction 用户对帖子的一次反应，软删除后可重新创建
// Active 为 1 表示有效，软删除时置为 NULL，唯一索引只约束有效记录
type PostReaction struct {
	ID        uint64       `gorm:"primaryKey" json:"id"`
	PostID    uint64       `gorm:"not null;uniqueIndex:uk_post_user_kind_active,priority:1" json:"postId"`
	UserID    uint64       `gorm:"not null;uniqueIndex:uk_post_user_kind_active,priority:2;index:idx_post_reactions_user_id" json:"userId"`
	OwnerID   uint64       `gorm:"not null;index:idx_post_reactions_owner_id" json:"ownerId"`
	Kind      ReactionKind `gorm:"type:tinyint;not null;uniqueIndex:uk_post_user_kind_active,priority:3" json:"kind"`
	Active    *bool        `gorm:"type:tinyint(1);uniqueIndex:uk_post_user_kind_active,priority:4" json:"-"`
	CreatedAt time.Time    `json:"createdAt"`
	DeletedAt *time.Time   `json:"deletedAt"`
}

func (PostReaction) TableName() string {
	return "post_reactions"
}

func (r *PostReaction) IsActive() bool {
	return r.DeletedAt == nil && r.Active != nil && *r.Active
}
