package model

import (
	"time"
)

const (
	PostStatusPending   int8 = 0
	PostStatusPublished int8 = 1
	PostStatusRejected  int8 = 2
	PostStatusReview    int8 = 3
)

type Post struct {
	ID            uint64    `gorm:"primaryKey"`
	UserID        uint64    `gorm:"not null;index:idx_posts_user_id" json:"user_id"`
	Title         string    `gorm:"type:varchar(255)" json:"title"`
	Content       string    `gorm:"not null" json:"content"`
	ReactionCount int       `gorm:"not null;default:0" json:"reaction_count"`
	Status        int8      `gorm:"not null;default:0" json:"status"` // 0:审核中, 1:已发布, 2:拒绝, 3:待人工
	IsDeleted     bool      `gorm:"type:tinyint(1);not null;default:0" json:"is_deleted"`
	IsArchived    bool      `gorm:"type:tinyint(1);not null;default:0" json:"is_archived"`
	IsClosed      bool      `gorm:"type:tinyint(1);not null;default:0" json:"is_closed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 关联关系
	User User `gorm:"foreignKey:UserID;references:ID"`
}

func (Post) TableName() string {
	return "posts"
}
