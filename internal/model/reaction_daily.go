package model

import "time"

// ReactionDaily 用户每日创建反应的计数
type ReactionDaily struct {
	ID            uint64 `gorm:"primaryKey"`
	UserID        uint64 `gorm:"not null;uniqueIndex:uk_reaction_daily_user_date,priority:1"`
	ReactionDate  string `gorm:"type:date;not null;uniqueIndex:uk_reaction_daily_user_date,priority:2;index:idx_reaction_date"`
	ReactionCount int    `gorm:"type:int;not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ReactionDaily) TableName() string {
	return "reaction_daily"
}
