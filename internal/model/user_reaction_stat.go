package model

import "time"

// UserReactionStat 用户给出与收到的反应总数
type UserReactionStat struct {
	UserID            uint64 `gorm:"primaryKey"`
	ReactionsGiven    int64  `gorm:"not null;default:0"`
	ReactionsReceived int64  `gorm:"not null;default:0"`
	UpdatedAt         time.Time
}

func (UserReactionStat) TableName() string {
	return "user_reaction_stats"
}
