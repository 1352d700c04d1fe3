package model

import (
	"time"
)

type User struct {
	ID         uint64  `gorm:"primaryKey"`
	Username   *string `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	TrustLevel int     `gorm:"type:tinyint;not null;default:0"`
	IsStaff    bool    `gorm:"type:tinyint(1);default:0"`
	IsBan      bool    `gorm:"type:tinyint(1);default:0"`
	IsDelete   bool    `gorm:"type:tinyint(1);default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	UserDetail UserDetail `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}
