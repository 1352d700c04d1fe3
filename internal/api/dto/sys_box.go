package dto

// SysBoxDTO 通知箱条目，反应类通知带有 Reaction
type SysBoxDTO struct {
	ID         string             `json:"id"`
	SenderID   uint64             `json:"sender_id"`
	SenderName string             `json:"sender_name"`
	AvatarURL  string             `json:"avatar_url"`
	Type       int8               `json:"type"`
	TargetID   uint64             `json:"target_id"`
	Content    string             `json:"content"`
	Reaction   *ReactionNoticeDTO `json:"reaction,omitempty"`
	Payload    map[string]any     `json:"payload,omitempty"`
	IsRead     bool               `json:"is_read"`
	CreatedAt  string             `json:"created_at"`
	UpdatedAt  string             `json:"updated_at"`
}

// ReactionNoticeDTO 通知写入时的反应类型与帖子计数
type ReactionNoticeDTO struct {
	PostID uint64 `json:"post_id"`
	Kind   string `json:"kind"`
	Count  int64  `json:"count"`
}

type SysBoxListReq struct {
	Page     int `form:"page" binding:"omitempty,gte=1"`
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=50"`
}

type SysBoxListDTO struct {
	Items       []*SysBoxDTO `json:"items"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	HasMore     bool         `json:"has_more"`
	UnreadCount int64        `json:"unread_count"`
}

type SysBoxReadReq struct {
	MsgID string `json:"msg_id" binding:"required,len=24,hexadecimal"`
}

type SysBoxUnreadDTO struct {
	UnreadCount int64 `json:"unread_count"`
}
