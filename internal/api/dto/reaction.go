package dto

// ReactionToggleDTO 添加或撤销反应的返回
type ReactionToggleDTO struct {
	Success            bool  `json:"success"`
	Count              int64 `json:"count"`
	Active             bool  `json:"active"`
	ActedByCurrentUser bool  `json:"acted_by_current_user"`
	CanToggle          bool  `json:"can_toggle"`
	CanUndo            bool  `json:"can_undo"`
}

// ReactionStateDTO 帖子展示层使用的聚合字段
type ReactionStateDTO struct {
	PostID             uint64 `json:"post_id"`
	ReactionCount      int64  `json:"reaction_count"`
	ActedByCurrentUser bool   `json:"acted_by_current_user"`
	CanToggle          bool   `json:"can_toggle"`
	CanUndo            bool   `json:"can_undo"`
	ShowReactions      bool   `json:"show_reactions"`
}

type ReactionActorDTO struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// ReactionActorsDTO 反应者列表，TotalCount 为全部有效反应数
type ReactionActorsDTO struct {
	Users      []*ReactionActorDTO `json:"users"`
	TotalCount int64               `json:"total_count"`
}

type ReactionCountsReq struct {
	PostIDs []uint64 `json:"post_ids" binding:"required,min=1,max=100,dive,gt=0"`
}

// ReactionCountsDTO 不可读或不存在的帖子不出现在 Counts 中，ActedPostIDs 为当前用户已反应的帖子
type ReactionCountsDTO struct {
	Counts       map[uint64]int64 `json:"counts"`
	ActedPostIDs []uint64         `json:"acted_post_ids"`
}

// CounterpartDTO 汇总页中的互动对象
type CounterpartDTO struct {
	ReactionActorDTO
	Count int64 `json:"count"`
}

// UserReactionSummaryDTO 用户反应汇总
type UserReactionSummaryDTO struct {
	UserID           uint64            `json:"user_id"`
	Locale           string            `json:"locale"`
	GivenCount       int64             `json:"given_count"`
	ReceivedCount    int64             `json:"received_count"`
	MostReceivedFrom []*CounterpartDTO `json:"most_received_from"`
	MostGivenTo      []*CounterpartDTO `json:"most_given_to"`
}

type PurgeDailyReq struct {
	KeepDays int `json:"keep_days" binding:"omitempty,gte=1,lte=3650"`
}

type PurgeDailyDTO struct {
	Deleted int64 `json:"deleted"`
}
