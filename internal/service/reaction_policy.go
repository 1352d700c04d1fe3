package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/model"
)

// 以下均为纯函数，可在事务内反复求值

// actorPresent 被封禁或已注销的用户视为不存在
func actorPresent(actor *model.User) bool {
	return actor != nil && !actor.IsBan && !actor.IsDelete
}

// postLocked 帖子已删除、归档或关闭
func postLocked(post *model.Post) bool {
	return post.IsDeleted || post.IsArchived || post.IsClosed
}

// CanCreate 判断 actor 能否对 post 添加反应，existing 为当前有效反应
func CanCreate(cfg config.ReactionConfig, actor *model.User, post *model.Post, existing *model.PostReaction) bool {
	if !cfg.Enabled {
		return false
	}
	if !actorPresent(actor) || post == nil {
		return false
	}
	if actor.TrustLevel < cfg.MinTrustLevel {
		return false
	}
	if post.UserID == actor.ID {
		return false
	}
	if postLocked(post) {
		return false
	}
	if existing != nil && existing.IsActive() {
		return false
	}
	return true
}

// CanDestroy 只能撤销自己的有效反应，没有时间窗口限制
func CanDestroy(actor *model.User, reaction *model.PostReaction) bool {
	if reaction == nil || !reaction.IsActive() {
		return false
	}
	if !actorPresent(actor) {
		return false
	}
	return reaction.UserID == actor.ID
}

// CanToggle 有有效反应时看能否撤销，否则看能否创建
func CanToggle(cfg config.ReactionConfig, actor *model.User, post *model.Post, existing *model.PostReaction) bool {
	if !cfg.Enabled {
		return false
	}
	if existing != nil && existing.IsActive() {
		return CanDestroy(actor, existing)
	}
	return CanCreate(cfg, actor, post, existing)
}

// CanReadPost 未删除，且已发布或为作者本人
func CanReadPost(viewerID uint64, post *model.Post) bool {
	if post == nil || post.IsDeleted {
		return false
	}
	return post.Status == model.PostStatusPublished || (viewerID != 0 && post.UserID == viewerID)
}

// publicPost 任何人都可读的帖子
func publicPost(post *model.Post) bool {
	return CanReadPost(0, post)
}
