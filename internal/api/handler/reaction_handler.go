package handler

import (
	"Insightful/internal/api/dto"
	"Insightful/internal/pkg/response"
	"Insightful/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	reactionSvc service.ReactionService
	summarySvc  service.SummaryService
	quota       service.QuotaTracker
}

func NewReactionHandler(
	reactionSvc service.ReactionService,
	summarySvc service.SummaryService,
	quota service.QuotaTracker,
) *ReactionHandler {
	return &ReactionHandler{
		reactionSvc: reactionSvc,
		summarySvc:  summarySvc,
		quota:       quota,
	}
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, service.ErrParamInvalid)
		return 0, false
	}
	return id, true
}

// Create 添加反应
func (s *ReactionHandler) Create(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	userID := c.GetUint64("user_id")

	res, err := s.reactionSvc.Create(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Destroy 撤销反应
func (s *ReactionHandler) Destroy(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	userID := c.GetUint64("user_id")

	res, err := s.reactionSvc.Destroy(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetState 帖子的反应聚合字段
func (s *ReactionHandler) GetState(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	userID := c.GetUint64("user_id")

	state, err := s.reactionSvc.GetState(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

// ListActors 谁标记了该帖子
func (s *ReactionHandler) ListActors(c *gin.Context) {
	postID, ok := parseID(c, "post_id")
	if !ok {
		return
	}
	userID := c.GetUint64("user_id")

	actors, err := s.reactionSvc.ListActors(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, actors)
}

// GetBatchCounts 批量获取帖子反应数
func (s *ReactionHandler) GetBatchCounts(c *gin.Context) {
	var req dto.ReactionCountsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	counts, err := s.reactionSvc.GetCounts(c.Request.Context(), c.GetUint64("user_id"), req.PostIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, counts)
}

// GetUserSummary 用户反应汇总
func (s *ReactionHandler) GetUserSummary(c *gin.Context) {
	targetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	viewerID := c.GetUint64("user_id")

	summary, err := s.summarySvc.GetUserSummary(c.Request.Context(), targetID, viewerID, c.Query("locale"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// PurgeDaily 管理员手动清理过期配额记录
func (s *ReactionHandler) PurgeDaily(c *gin.Context) {
	var req dto.PurgeDailyReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
	}

	deleted, err := s.quota.Purge(c.Request.Context(), req.KeepDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.PurgeDailyDTO{Deleted: deleted})
}
