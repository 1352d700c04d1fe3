package handler

import (
	"Insightful/internal/api/dto"
	"Insightful/internal/pkg/response"
	"Insightful/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultSysBoxPageSize = 10

// SysBoxHandler 作者的反应通知箱
type SysBoxHandler struct {
	sysBoxService service.SysBoxService
}

func NewSysBoxHandler(s service.SysBoxService) *SysBoxHandler {
	return &SysBoxHandler{
		sysBoxService: s,
	}
}

// GetNotificationList 分页获取通知，附带未读数
func (h *SysBoxHandler) GetNotificationList(c *gin.Context) {
	var req dto.SysBoxListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = defaultSysBoxPageSize
	}

	page, err := h.sysBoxService.GetNotificationList(c.Request.Context(), c.GetUint64("user_id"), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (h *SysBoxHandler) GetUnreadCount(c *gin.Context) {
	unread, err := h.sysBoxService.GetUnreadCount(c.Request.Context(), c.GetUint64("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, unread)
}

// MarkRead 只能标记自己的通知
func (h *SysBoxHandler) MarkRead(c *gin.Context) {
	var req dto.SysBoxReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := h.sysBoxService.MarkRead(c.Request.Context(), c.GetUint64("user_id"), req.MsgID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *SysBoxHandler) MarkAllRead(c *gin.Context) {
	if err := h.sysBoxService.MarkAllRead(c.Request.Context(), c.GetUint64("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
