package api

import "Insightful/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ReactionHandler *handler.ReactionHandler
	SysBoxHandler   *handler.SysBoxHandler
	WSHandler       *handler.WsHandler
}
