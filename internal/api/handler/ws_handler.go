package handler

import (
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/pkg/response"
	"Insightful/internal/pkg/util"
	"Insightful/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxSubscribedPosts = 100

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct{}

func NewWsHandler() *WsHandler {
	return &WsHandler{}
}

// Connect 订阅若干帖子的反应变更并推送给客户端
func (s *WsHandler) Connect(c *gin.Context) {
	postIDs, err := util.ParseIDList(c.Query("post_ids"), maxSubscribedPosts)
	if err != nil || len(postIDs) == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	channels := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		channels = append(channels, event.ChannelFor(id))
	}

	// 订阅 Redis 总线
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pubsub := redis.Subscribe(ctx, channels...)
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("反应 WS 连接已建立", "channels", len(channels))

	stopChan := make(chan struct{})

	// 读循环：监听客户端主动断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(stopChan)
				return
			}
		}
	}()

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg, ok := <-redisCh:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Error("WS 推送失败", "err", err)
				return
			}
		case <-stopChan:
			log.Info("反应 WS 连接已断开")
			return
		}
	}
}
