package event

import (
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/redis"
	"context"
	"strconv"

	"github.com/goccy/go-json"
)

// RedisBroadcaster 将事件发布到帖子的实时频道
type RedisBroadcaster struct{}

func NewRedisBroadcaster() *RedisBroadcaster {
	return &RedisBroadcaster{}
}

func ChannelFor(postID uint64) string {
	return consts.PostReactionChannelKey + strconv.FormatUint(postID, 10)
}

func (b *RedisBroadcaster) Name() string {
	return "redis_broadcast"
}

func (b *RedisBroadcaster) Handle(ctx context.Context, ev ReactionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return redis.Publish(ctx, ChannelFor(ev.PostID), payload)
}
