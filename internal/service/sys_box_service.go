package service

import (
	"Insightful/internal/api/dto"
	"Insightful/internal/model"
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/mongo"
	"Insightful/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

type SysBoxService interface {
	NotifyReaction(ctx context.Context, ev event.ReactionEvent) error
	GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) (*dto.SysBoxListDTO, error)
	GetUnreadCount(ctx context.Context, userID uint64) (*dto.SysBoxUnreadDTO, error)
	MarkRead(ctx context.Context, userID uint64, msgID string) error
	MarkAllRead(ctx context.Context, userID uint64) error
}

type sysBoxServiceImpl struct {
	sysBoxRepo mongo.SysBoxRepo
	userRepo   repository.UserRepo
}

func NewSysBoxService(sysBox mongo.SysBoxRepo, user repository.UserRepo) SysBoxService {
	return &sysBoxServiceImpl{
		sysBoxRepo: sysBox,
		userRepo:   user,
	}
}

// NotifyReaction 作者收到反应时写入通知，自己对自己或撤销事件忽略
func (s *sysBoxServiceImpl) NotifyReaction(ctx context.Context, ev event.ReactionEvent) error {
	if ev.Kind != event.KindCreated || ev.OwnerID == 0 || ev.OwnerID == ev.ActorID {
		return nil
	}
	return s.sysBoxRepo.UpsertNotification(ctx, &mongo.SysBoxModel{
		ReceiverID: ev.OwnerID,
		SenderID:   ev.ActorID,
		Type:       mongo.SysBoxTypeReaction,
		TargetID:   ev.PostID,
		Content:    "认为你的帖子很有见地",
		Payload: map[string]any{
			"reaction": ev.Reaction,
			"count":    ev.Count,
		},
		CreatedAt: ev.OccurredAt,
	})
}

// GetNotificationList 获取通知列表并补全用户信息，多取一条用于判断是否还有下一页
func (s *sysBoxServiceImpl) GetNotificationList(ctx context.Context, userID uint64, page, pageSize int) (*dto.SysBoxListDTO, error) {
	limit := int64(pageSize) + 1
	offset := int64((page - 1) * pageSize)

	var (
		list   []*mongo.SysBoxModel
		unread int64
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.sysBoxRepo.GetNotificationList(gCtx, userID, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.sysBoxRepo.GetUnreadCount(gCtx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	hasMore := len(list) > pageSize
	if hasMore {
		list = list[:pageSize]
	}

	senderIDs := make([]uint64, 0, len(list))
	for _, m := range list {
		if m.SenderID > 0 {
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	senders, err := s.userRepo.GetUserByIds(ctx, uniqueIDs(senderIDs))
	if err != nil {
		return nil, err
	}
	senderByID := make(map[uint64]*model.User, len(senders))
	for _, u := range senders {
		senderByID[u.ID] = u
	}

	res := make([]*dto.SysBoxDTO, 0, len(list))
	for _, m := range list {
		d := &dto.SysBoxDTO{}
		_ = copier.Copy(d, m)
		d.ID = m.ID.Hex()
		d.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
		if !m.UpdatedAt.IsZero() {
			d.UpdatedAt = m.UpdatedAt.UTC().Format(time.RFC3339)
		}
		if m.Type == mongo.SysBoxTypeReaction {
			d.Reaction = reactionNotice(m)
			d.Payload = nil
		}

		// SenderID 为 0 代表系统发送
		if m.SenderID > 0 {
			if u, ok := senderByID[m.SenderID]; ok {
				d.SenderName = u.UserDetail.Nickname
				d.AvatarURL = avatarOrDefault(u.UserDetail.AvatarURL)
			}
		} else {
			d.SenderName = "系统通知"
		}

		res = append(res, d)
	}

	return &dto.SysBoxListDTO{
		Items:       res,
		Page:        page,
		PageSize:    pageSize,
		HasMore:     hasMore,
		UnreadCount: unread,
	}, nil
}

func reactionNotice(m *mongo.SysBoxModel) *dto.ReactionNoticeDTO {
	kind, _ := m.Payload["reaction"].(string)
	return &dto.ReactionNoticeDTO{
		PostID: m.TargetID,
		Kind:   kind,
		Count:  payloadInt(m.Payload["count"]),
	}
}

// GetUnreadCount 获取未读数
func (s *sysBoxServiceImpl) GetUnreadCount(ctx context.Context, userID uint64) (*dto.SysBoxUnreadDTO, error) {
	count, err := s.sysBoxRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SysBoxUnreadDTO{UnreadCount: count}, nil
}

// MarkRead 标记单条已读
func (s *sysBoxServiceImpl) MarkRead(ctx context.Context, userID uint64, msgID string) error {
	objectID, err := primitive.ObjectIDFromHex(msgID)
	if err != nil {
		return ErrParamInvalid
	}

	notice, err := s.sysBoxRepo.GetByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return ErrSysBoxNotFound
		}
		return err
	}

	if notice.ReceiverID != userID {
		return UnauthorizedError
	}

	if notice.IsRead {
		return nil
	}

	return s.sysBoxRepo.MarkAsRead(ctx, userID, msgID)
}

// MarkAllRead 一键已读
func (s *sysBoxServiceImpl) MarkAllRead(ctx context.Context, userID uint64) error {
	return s.sysBoxRepo.MarkAllAsRead(ctx, userID)
}

// payloadInt 从 Mongo 读回的数字可能是 int32/int64/float64
func payloadInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
