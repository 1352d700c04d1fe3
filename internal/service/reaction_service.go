package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/api/dto"
	"Insightful/internal/model"
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

// ReactionService 反应的添加、撤销与查询
type ReactionService interface {
	Create(ctx context.Context, actorID, postID uint64) (*dto.ReactionToggleDTO, error)
	Destroy(ctx context.Context, actorID, postID uint64) (*dto.ReactionToggleDTO, error)
	GetState(ctx context.Context, viewerID, postID uint64) (*dto.ReactionStateDTO, error)
	ListActors(ctx context.Context, viewerID, postID uint64) (*dto.ReactionActorsDTO, error)
	GetCounts(ctx context.Context, viewerID uint64, postIDs []uint64) (*dto.ReactionCountsDTO, error)
}

type reactionServiceImpl struct {
	cfg          config.ReactionConfig
	kind         model.ReactionKind
	tx           repository.TxManager
	reactionRepo repository.ReactionRepo
	postRepo     repository.PostRepo
	userRepo     repository.UserRepo
	statRepo     repository.UserReactionStatRepo
	quota        QuotaTracker
	invalidator  CacheInvalidator
	publisher    event.Publisher
	now          func() time.Time
}

func NewReactionService(
	cfg config.ReactionConfig,
	kind model.ReactionKind,
	tx repository.TxManager,
	reactionRepo repository.ReactionRepo,
	postRepo repository.PostRepo,
	userRepo repository.UserRepo,
	statRepo repository.UserReactionStatRepo,
	quota QuotaTracker,
	invalidator CacheInvalidator,
	publisher event.Publisher,
) ReactionService {
	return &reactionServiceImpl{
		cfg:          cfg,
		kind:         kind,
		tx:           tx,
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		statRepo:     statRepo,
		quota:        quota,
		invalidator:  invalidator,
		publisher:    publisher,
		now:          time.Now,
	}
}

func (s *reactionServiceImpl) Create(ctx context.Context, actorID, postID uint64) (*dto.ReactionToggleDTO, error) {
	if postID == 0 {
		return nil, ErrParamInvalid
	}
	if !s.cfg.Enabled {
		return nil, ErrReactionDisabled
	}

	var (
		post     *model.Post
		actor    *model.User
		reaction *model.PostReaction
		count    int64
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if post, err = s.postRepo.GetPost(ctx, postID); err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}
		if actor, err = s.loadActor(ctx, actorID); err != nil {
			return err
		}
		if !actorPresent(actor) {
			return ErrReactionPolicyDenied
		}

		existing, err := s.reactionRepo.GetActiveReaction(ctx, postID, actorID, s.kind)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrReactionAlreadyActioned
		}
		if !CanCreate(s.cfg, actor, post, existing) {
			return ErrReactionPolicyDenied
		}

		within, err := s.quota.WithinLimit(ctx, actorID, s.cfg.MaxPerDay)
		if err != nil {
			return err
		}
		if !within {
			return ErrReactionRateLimited
		}

		active := true
		reaction = &model.PostReaction{
			PostID:    postID,
			UserID:    actorID,
			OwnerID:   post.UserID,
			Kind:      s.kind,
			Active:    &active,
			CreatedAt: s.now(),
		}
		if err = s.reactionRepo.CreateReaction(ctx, reaction); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrReactionAlreadyActioned
			}
			return err
		}

		// 插入后再占用配额，同一用户并发添加不同帖子时计数也不会超过上限
		reserved, err := s.quota.Reserve(ctx, actorID, s.cfg.MaxPerDay)
		if err != nil {
			return err
		}
		if !reserved {
			return ErrReactionRateLimited
		}

		if err = s.statRepo.IncrementStat(ctx, actorID, repository.StatGiven); err != nil {
			return err
		}
		if err = s.statRepo.IncrementStat(ctx, post.UserID, repository.StatReceived); err != nil {
			return err
		}

		count, err = s.recount(ctx, postID)
		return err
	})
	if err != nil {
		return nil, s.wrapTxError(ctx, "create reaction", err)
	}

	s.afterChange(ctx, event.KindCreated, actor, post, count)

	return &dto.ReactionToggleDTO{
		Success:            true,
		Count:              count,
		Active:             true,
		ActedByCurrentUser: true,
		CanToggle:          CanDestroy(actor, reaction),
		CanUndo:            true,
	}, nil
}

func (s *reactionServiceImpl) Destroy(ctx context.Context, actorID, postID uint64) (*dto.ReactionToggleDTO, error) {
	if postID == 0 {
		return nil, ErrParamInvalid
	}
	if !s.cfg.Enabled {
		return nil, ErrReactionDisabled
	}

	var (
		post  *model.Post
		actor *model.User
		count int64
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if post, err = s.postRepo.GetPost(ctx, postID); err != nil {
			return err
		}
		if post == nil {
			return ErrPostNotFound
		}

		reaction, err := s.reactionRepo.GetActiveReaction(ctx, postID, actorID, s.kind)
		if err != nil {
			return err
		}
		if reaction == nil {
			return ErrReactionNotFound
		}
		if actor, err = s.loadActor(ctx, actorID); err != nil {
			return err
		}
		if !CanDestroy(actor, reaction) {
			return ErrReactionPolicyDenied
		}

		affected, err := s.reactionRepo.SoftDeleteReaction(ctx, reaction.ID, s.now())
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrReactionNotFound
		}

		if err = s.quota.Decrement(ctx, actorID); err != nil {
			return err
		}
		if err = s.statRepo.DecrementStat(ctx, actorID, repository.StatGiven); err != nil {
			return err
		}
		if err = s.statRepo.DecrementStat(ctx, reaction.OwnerID, repository.StatReceived); err != nil {
			return err
		}

		count, err = s.recount(ctx, postID)
		return err
	})
	if err != nil {
		return nil, s.wrapTxError(ctx, "destroy reaction", err)
	}

	s.afterChange(ctx, event.KindDestroyed, actor, post, count)

	return &dto.ReactionToggleDTO{
		Success:   true,
		Count:     count,
		Active:    false,
		CanToggle: CanCreate(s.cfg, actor, post, nil),
	}, nil
}

func (s *reactionServiceImpl) GetState(ctx context.Context, viewerID, postID uint64) (*dto.ReactionStateDTO, error) {
	if postID == 0 {
		return nil, ErrParamInvalid
	}
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanReadPost(viewerID, post) {
		return nil, ErrPostNotFound
	}

	state := &dto.ReactionStateDTO{
		PostID:        postID,
		ReactionCount: int64(post.ReactionCount),
		ShowReactions: s.cfg.Enabled,
	}
	if !s.cfg.Enabled || viewerID == 0 {
		return state, nil
	}

	var (
		viewer   *model.User
		existing *model.PostReaction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		viewer, err = s.userRepo.GetUserById(gCtx, viewerID)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = s.reactionRepo.GetActiveReaction(gCtx, postID, viewerID, s.kind)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	state.ActedByCurrentUser = existing != nil
	state.CanToggle = CanToggle(s.cfg, viewer, post, existing)
	state.CanUndo = existing != nil && CanDestroy(viewer, existing)
	return state, nil
}

func (s *reactionServiceImpl) ListActors(ctx context.Context, viewerID, postID uint64) (*dto.ReactionActorsDTO, error) {
	if postID == 0 {
		return nil, ErrParamInvalid
	}
	if !s.cfg.Enabled {
		return nil, ErrReactionDisabled
	}
	if !s.cfg.ShowWhoActioned {
		return nil, ErrReactionPolicyDenied
	}

	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanReadPost(viewerID, post) {
		return nil, ErrPostNotFound
	}

	userIDs, err := s.reactionRepo.GetActiveUserIDs(ctx, postID, s.kind, s.cfg.WhoListLimit)
	if err != nil {
		return nil, err
	}
	total, err := s.reactionRepo.CountActiveByPostID(ctx, postID, s.kind)
	if err != nil {
		return nil, err
	}

	actors, err := s.loadActorDTOs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	return &dto.ReactionActorsDTO{Users: actors, TotalCount: total}, nil
}

// GetCounts 优先读缓存，未命中的回源数据库，只有公开帖子的计数会回填
func (s *reactionServiceImpl) GetCounts(ctx context.Context, viewerID uint64, postIDs []uint64) (*dto.ReactionCountsDTO, error) {
	if !s.cfg.Enabled {
		return nil, ErrReactionDisabled
	}
	result := &dto.ReactionCountsDTO{
		Counts:       make(map[uint64]int64, len(postIDs)),
		ActedPostIDs: make([]uint64, 0),
	}
	ids := uniqueIDs(postIDs)
	if len(ids) == 0 {
		return result, nil
	}

	missing, gens := s.cachedCounts(ctx, ids, result.Counts)
	if len(missing) > 0 {
		posts, err := s.postRepo.GetPostByIds(ctx, missing)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(s.cfg.CountCacheTTL) * time.Second
		for _, p := range posts {
			if !CanReadPost(viewerID, p) {
				continue
			}
			result.Counts[p.ID] = int64(p.ReactionCount)
			if !publicPost(p) {
				continue
			}
			_, err = redis.SetIfGeneration(ctx, PostCountCacheKey(p.ID), PostCountGenKey(p.ID), gens[p.ID], p.ReactionCount, ttl)
			if err != nil {
				log.WarnContext(ctx, "set reaction count cache failed", "post_id", p.ID, "err", err)
			}
		}
	}

	if viewerID == 0 || len(result.Counts) == 0 {
		return result, nil
	}
	readable := make([]uint64, 0, len(result.Counts))
	for _, id := range ids {
		if _, ok := result.Counts[id]; ok {
			readable = append(readable, id)
		}
	}
	acted, err := s.reactionRepo.GetActedPostIDs(ctx, viewerID, readable, s.kind)
	if err != nil {
		return nil, err
	}
	result.ActedPostIDs = acted
	return result, nil
}

// cachedCounts 命中的计数写入 counts，返回未命中的帖子及其读取时的缓存版本号
func (s *reactionServiceImpl) cachedCounts(ctx context.Context, ids []uint64, counts map[uint64]int64) ([]uint64, map[uint64]string) {
	keys := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		keys = append(keys, PostCountCacheKey(id))
	}
	for _, id := range ids {
		keys = append(keys, PostCountGenKey(id))
	}

	gens := make(map[uint64]string, len(ids))
	values, err := redis.MGetValue(ctx, keys...)
	if err != nil {
		// 读不到版本号时不回填
		log.WarnContext(ctx, "get reaction counts from cache failed", "err", err)
		return ids, gens
	}

	missing := make([]uint64, 0)
	for i, id := range ids {
		n, convErr := strconv.ParseInt(values[i], 10, 64)
		if values[i] == "" || convErr != nil {
			missing = append(missing, id)
			gens[id] = generationOrZero(values[len(ids)+i])
			continue
		}
		counts[id] = n
	}
	return missing, gens
}

func (s *reactionServiceImpl) loadActor(ctx context.Context, actorID uint64) (*model.User, error) {
	if actorID == 0 {
		return nil, nil
	}
	return s.userRepo.GetUserById(ctx, actorID)
}

// recount 重新统计有效反应数并写回帖子
func (s *reactionServiceImpl) recount(ctx context.Context, postID uint64) (int64, error) {
	count, err := s.reactionRepo.CountActiveByPostID(ctx, postID, s.kind)
	if err != nil {
		return 0, err
	}
	if err = s.postRepo.UpdateReactionCount(ctx, postID, count); err != nil {
		return 0, err
	}
	return count, nil
}

// afterChange 事务提交后清理缓存并发布事件，失败不影响结果
func (s *reactionServiceImpl) afterChange(ctx context.Context, kind event.Kind, actor *model.User, post *model.Post, count int64) {
	if actor.IsStaff {
		log.InfoContext(ctx, "staff reaction change",
			"actor_id", actor.ID, "post_id", post.ID, "kind", kind, "reaction", s.kind.String())
	}

	if err := s.invalidator.Invalidate(ctx, post.ID, actor.ID, post.UserID); err != nil {
		log.ErrorContext(ctx, "invalidate reaction caches failed", "post_id", post.ID, "err", err)
	}

	s.publisher.Publish(ctx, event.ReactionEvent{
		PostID:     post.ID,
		Count:      count,
		ActorID:    actor.ID,
		OwnerID:    post.UserID,
		Kind:       kind,
		Reaction:   s.kind.String(),
		OccurredAt: s.now(),
	})
}

func (s *reactionServiceImpl) loadActorDTOs(ctx context.Context, userIDs []uint64) ([]*dto.ReactionActorDTO, error) {
	result := make([]*dto.ReactionActorDTO, 0, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	users, err := s.userRepo.GetUserByIds(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range userIDs {
		u, ok := byID[id]
		if !ok {
			continue
		}
		actor, err := toActorDTO(u)
		if err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	return result, nil
}

func toActorDTO(u *model.User) (*dto.ReactionActorDTO, error) {
	actor := &dto.ReactionActorDTO{}
	if err := copier.Copy(actor, u); err != nil {
		return nil, err
	}
	if u.Username != nil {
		actor.Username = *u.Username
	}
	actor.Nickname = u.UserDetail.Nickname
	actor.AvatarURL = avatarOrDefault(u.UserDetail.AvatarURL)
	return actor, nil
}

func (s *reactionServiceImpl) wrapTxError(ctx context.Context, op string, err error) error {
	if _, ok := ErrorMap[err]; ok {
		return err
	}
	if errors.Is(err, errQuotaConflict) {
		log.ErrorContext(ctx, op+" failed: quota conflict retries exhausted")
		return UnExpectedError
	}
	return fmt.Errorf("%s: %w", op, err)
}

func avatarOrDefault(url string) string {
	if url == "" {
		return consts.DefaultAvatarURL
	}
	return url
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	result := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
