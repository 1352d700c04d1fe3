package service

import (
	"Insightful/internal/api/config"
	"Insightful/internal/api/dto"
	"Insightful/internal/model"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// SummaryService 用户给出/收到反应的汇总视图，读穿缓存
type SummaryService interface {
	GetUserSummary(ctx context.Context, userID, viewerID uint64, locale string) (*dto.UserReactionSummaryDTO, error)
}

type summaryServiceImpl struct {
	cfg          config.ReactionConfig
	kind         model.ReactionKind
	reactionRepo repository.ReactionRepo
	statRepo     repository.UserReactionStatRepo
	userRepo     repository.UserRepo
}

func NewSummaryService(
	cfg config.ReactionConfig,
	kind model.ReactionKind,
	reactionRepo repository.ReactionRepo,
	statRepo repository.UserReactionStatRepo,
	userRepo repository.UserRepo,
) SummaryService {
	return &summaryServiceImpl{
		cfg:          cfg,
		kind:         kind,
		reactionRepo: reactionRepo,
		statRepo:     statRepo,
		userRepo:     userRepo,
	}
}

func (s *summaryServiceImpl) GetUserSummary(ctx context.Context, userID, viewerID uint64, locale string) (*dto.UserReactionSummaryDTO, error) {
	if userID == 0 {
		return nil, ErrParamInvalid
	}
	if !s.cfg.Enabled {
		return nil, ErrReactionDisabled
	}
	locale = s.resolveLocale(locale)
	key := SummaryCacheKey(userID, viewerID, locale)

	// 同时读取版本号，回填时若已变化说明期间发生过失效
	gen := ""
	values, err := redis.MGetValue(ctx, key, SummaryGenKey(userID))
	if err != nil {
		log.WarnContext(ctx, "get reaction summary cache failed", "key", key, "err", err)
	} else {
		gen = generationOrZero(values[1])
		if values[0] != "" {
			summary := &dto.UserReactionSummaryDTO{}
			if err = json.Unmarshal([]byte(values[0]), summary); err == nil {
				return summary, nil
			}
			log.WarnContext(ctx, "decode reaction summary cache failed", "key", key, "err", err)
		}
	}

	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDelete {
		return nil, ErrUserNotFound
	}

	summary, err := s.build(ctx, userID, locale)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(summary)
	if err == nil && gen != "" {
		ttl := time.Duration(s.cfg.SummaryCacheTTL) * time.Minute
		if _, err = redis.SetIfGeneration(ctx, key, SummaryGenKey(userID), gen, raw, ttl); err != nil {
			log.WarnContext(ctx, "set reaction summary cache failed", "key", key, "err", err)
		}
	}
	return summary, nil
}

func (s *summaryServiceImpl) build(ctx context.Context, userID uint64, locale string) (*dto.UserReactionSummaryDTO, error) {
	var (
		stat      *model.UserReactionStat
		givers    []repository.Counterpart
		receivers []repository.Counterpart
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stat, err = s.statRepo.GetStat(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		givers, err = s.reactionRepo.GetTopGivers(gCtx, userID, s.kind, s.cfg.MaxSummaryResults)
		return err
	})
	g.Go(func() error {
		var err error
		receivers, err = s.reactionRepo.GetTopReceivers(gCtx, userID, s.kind, s.cfg.MaxSummaryResults)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	from, err := s.counterparts(ctx, givers)
	if err != nil {
		return nil, err
	}
	to, err := s.counterparts(ctx, receivers)
	if err != nil {
		return nil, err
	}

	return &dto.UserReactionSummaryDTO{
		UserID:           userID,
		Locale:           locale,
		GivenCount:       stat.ReactionsGiven,
		ReceivedCount:    stat.ReactionsReceived,
		MostReceivedFrom: from,
		MostGivenTo:      to,
	}, nil
}

func (s *summaryServiceImpl) counterparts(ctx context.Context, list []repository.Counterpart) ([]*dto.CounterpartDTO, error) {
	result := make([]*dto.CounterpartDTO, 0, len(list))
	if len(list) == 0 {
		return result, nil
	}
	ids := make([]uint64, len(list))
	for i, c := range list {
		ids[i] = c.UserID
	}
	users, err := s.userRepo.GetUserByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, c := range list {
		u, ok := byID[c.UserID]
		if !ok || u.IsDelete {
			continue
		}
		actor, err := toActorDTO(u)
		if err != nil {
			return nil, err
		}
		result = append(result, &dto.CounterpartDTO{ReactionActorDTO: *actor, Count: c.Total})
	}
	return result, nil
}

// resolveLocale 不支持的语言回退到默认语言
func (s *summaryServiceImpl) resolveLocale(locale string) string {
	for _, l := range localeVariants(s.cfg) {
		if l == locale {
			return locale
		}
	}
	return s.cfg.DefaultLocale
}
