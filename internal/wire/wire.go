package wire

import (
	"Insightful/internal/api"
	"Insightful/internal/api/config"
	"Insightful/internal/api/handler"
	"Insightful/internal/job"
	"Insightful/internal/model"
	"Insightful/internal/pkg/cron"
	"Insightful/internal/pkg/event"
	"Insightful/internal/pkg/kafka"
	"Insightful/internal/pkg/mongo"
	"Insightful/internal/repository"
	"Insightful/internal/service"
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// 每个事件 handler 的最大投递次数
const eventDeliveryAttempts = 3

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router        *gin.Engine
	DB            *gorm.DB
	KafkaManager  *kafka.ConsumerManager
	EventProducer *kafka.ReactionEventProducer
	CronMgr       *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoConn *mongoDB.Database, cfg *config.Config) (*ApplicationContainer, error) {
	// 反应类型只在启动时解析一次
	kind, err := model.ParseReactionKind(cfg.Reaction.Kind)
	if err != nil {
		return nil, err
	}

	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepo(db)
	postRepo := repository.NewPostRepository(db)
	reactionRepo := repository.NewReactionRepo(db)
	dailyRepo := repository.NewReactionDailyRepo(db)
	statRepo := repository.NewUserReactionStatRepo(db)

	sysBoxRepo := mongo.NewSysBoxRepo(mongoConn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = sysBoxRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure sys_box indexes: %w", err)
	}

	producer, err := kafka.NewReactionEventProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	notifier := event.NewNotifier(eventDeliveryAttempts,
		event.NewRedisBroadcaster(),
		producer,
	)

	quotaTracker := service.NewQuotaTracker(dailyRepo, cfg.Reaction)
	invalidator := service.NewCacheInvalidator(cfg.Reaction)
	reactionService := service.NewReactionService(
		cfg.Reaction, kind, txManager,
		reactionRepo, postRepo, userRepo, statRepo,
		quotaTracker, invalidator, notifier,
	)
	summaryService := service.NewSummaryService(cfg.Reaction, kind, reactionRepo, statRepo, userRepo)
	sysBoxService := service.NewSysBoxService(sysBoxRepo, userRepo)

	handlers := &api.HandlersGroup{
		ReactionHandler: handler.NewReactionHandler(reactionService, summaryService, quotaTracker),
		SysBoxHandler:   handler.NewSysBoxHandler(sysBoxService),
		WSHandler:       handler.NewWsHandler(),
	}

	router := api.SetupRouter(handlers, cfg)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, sysBoxService)
	if err != nil {
		_ = producer.Close()
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewReactionDailyPurgeJob(quotaTracker, cfg.Reaction.DailyRetentionDays),
		job.NewCacheRetryJob(invalidator),
	)

	return &ApplicationContainer{
		Router:        router,
		DB:            db,
		KafkaManager:  kafkaMgr,
		EventProducer: producer,
		CronMgr:       cronMgr,
	}, nil
}
