package cron

import (
	"Insightful/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

const (
	dailyPurgeSpec = "0 10 0 * * *"
	cacheRetrySpec = "@every 1m"
)

type Manager struct {
	engine        *cron.Cron
	dailyPurgeJob *job.ReactionDailyPurgeJob
	cacheRetryJob *job.CacheRetryJob
}

func NewCronManager(dailyPurgeJob *job.ReactionDailyPurgeJob, cacheRetryJob *job.CacheRetryJob) *Manager {
	return &Manager{
		engine:        cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		dailyPurgeJob: dailyPurgeJob,
		cacheRetryJob: cacheRetryJob,
	}
}

// Start 注册任务并启动引擎，配额清理在每天 00:10 执行，避开跨日时刻
func (s *Manager) Start() error {
	jobs := []struct {
		spec string
		name string
		job  cron.Job
	}{
		{dailyPurgeSpec, "reaction_daily_purge", s.dailyPurgeJob},
		{cacheRetrySpec, "cache_retry", s.cacheRetryJob},
	}
	for _, j := range jobs {
		if _, err := s.engine.AddJob(j.spec, j.job); err != nil {
			return err
		}
		log.Info("Cron job registered", "job", j.name, "spec", j.spec)
	}
	s.engine.Start()
	log.Info("Cron 定时任务引擎启动")
	return nil
}

func (s *Manager) Stop() {
	<-s.engine.Stop().Done()
	log.Info("Cron 定时任务引擎停止")
}
