package logger

import (
	"Insightful/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"
)

var LogWriter io.Writer = os.Stdout

// InitLogger 输出到 stdout，配置了 Logstash 时同时上报
func InitLogger(cfg config.LogstashConfig) {
	log.SetDefault(log.New(newHandler(os.Stdout, cfg)))
}

func newHandler(stdout io.Writer, cfg config.LogstashConfig) log.Handler {
	hStdout := log.NewJSONHandler(stdout, &log.HandlerOptions{Level: log.LevelInfo})
	if cfg.Address == "" {
		return &ContextHandler{hStdout}
	}

	conn, err := net.DialTimeout("tcp", cfg.Address, 3*time.Second)
	if err != nil {
		log.Warn("Failed to connect to Logstash, logging to stdout only", "err", err)
		return &ContextHandler{hStdout}
	}

	hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: log.LevelInfo}).
		WithAttrs([]log.Attr{
			log.String("target_index", cfg.Index),
			log.String("log_token", cfg.Token),
		})
	LogWriter = conn

	return &ContextHandler{&fanoutHandler{
		handlers: []log.Handler{hStdout, &remoteFilterHandler{next: hRemote}},
	}}
}
