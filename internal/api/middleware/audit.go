package middleware

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const maxAuditBodySize = 16384

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseBodyWriter) Write(b []byte) (int, error) {
	if r.body.Len() < maxAuditBodySize {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseBodyWriter) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// AuditMiddleware 记录请求与响应，只有写操作记录报文，WebSocket 升级请求不做包装
// 鉴权在其后执行，响应日志读取的是更新后的请求 ctx，因此会带上 user_id
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isWebSocketUpgrade(c.Request) {
			c.Next()
			return
		}

		mutating := c.Request.Method != http.MethodGet && c.Request.Method != http.MethodOptions
		var reqBody []byte
		if mutating && c.Request.Body != nil {
			reqBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBodySize))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), c.Request.Body))
		}

		query, err := url.QueryUnescape(c.Request.URL.RawQuery)
		if err != nil {
			query = c.Request.URL.RawQuery
		}

		log.InfoContext(c.Request.Context(), "Recv Request",
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.String("query", query),
			log.String("req_body", string(reqBody)),
		)

		var w *responseBodyWriter
		if mutating {
			w = &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
			c.Writer = w
		}
		start := time.Now()

		c.Next()

		fields := []any{
			log.Int("status", c.Writer.Status()),
			log.Duration("latency", time.Since(start)),
		}
		if w != nil {
			fields = append(fields, log.String("res_body", w.body.String()))
		}
		log.InfoContext(c.Request.Context(), "Send Response", fields...)
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
