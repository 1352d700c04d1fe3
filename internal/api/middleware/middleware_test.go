package middleware

import (
	"Insightful/internal/pkg/consts"
	"Insightful/internal/pkg/logger"
	"Insightful/internal/pkg/redis"
	"Insightful/internal/pkg/security"
	"Insightful/internal/pkg/testutil"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newEngine(t *testing.T, mws ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, client := testutil.NewRedis(t)
	orig := redis.Rdb
	redis.Rdb = client
	t.Cleanup(func() { redis.Rdb = orig })

	r := gin.New()
	r.Use(mws...)
	return r
}

type seen struct {
	userID  uint64
	ctxUser any
	traceID any
}

func probe(s *seen) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.userID = c.GetUint64(logger.UserIDKey)
		s.ctxUser = c.Request.Context().Value(logger.UserIDKey)
		s.traceID = c.Request.Context().Value(logger.TraceIDKey)
		c.Status(http.StatusOK)
	}
}

func tokenFor(t *testing.T, userID uint64, roles ...string) string {
	t.Helper()
	token, err := security.GenerateToken(userID, roles)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func serve(r *gin.Engine, method, token string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware(t *testing.T) {
	var s seen
	r := newEngine(t, AuthMiddleware())
	r.GET("/x", probe(&s))

	if rr := serve(r, http.MethodGet, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", rr.Code)
	}
	if rr := serve(r, http.MethodGet, "broken"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("malformed token: got %d", rr.Code)
	}

	token := tokenFor(t, 9)
	if rr := serve(r, http.MethodGet, token); rr.Code != http.StatusOK {
		t.Fatalf("valid token: got %d", rr.Code)
	}
	if s.userID != 9 || s.ctxUser != uint64(9) {
		t.Fatalf("identity not injected: %+v", s)
	}

	sig, _ := security.ExtractSignature(token)
	_ = redis.SetWithExpiration(context.Background(), consts.TokenBlacklistKey+sig, "1", time.Minute)
	if rr := serve(r, http.MethodGet, token); rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: got %d", rr.Code)
	}
}

func TestAuthOptionalMiddleware(t *testing.T) {
	var s seen
	r := newEngine(t, AuthOptionalMiddleware())
	r.GET("/x", probe(&s))

	serve(r, http.MethodGet, "invalid.token.value")
	if s.userID != 0 || s.ctxUser != nil {
		t.Fatalf("invalid token must be anonymous: %+v", s)
	}

	serve(r, http.MethodGet, tokenFor(t, 5))
	if s.userID != 5 || s.ctxUser != uint64(5) {
		t.Fatalf("valid token must inject identity: %+v", s)
	}
}

func TestCheckRoles(t *testing.T) {
	r := newEngine(t, AuthMiddleware(), CheckRoles(consts.RoleAdmin))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if rr := serve(r, http.MethodGet, tokenFor(t, 1, consts.RoleUser)); rr.Code != http.StatusForbidden {
		t.Fatalf("user role: got %d", rr.Code)
	}
	if rr := serve(r, http.MethodGet, tokenFor(t, 1, consts.RoleUser, consts.RoleAdmin)); rr.Code != http.StatusOK {
		t.Fatalf("admin role: got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine(t, CORSMiddleware([]string{"https://a.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := serve(r, http.MethodGet, "", "Origin", "https://a.example")
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://a.example" {
		t.Fatal("allowed origin not echoed")
	}
	rr = serve(r, http.MethodGet, "", "Origin", "https://b.example")
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("foreign origin must not be allowed")
	}
	if rr = serve(r, http.MethodOptions, "", "Origin", "https://a.example"); rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", rr.Code)
	}

	open := newEngine(t, CORSMiddleware(nil))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	if serve(open, http.MethodGet, "", "Origin", "https://any.example").Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("empty allow list must accept any origin")
	}
}

func TestTraceMiddleware(t *testing.T) {
	var s seen
	r := newEngine(t, TraceMiddleware())
	r.GET("/x", probe(&s))

	rr := serve(r, http.MethodGet, "", traceHeader, "upstream-1")
	if rr.Header().Get(traceHeader) != "upstream-1" || s.traceID != "upstream-1" {
		t.Fatalf("upstream trace id not kept: %q %v", rr.Header().Get(traceHeader), s.traceID)
	}

	rr = serve(r, http.MethodGet, "", traceHeader, strings.Repeat("x", maxTraceIDLen+1))
	if got := rr.Header().Get(traceHeader); len(got) != 36 || got != s.traceID {
		t.Fatalf("oversized trace id must be regenerated, got %q", got)
	}
}
