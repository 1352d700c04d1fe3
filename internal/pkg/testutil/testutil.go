// Package testutil 测试用的数据库、Redis 与 HTTP 辅助函数
package testutil

import (
	"Insightful/internal/model"
	"Insightful/internal/pkg/database"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB 内存 SQLite，单连接以串行化并发事务
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(database.Models...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewRedis 启动 miniredis 并返回客户端
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redisv9.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// SeedUser 创建用户及其详情
func SeedUser(t *testing.T, db *gorm.DB, id uint64, trustLevel int) *model.User {
	t.Helper()
	name := "user" + strconv.FormatUint(id, 10)
	user := &model.User{
		ID:         id,
		Username:   &name,
		TrustLevel: trustLevel,
		UserDetail: model.UserDetail{UserID: id, Nickname: name},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
	return user
}

// SeedPost 创建已发布的帖子
func SeedPost(t *testing.T, db *gorm.DB, id, authorID uint64) *model.Post {
	t.Helper()
	post := &model.Post{
		ID:      id,
		UserID:  authorID,
		Title:   "post " + strconv.FormatUint(id, 10),
		Content: "content",
		Status:  model.PostStatusPublished,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("seed post %d: %v", id, err)
	}
	return post
}

func NewTestRequestWithJSON(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func NewTestRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal response %q: %v", string(body), err)
	}
	return out
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}
