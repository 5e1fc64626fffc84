package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accessdesk/internal/cache"
	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret1"

// testServer is a Server over an in-memory database and a miniredis cache.
type testServer struct {
	*Server
	app *fiber.App
	mr  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                        "test",
		Port:                       "0",
		JWTSecret:                  "test-secret-that-is-long-enough-1234",
		JWTTTLHours:                1,
		JWTIssuer:                  "accessdesk",
		JWTAudience:                "accessdesk-api",
		DBDriver:                   "sqlite",
		RateLimitLoginPerMinute:    100,
		RateLimitRequestsPerMinute: 100,
		AllowedOrigins:             "http://localhost:5173",
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	s, err := NewServer(testConfig(), db, rdb)
	require.NoError(t, err)
	return &testServer{Server: s, app: s.App(), mr: mr}
}

// seedUser inserts a user directly with a cheap hash.
func (ts *testServer) seedUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Password: string(hash), Role: role}
	require.NoError(t, ts.userRepo.Create(context.Background(), u))
	return u
}

func (ts *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := ts.generateToken(u)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) seedSoftware(t *testing.T, name string, levels ...models.AccessLevel) *models.Software {
	t.Helper()
	if len(levels) == 0 {
		levels = []models.AccessLevel{models.AccessLevelRead, models.AccessLevelWrite}
	}
	sw := &models.Software{Name: name, Description: name, AccessLevels: levels}
	require.NoError(t, ts.softwareRepo.Create(context.Background(), sw))
	return sw
}

// do sends a request and returns the response with its body read.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}
