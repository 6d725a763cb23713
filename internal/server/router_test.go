package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mercyogalo/bookStore/internal/config"
	"github.com/mercyogalo/bookStore/internal/db"
	"github.com/mercyogalo/bookStore/internal/ws"
)

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{Port: "0", JWTSecret: "secret", Env: "dev", AccessTokenTTLMinutes: 15, RefreshTokenTTLDays: 7, ReviewMaxLen: 500}
	gdb, err := db.Connect("host=localhost user=postgres password=postgres dbname=bookstore port=5432 sslmode=disable TimeZone=UTC")
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	return SetupRouter(cfg, gdb, ws.NewRegistry())
}

func TestHealthz(t *testing.T) {
	engine := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListReviews_NoAuthRequired(t *testing.T) {
	engine := testEngine(t)

	// The snapshot endpoint serves first paint without any token or
	// event-stream connection.
	req := httptest.NewRequest(http.MethodGet, "/api/reviews/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reviews []json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &reviews); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(reviews) != 0 {
		t.Fatalf("expected empty review list for unknown book, got %d entries", len(reviews))
	}
}

func TestCreateReview_RequiresAuth(t *testing.T) {
	engine := testEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reviews/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
