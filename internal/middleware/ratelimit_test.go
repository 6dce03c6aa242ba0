package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manicinc/synthstack-gateway/internal/ratelimit"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedRouter(t *testing.T, cfg ratelimit.Config, class tier.LimitClass, setTier tier.Tier) *gin.Engine {
	t.Helper()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)
	limiter := ratelimit.NewTieredLimiter(store, cfg)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if setTier != "" {
			c.Set("tier", setTier)
			c.Set("user_id", "11111111-1111-1111-1111-111111111111")
		}
		c.Next()
	})
	r.Use(RateLimitClass(limiter, class))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return r
}

func doGet(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitClass_Headers(t *testing.T) {
	r := newLimitedRouter(t, ratelimit.Config{Window: time.Minute}, tier.ClassGeneration, tier.Free)

	w := doGet(r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	if got := w.Header().Get("X-RateLimit-Policy"); got != "10;w=60" {
		t.Errorf("X-RateLimit-Policy = %q, want 10;w=60", got)
	}
	if reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64); err != nil || reset <= time.Now().Unix() {
		t.Errorf("X-RateLimit-Reset = %q, want a future unix timestamp", w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimitClass_Exceeded(t *testing.T) {
	r := newLimitedRouter(t, ratelimit.Config{Window: time.Minute}, tier.ClassGeneration, tier.Free)

	for i := 0; i < 10; i++ {
		if w := doGet(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}

	w := doGet(r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code       string `json:"code"`
			Message    string `json:"message"`
			RetryAfter int    `json:"retryAfter"`
			Limit      int    `json:"limit"`
			Type       string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid 429 body: %v", err)
	}
	if body.Success {
		t.Error("success = true in a 429 body")
	}
	if body.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error.code = %q", body.Error.Code)
	}
	if body.Error.Limit != 10 || body.Error.Type != "generation" {
		t.Errorf("error = %+v", body.Error)
	}
	if body.Error.RetryAfter < 0 || body.Error.RetryAfter > 60 {
		t.Errorf("retryAfter = %d, want within the window", body.Error.RetryAfter)
	}
}

func TestRateLimitClass_UnauthenticatedFallsBackToIP(t *testing.T) {
	// No tier in context: limits as free, keyed by client IP.
	r := newLimitedRouter(t, ratelimit.Config{Window: time.Minute}, tier.ClassGeneration, "")

	for i := 0; i < 10; i++ {
		if w := doGet(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	if w := doGet(r); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestRateLimitClass_AllowList(t *testing.T) {
	cfg := ratelimit.Config{
		Window:    time.Minute,
		AllowList: []string{"user:11111111-1111-1111-1111-111111111111"},
	}
	r := newLimitedRouter(t, cfg, tier.ClassGeneration, tier.Free)

	// Far past the free generation limit; the allow list never throttles.
	for i := 0; i < 30; i++ {
		if w := doGet(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
}

func TestTierFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if got := TierFromContext(c); got != tier.Free {
		t.Errorf("empty context tier = %v, want free", got)
	}

	c.Set("tier", tier.Agency)
	if got := TierFromContext(c); got != tier.Agency {
		t.Errorf("typed tier = %v, want agency", got)
	}

	c.Set("tier", "pro")
	if got := TierFromContext(c); got != tier.Pro {
		t.Errorf("string tier = %v, want pro", got)
	}

	c.Set("tier", "garbage")
	if got := TierFromContext(c); got != tier.Unknown {
		t.Errorf("bad string tier = %v, want unknown", got)
	}
}

func TestIdentifierFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if got := IdentifierFromContext(c); got == "" || got[:3] != "ip:" {
		t.Errorf("anonymous identifier = %q, want ip: prefix", got)
	}

	c.Set("api_key_id", "key-123")
	if got := IdentifierFromContext(c); got != "key:key-123" {
		t.Errorf("identifier = %q, want key:key-123", got)
	}

	// user takes precedence over key
	c.Set("user_id", "user-456")
	if got := IdentifierFromContext(c); got != "user:user-456" {
		t.Errorf("identifier = %q, want user:user-456", got)
	}
}
