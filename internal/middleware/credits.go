package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/service"
)

// maxHintBodyBytes caps how much of a request body is buffered to derive
// batch-size hints. Larger bodies just skip the hint.
const maxHintBodyBytes = 1 << 20

// batchFields are the JSON array fields whose length gives the per-item
// count for batch endpoints (embeddings input, ingest documents).
var batchFields = []string{"input", "items", "documents", "texts"}

// CreditMeter gates a metered route on the user's credit balance and, after
// the handler runs, charges the actual cost. The pre-flight uses the
// estimate; the post-handler re-prices with real duration and status and
// debits the ledger keyed by request id. Runs after auth and rate limiting.
func CreditMeter(billing *service.BillingService, strategy service.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetString("user_id"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH_REQUIRED",
					"message": "Metered endpoints require an authenticated user",
				},
			})
			c.Abort()
			return
		}

		// BYOK users run on their own provider keys; nothing to charge
		if c.GetBool("byok") {
			c.Next()
			return
		}

		t := TierFromContext(c)
		operationID := c.Request.URL.Path
		hints := requestHints(c)

		decision, err := billing.Check(c.Request.Context(), strategy, operationID, t, userID, hints)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CREDIT_CHECK_FAILED",
					"message": "Could not verify credit balance",
				},
			})
			c.Abort()
			return
		}

		if !decision.CanAfford {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"success": false,
				"error": gin.H{
					"code":      "INSUFFICIENT_CREDITS",
					"message":   decision.Breakdown,
					"required":  decision.Required,
					"remaining": decision.Remaining,
					"deficit":   decision.Deficit,
				},
			})
			c.Abort()
			return
		}

		start := time.Now()
		c.Next()

		// The response is already written; this only delays handler return.
		// Charging over estimating here is deliberate: failed operations
		// must cost zero, and duration is only known now.
		input := service.ChargeInput{
			RequestID:   c.GetString("request_id"),
			UserID:      userID,
			OperationID: operationID,
			Tier:        t,
			Strategy:    strategy,
			DurationMs:  time.Since(start).Milliseconds(),
			StatusCode:  c.Writer.Status(),
			Hints:       mergeResponseHints(c, hints),
		}

		breakdown, _, err := billing.Charge(c.Request.Context(), input)
		if err != nil {
			log.Printf("[%s] charge failed for %s: %v", input.RequestID, operationID, err)
			return
		}

		c.Set("credits_charged", breakdown.TotalCost)
	}
}

// requestHints derives payload-shape hints by peeking at small JSON bodies
// for known batch fields. The body is restored for the downstream handler.
func requestHints(c *gin.Context) pricing.Hints {
	var hints pricing.Hints

	if c.Request.Body == nil || c.Request.ContentLength <= 0 || c.Request.ContentLength > maxHintBodyBytes {
		return hints
	}
	if !strings.Contains(c.ContentType(), "application/json") {
		return hints
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxHintBodyBytes))
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return hints
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return hints
	}

	for _, field := range batchFields {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
			hints.Items = len(arr)
			break
		}
	}

	return hints
}

// mergeResponseHints folds execution telemetry reported by the backend via
// response headers into the request hints. X-Usage-Components counts
// premium sub-components, e.g. "ai_agent=2,integration=1".
func mergeResponseHints(c *gin.Context, hints pricing.Hints) pricing.Hints {
	header := c.Writer.Header()

	if v := header.Get("X-Usage-Tokens"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			hints.Tokens = n
		}
	}
	if v := header.Get("X-Usage-Nodes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			hints.Nodes = n
		}
	}
	if v := header.Get("X-Usage-Components"); v != "" {
		components := make(map[string]int)
		for _, pair := range strings.Split(v, ",") {
			kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
			if len(kv) != 2 || kv[0] == "" {
				continue
			}
			if n, err := strconv.Atoi(kv[1]); err == nil {
				components[kv[0]] = n
			}
		}
		if len(components) > 0 {
			hints.Components = components
		}
	}

	return hints
}
