package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/manicinc/synthstack-gateway/internal/middleware"
	"github.com/manicinc/synthstack-gateway/internal/pricing"
	"github.com/manicinc/synthstack-gateway/internal/repository"
	"github.com/manicinc/synthstack-gateway/internal/service"
)

type CreditsHandler struct {
	billing *service.BillingService
	ledger  *repository.LedgerRepository
}

func NewCreditsHandler(billing *service.BillingService, ledger *repository.LedgerRepository) *CreditsHandler {
	return &CreditsHandler{billing: billing, ledger: ledger}
}

// Handles GET /v1/credits/balance
func (h *CreditsHandler) GetBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	balance, err := h.billing.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
		"tier":    middleware.TierFromContext(c).String(),
	})
}

// Handles GET /v1/credits/estimate?operation=/v1/ml/completion&items=10&tokens=500&strategy=endpoint
// Returns the cost breakdown a request would incur, without charging.
func (h *CreditsHandler) GetEstimate(c *gin.Context) {
	operation := c.Query("operation")
	if operation == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operation query parameter is required"})
		return
	}

	hints := pricing.Hints{}
	if v, err := strconv.Atoi(c.DefaultQuery("items", "0")); err == nil {
		hints.Items = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("tokens", "0")); err == nil {
		hints.Tokens = v
	}

	t := middleware.TierFromContext(c)
	strategy := service.ParseStrategy(c.Query("strategy"))

	breakdown := h.billing.Estimate(strategy, operation, t, hints)

	c.JSON(http.StatusOK, breakdown)
}

// Handles GET /v1/credits/transactions
func (h *CreditsHandler) ListTransactions(c *gin.Context) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit := 50
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && o >= 0 {
		offset = o
	}

	txs, err := h.ledger.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"limit":        limit,
		"offset":       offset,
	})
}

// Handles POST /admin/credits/:user_id — admin top-up
func (h *CreditsHandler) AddCredits(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		Amount int    `json:"amount" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}
	if req.Reason == "" {
		req.Reason = "admin_topup"
	}

	if err := h.ledger.Credit(c.Request.Context(), userID, req.Amount, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credits added", "amount": req.Amount})
}
