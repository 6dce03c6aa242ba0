package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/manicinc/synthstack-gateway/internal/service"
	"github.com/manicinc/synthstack-gateway/internal/tier"
)

func APIKeyValidator(apiKeyService *service.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKeyHeader := c.GetHeader("X-API-Key")

		if apiKeyHeader == "" {
			c.Next()
			return
		}

		// Trimming whitespace
		apiKeyHeader = strings.TrimSpace(apiKeyHeader)

		// Validate API key
		ctx := c.Request.Context()
		apiKey, err := apiKeyService.Validate(ctx, apiKeyHeader)

		if err != nil || apiKey == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_API_KEY",
					"message": "Invalid API key",
				},
			})
			c.Abort()
			return
		}

		c.Set("api_key_id", apiKey.ID.String())
		c.Set("user_id", apiKey.UserID.String())
		c.Set("tier", tier.Parse(apiKey.Tier))
		c.Set("byok", apiKey.BYOK)

		go apiKeyService.UpdateLastUsed(ctx, apiKey.ID)

		c.Next()
	}
}
