package middlewares

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/utils"
	"github.com/gin-gonic/gin"
)

// Session is the payload the auth service stores in redis per token. The
// engine trusts it as the caller's tenant scope.
type Session struct {
	BusinessId string `json:"business_id"`
	UserId     int    `json:"user_id"`
	UserName   string `json:"user_name"`
	IsAdmin    bool   `json:"is_admin"`
}

// SessionMiddleware resolves the token header to a session and stamps the
// request context with the caller's scope. Requests without a token pass
// through; business-scoped handlers reject them later for the missing
// business id.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		val, exists, err := config.GetRedisValue("Session:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		var session Session
		if err := json.Unmarshal([]byte(val), &session); err != nil || session.BusinessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetBusinessIdInContext(ctx, session.BusinessId)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		ctx = utils.SetUserNameInContext(ctx, session.UserName)
		ctx = utils.SetIsAdminInContext(ctx, session.IsAdmin)
		if v := c.Request.Header.Get("x-legal-entity-id"); v != "" {
			if legalEntityId, err := strconv.Atoi(v); err == nil && legalEntityId > 0 {
				ctx = utils.SetLegalEntityIdInContext(ctx, legalEntityId)
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
