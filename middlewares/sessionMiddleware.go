package middlewares

import (
	"strconv"
	"strings"

	"bitbucket.org/broman/realty_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderUserId        = "X-User-Id"
	HeaderUserName      = "X-User-Name"
	HeaderCorrelationId = "X-Correlation-Id"
)

// SessionMiddleware copies the caller identity set by the upstream gateway into the
// request context and tags every request with a correlation id.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if raw := strings.TrimSpace(c.GetHeader(HeaderUserId)); raw != "" {
			if userId, err := strconv.Atoi(raw); err == nil && userId > 0 {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if name := strings.TrimSpace(c.GetHeader(HeaderUserName)); name != "" {
			ctx = utils.SetUserNameInContext(ctx, name)
		}

		correlationId := strings.TrimSpace(c.GetHeader(HeaderCorrelationId))
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header(HeaderCorrelationId, correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
