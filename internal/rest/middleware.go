package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/omnistore/ledger-service/internal/auth"
)

const actorHeader = "X-Actor-Id"

// ActorMiddleware copies the staff identity header into the request context so
// usecases can attribute movements and status events.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader(actorHeader); actor != "" {
			c.Request = c.Request.WithContext(auth.WithActorID(c.Request.Context(), actor))
		}
		c.Next()
	}
}
