package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellspringhq/foundation/internal/actorcontext"
	obscontext "github.com/wellspringhq/foundation/internal/observability/context"
)

const contextUserIDKey = "user_id"

// AuthRequired authenticates the session cookie and stores the acting user
// in the request context for the services downstream.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := s.authsvc.GetUser(c.Request.Context(), sess.UserID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.Actor{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		})
		ctx = obscontext.WithActor(ctx, "user", user.ID.String())
		ctx = obscontext.WithClientInfo(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextUserIDKey, user.ID.String())
		c.Next()
	}
}

// authorize gates a route on the RBAC policy for (object, action).
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetString(contextUserIDKey))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), "user:"+userID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}
