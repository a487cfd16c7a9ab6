package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa/internal/model"
	"docqa/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

type Authenticator interface {
	Authenticate(token string) (*model.User, error)
}

func AuthJWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if authHeader == "" || !strings.HasPrefix(authHeader, prefix) {
			unauthorized(c, response.DetailNotAuthenticated)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		user, err := auth.Authenticate(token)
		if err != nil || user == nil {
			unauthorized(c, response.DetailInvalidCredentials)
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUsernameKey, user.Username)
		c.Next()
	}
}

func UserID(c *gin.Context) (string, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := raw.(string)
	return id, ok && id != ""
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, http.StatusUnauthorized, detail)
	c.Abort()
}
