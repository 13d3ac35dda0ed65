package core

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix       = "Bearer "
	identityContextKey = "identity"
)

// Authenticate turns "Authorization: Bearer <token>" into an Identity on the
// request context or rejects with 401. Every decode failure kind maps to the
// same client-visible message so callers learn nothing about which check
// failed; the detail goes to the server log only.
func Authenticate(codec *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			respondError(c, http.StatusUnauthorized, "Authorization header missing")
			c.Abort()
			return
		}

		claims, err := codec.Decode(header[len(bearerPrefix):])
		if err != nil {
			log.Printf("token verification failed: %v", err)
			respondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		if role, _ := claims["role"].(string); role == RoleGuest {
			c.Set(identityContextKey, Identity{Role: RoleGuest, Username: GuestUsername})
			c.Next()
			return
		}

		// Anything not marked guest is treated as a user token and must
		// carry a subject.
		userID, _ := claims["userId"].(string)
		if userID == "" {
			respondError(c, http.StatusUnauthorized, "Invalid token payload")
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)

		c.Set(identityContextKey, Identity{Role: RoleUser, UserID: userID, Username: username})
		c.Next()
	}
}

// CurrentIdentity returns the identity attached by Authenticate. It is the
// zero Identity on routes that skipped the middleware.
func CurrentIdentity(c *gin.Context) Identity {
	v, _ := c.Get(identityContextKey)
	id, _ := v.(Identity)
	return id
}
