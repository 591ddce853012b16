package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	identityKey = "identity"
	guestPrefix = "guest:"
)

var guestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// Identity is the caller as established by Auth. Guests only have UserID.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Picture string
	Guest   bool
}

// publicPrefixes are reachable without an identity: OAuth callbacks, the
// billing webhook, published pages and probes.
var publicPrefixes = []string{
	"/api/v1/auth/google/",
	"/api/v1/webhooks/",
	"/api/v1/health",
	"/api/v1/templates",
	"/p/",
	"/metrics",
}

// Auth resolves the caller from a bearer JWT or, failing that, from an
// X-Guest-Id header. A present but bad token is rejected rather than
// downgraded to guest.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		var id Identity
		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			claims, err := auth.VerifyJWT(strings.TrimSpace(token))
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				respond.Error(c, http.StatusUnauthorized, "token_expired", "session expired, sign in again", nil)
				return
			case err != nil:
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			id = Identity{UserID: claims.Sub, Email: claims.Email, Name: claims.Name, Picture: claims.Picture}
		} else {
			guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
			if guestID == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
				return
			}
			if !guestIDPattern.MatchString(guestID) {
				respond.Error(c, http.StatusBadRequest, "validation_error", "malformed X-Guest-Id", nil)
				return
			}
			id = Identity{UserID: guestPrefix + guestID, Guest: true}
		}

		c.Set(identityKey, id)
		c.Set(userIDKey, id.UserID)
		c.Set("isGuest", id.Guest)
		c.Next()
	}
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IdentityFromContext returns the caller set by Auth, or the zero Identity.
func IdentityFromContext(c *gin.Context) Identity {
	if c == nil {
		return Identity{}
	}
	v, _ := c.Get(identityKey)
	id, _ := v.(Identity)
	return id
}

func IsGuest(c *gin.Context) bool {
	return IdentityFromContext(c).Guest
}

func UserIDFromContext(c *gin.Context) string {
	return IdentityFromContext(c).UserID
}

// UserPictureFromContext is the avatar URL from the Google profile, if any.
func UserPictureFromContext(c *gin.Context) string {
	return IdentityFromContext(c).Picture
}
