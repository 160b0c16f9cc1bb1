package middleware

import (
	"net/http"
	"strings"

	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// TokenParser turns a bearer token into the authenticated actor.
// service.UserService implements it.
type TokenParser interface {
	ParseToken(token string) (service.Actor, error)
}

// SetTokenCookies stores the access token as an HttpOnly cookie
func SetTokenCookies(c *gin.Context, accessToken string, maxAge int) {
	// cross-origin frontends in release need SameSite=None + Secure
	sameSite := http.SameSiteLaxMode
	secure := false
	if gin.Mode() == gin.ReleaseMode {
		sameSite = http.SameSiteNoneMode
		secure = true
	}
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, maxAge, "/", "", secure, true)
}

// ClearTokenCookies removes the access token cookie
func ClearTokenCookies(c *gin.Context) {
	SetTokenCookies(c, "", -1)
}

// RequireAuth validates the token (cookie first, then Authorization header)
// and stores the actor on the gin and request contexts. There is no
// anonymous fallback: a missing or invalid token is always 401.
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthenticated", "Authorization is missing"))
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthenticated", "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		actor, err := parser.ParseToken(tokenString)
		if err != nil || !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthenticated", "Invalid or expired token"))
			return
		}

		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireRole gates a route group on the actor set by RequireAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthenticated", "Authorization is missing"))
			return
		}
		if !actor.HasRole(allowedRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "permission_denied", "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// Actor returns the principal stored by RequireAuth, or the zero Actor
func Actor(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(service.Actor); ok {
			return a
		}
	}
	return service.Actor{}
}
