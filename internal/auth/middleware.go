package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware provides HTTP middleware for JWT authentication on the
// management API's protected routes.
type Middleware struct {
	manager *Manager // Authentication manager for token validation
}

// ErrorResponse represents an authentication error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewMiddleware creates a new authentication middleware instance.
// Returns a pointer to the newly created Middleware.
func NewMiddleware(manager *Manager) *Middleware {
	return &Middleware{
		manager: manager,
	}
}

// RequireAuth is a middleware function that requires authentication for
// protected routes. It extracts the Authorization header, validates the JWT
// token, and stores the claims in the Gin context. Authentication failures
// return a 401 Unauthorized response.
func (mw *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "Authorization header is required",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "Authorization header must start with 'Bearer '",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "JWT token is required",
			})
			c.Abort()
			return
		}

		claims, err := mw.manager.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
