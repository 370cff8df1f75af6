package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"netident/internal/auth"
)

// AuthAPI provides the authentication endpoints for the management API.
// The device has a single administrator account; first-time setup stores
// the password, and subsequent logins exchange it for a JWT token.
type AuthAPI struct {
	manager *auth.Manager // Authentication manager for password and token operations
}

// Request/Response structures for authentication
type SetupRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RefreshTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// NewAuthAPI creates a new authentication API instance.
// Returns a pointer to the newly created AuthAPI.
func NewAuthAPI(manager *auth.Manager) *AuthAPI {
	return &AuthAPI{
		manager: manager,
	}
}

// RegisterRoutes registers the authentication routes. These are public:
// they are how a client obtains the token the protected routes require.
func (api *AuthAPI) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/setup", api.Setup)
		authGroup.POST("/login", api.Login)
		authGroup.POST("/refresh", api.RefreshToken)
	}
}

// Setup sets the administrator password on first use. Once a password
// exists the endpoint refuses further changes; use the authenticated flow
// to rotate it.
func (api *AuthAPI) Setup(c *gin.Context) {
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if api.manager.HasPassword() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Administrator password is already set"})
		return
	}

	if err := api.manager.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to set password"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Administrator password set"})
}

// Login verifies the administrator password and returns a JWT token.
func (api *AuthAPI) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	token, err := api.manager.Login(req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// RefreshToken exchanges a still-valid token for a fresh one.
func (api *AuthAPI) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	token, err := api.manager.RefreshToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
