// Package api provides the REST management API for the netident daemon.
// It exposes HTTP endpoints for network profile management, tunnel
// provisioning, connectivity status, and backup operations using the Gin
// web framework, protected by JWT authentication.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"netident/internal/auth"
	"netident/internal/backup"
	"netident/internal/history"
	"netident/internal/monitoring"
	"netident/internal/network"
	"netident/internal/store"
	"netident/internal/wireguard"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a simple confirmation response.
type MessageResponse struct {
	Message string `json:"message"`
}

// Server bundles the component APIs and builds the HTTP router.
type Server struct {
	authAPI     *AuthAPI
	networksAPI *NetworksAPI
	tunnelAPI   *TunnelAPI
	statusAPI   *StatusAPI
	backupAPI   *BackupAPI
	middleware  *auth.Middleware
}

// Dependencies carries the components the API server is built from.
type Dependencies struct {
	AuthManager *auth.Manager
	Store       *store.Store
	Connections store.ConnectionManager
	Aggregator  *network.Aggregator
	Provisioner *wireguard.Provisioner
	Backup      *backup.Manager
	History     *history.Database
	Logs        *monitoring.LogManager
}

// NewServer creates an API server wired to the given components.
// Returns a pointer to the newly created Server.
func NewServer(deps Dependencies) *Server {
	return &Server{
		authAPI:     NewAuthAPI(deps.AuthManager),
		networksAPI: NewNetworksAPI(deps.Store, deps.Connections, deps.History, deps.Logs),
		tunnelAPI:   NewTunnelAPI(deps.Provisioner, deps.History, deps.Logs),
		statusAPI:   NewStatusAPI(deps.Aggregator, deps.History, deps.Logs),
		backupAPI:   NewBackupAPI(deps.Backup, deps.History, deps.Logs),
		middleware:  auth.NewMiddleware(deps.AuthManager),
	}
}

// recordEvent writes an event to the history log if one is configured.
// History failures never fail the request that triggered them.
func recordEvent(db *history.Database, logs *monitoring.LogManager, category, action, subject, detail string) {
	if db == nil {
		return
	}
	if err := db.Record(category, action, subject, detail); err != nil && logs != nil {
		logs.Warn("history", "failed to record event: "+err.Error())
	}
}

// logInfo and logError write to the daemon log if one is configured.
func logInfo(logs *monitoring.LogManager, component, message string) {
	if logs != nil {
		logs.Info(component, message)
	}
}

func logError(logs *monitoring.LogManager, component, message string) {
	if logs != nil {
		logs.Error(component, message)
	}
}

// Router builds the Gin engine with all API routes registered.
// Authentication endpoints are public; everything else requires a valid
// JWT token.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.authAPI.RegisterRoutes(router)

	protected := router.Group("/api")
	protected.Use(s.middleware.RequireAuth())
	{
		s.networksAPI.RegisterRoutes(protected)
		s.tunnelAPI.RegisterRoutes(protected)
		s.statusAPI.RegisterRoutes(protected)
		s.backupAPI.RegisterRoutes(protected)
	}

	return router
}
