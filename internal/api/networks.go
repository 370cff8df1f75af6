package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"netident/internal/history"
	"netident/internal/monitoring"
	"netident/internal/store"
)

// NetworksAPI provides REST endpoints for managing stored network profiles:
// listing, saving, deleting, deduplication, and the default-profile pointer.
type NetworksAPI struct {
	store       *store.Store            // Profile persistence
	connections store.ConnectionManager // OS-level connection store, may be nil
	history     *history.Database       // Event log, may be nil
	logs        *monitoring.LogManager  // Daemon log, may be nil
}

// Request/Response structures for network profile management
type SaveNetworkRequest struct {
	Name    string               `json:"name,omitempty"` // Optional explicit profile name
	Profile store.NetworkProfile `json:"profile" binding:"required"`
}

type SaveNetworkResponse struct {
	ID string `json:"id"`
}

type NetworkListResponse struct {
	Networks []store.Entry `json:"networks"`
	Total    int           `json:"total"`
}

type DeduplicateResponse struct {
	RemovedProfiles    []string `json:"removed_profiles"`
	RemovedConnections []string `json:"removed_connections,omitempty"`
}

type DefaultNetworkResponse struct {
	ID string `json:"id"`
}

type SetDefaultRequest struct {
	ID string `json:"id" binding:"required"`
}

// NewNetworksAPI creates a new network profile API instance.
// Returns a pointer to the newly created NetworksAPI.
func NewNetworksAPI(profileStore *store.Store, connections store.ConnectionManager, hist *history.Database, logs *monitoring.LogManager) *NetworksAPI {
	return &NetworksAPI{
		store:       profileStore,
		connections: connections,
		history:     hist,
		logs:        logs,
	}
}

// RegisterRoutes registers the network profile routes on the given group.
func (api *NetworksAPI) RegisterRoutes(group *gin.RouterGroup) {
	networks := group.Group("/networks")
	{
		networks.GET("", api.List)
		networks.POST("", api.Save)
		networks.POST("/deduplicate", api.Deduplicate)
		networks.GET("/default", api.GetDefault)
		networks.PUT("/default", api.SetDefault)
		networks.GET("/:id", api.Get)
		networks.PUT("/:id", api.Overwrite)
		networks.DELETE("/:id", api.Delete)
		networks.POST("/:id/touch", api.Touch)
	}
}

// List returns all stored network profiles.
func (api *NetworksAPI) List(c *gin.Context) {
	entries, err := api.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list network profiles"})
		return
	}

	c.JSON(http.StatusOK, NetworkListResponse{
		Networks: entries,
		Total:    len(entries),
	})
}

// Save stores a new network profile. The identifier is derived from the
// explicit name when given, otherwise from the profile's SSID and mode, and
// never collides with an existing profile.
func (api *NetworksAPI) Save(c *gin.Context) {
	var req SaveNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	id, err := api.store.Save(req.Name, &req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "network", fmt.Sprintf("saved profile %s", id))
	recordEvent(api.history, api.logs, history.CategoryNetwork, "save", id, req.Profile.SSID)

	c.JSON(http.StatusCreated, SaveNetworkResponse{ID: id})
}

// Get returns a single network profile by identifier.
func (api *NetworksAPI) Get(c *gin.Context) {
	id := c.Param("id")

	profile, err := api.store.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Network profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load network profile"})
		return
	}

	c.JSON(http.StatusOK, store.Entry{ID: id, Profile: *profile})
}

// Overwrite replaces the profile stored under the given identifier.
// Unlike Save this deliberately reuses the identifier.
func (api *NetworksAPI) Overwrite(c *gin.Context) {
	id := c.Param("id")

	var profile store.NetworkProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := api.store.Overwrite(id, &profile); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "network", fmt.Sprintf("overwrote profile %s", id))
	recordEvent(api.history, api.logs, history.CategoryNetwork, "overwrite", id, profile.SSID)

	c.JSON(http.StatusOK, SaveNetworkResponse{ID: id})
}

// Delete removes a stored network profile.
func (api *NetworksAPI) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := api.store.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Network profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete network profile"})
		return
	}

	logInfo(api.logs, "network", fmt.Sprintf("deleted profile %s", id))
	recordEvent(api.history, api.logs, history.CategoryNetwork, "delete", id, "")

	c.JSON(http.StatusOK, MessageResponse{Message: "Network profile deleted"})
}

// Touch updates the profile's last-used timestamp.
func (api *NetworksAPI) Touch(c *gin.Context) {
	id := c.Param("id")

	if err := api.store.Touch(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Network profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update network profile"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Network profile touched"})
}

// Deduplicate removes redundant stored profiles that share an SSID and mode,
// keeping the most recently created one. When an OS-level connection manager
// is configured its duplicate connections are removed as well.
func (api *NetworksAPI) Deduplicate(c *gin.Context) {
	removed, err := api.store.Deduplicate()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to deduplicate network profiles"})
		return
	}

	response := DeduplicateResponse{RemovedProfiles: removed}

	if api.connections != nil {
		removedConns, err := store.DeduplicateConnections(api.connections)
		if err != nil {
			logError(api.logs, "network", "connection deduplication failed: "+err.Error())
		} else {
			response.RemovedConnections = removedConns
		}
	}

	logInfo(api.logs, "network", fmt.Sprintf("deduplication removed %d profiles", len(removed)))
	recordEvent(api.history, api.logs, history.CategoryNetwork, "deduplicate", "", fmt.Sprintf("%d profiles removed", len(removed)))

	c.JSON(http.StatusOK, response)
}

// GetDefault returns the identifier of the default network profile.
func (api *NetworksAPI) GetDefault(c *gin.Context) {
	id, err := api.store.DefaultID()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "No default network profile set"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read default network profile"})
		return
	}

	c.JSON(http.StatusOK, DefaultNetworkResponse{ID: id})
}

// SetDefault marks an existing profile as the default.
func (api *NetworksAPI) SetDefault(c *gin.Context) {
	var req SetDefaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := api.store.SetDefault(req.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Network profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to set default network profile"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Default network profile updated"})
}
