package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"netident/internal/backup"
	"netident/internal/history"
	"netident/internal/monitoring"
)

// BackupAPI provides REST endpoints for exporting and importing network
// profiles and the tunnel configuration. Secrets are encrypted on export
// and decrypted on import by the credential cipher.
type BackupAPI struct {
	manager *backup.Manager        // Export/import pipeline
	history *history.Database      // Event log, may be nil
	logs    *monitoring.LogManager // Daemon log, may be nil
}

// Request/Response structures for backup operations
type ExportRequest struct {
	Filename string `json:"filename,omitempty"` // Optional export filename
}

type ExportResponse struct {
	Path string `json:"path"`
}

type ImportRequest struct {
	Path string `json:"path" binding:"required"`
}

// NewBackupAPI creates a new backup API instance.
// Returns a pointer to the newly created BackupAPI.
func NewBackupAPI(manager *backup.Manager, hist *history.Database, logs *monitoring.LogManager) *BackupAPI {
	return &BackupAPI{
		manager: manager,
		history: hist,
		logs:    logs,
	}
}

// RegisterRoutes registers the backup routes on the given group.
func (api *BackupAPI) RegisterRoutes(group *gin.RouterGroup) {
	backupGroup := group.Group("/backup")
	{
		backupGroup.POST("/networks/export", api.ExportNetworks)
		backupGroup.POST("/networks/import", api.ImportNetworks)
		backupGroup.POST("/tunnel/export", api.ExportTunnel)
		backupGroup.POST("/tunnel/import", api.ImportTunnel)
	}
}

// ExportNetworks writes all stored profiles to an export file with
// passwords encrypted.
func (api *BackupAPI) ExportNetworks(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	path, err := api.manager.ExportProfiles(req.Filename)
	if err != nil {
		logError(api.logs, "backup", "network export failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "backup", "networks exported to "+path)
	recordEvent(api.history, api.logs, history.CategoryBackup, "export_networks", path, "")

	c.JSON(http.StatusOK, ExportResponse{Path: path})
}

// ImportNetworks reads an export file and persists its profiles. Entries
// whose passwords cannot be decrypted are imported with the encrypted token
// left in place and reported in the result.
func (api *BackupAPI) ImportNetworks(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := api.manager.ImportProfiles(req.Path)
	if err != nil {
		logError(api.logs, "backup", "network import failed: "+err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "backup", fmt.Sprintf("imported %d profiles from %s", result.ImportedCount, req.Path))
	recordEvent(api.history, api.logs, history.CategoryBackup, "import_networks", req.Path,
		fmt.Sprintf("%d imported, %d errors", result.ImportedCount, len(result.Errors)))

	c.JSON(http.StatusOK, result)
}

// ExportTunnel writes the tunnel configuration to an export file with the
// private key encrypted.
func (api *BackupAPI) ExportTunnel(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	path, err := api.manager.ExportTunnel(req.Filename)
	if err != nil {
		logError(api.logs, "backup", "tunnel export failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "backup", "tunnel exported to "+path)
	recordEvent(api.history, api.logs, history.CategoryBackup, "export_tunnel", path, "")

	c.JSON(http.StatusOK, ExportResponse{Path: path})
}

// ImportTunnel restores the tunnel configuration from an export file. The
// tunnel is not activated; use the tunnel endpoints for that.
func (api *BackupAPI) ImportTunnel(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	profile, err := api.manager.ImportTunnel(req.Path)
	if err != nil {
		logError(api.logs, "backup", "tunnel import failed: "+err.Error())
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "backup", "tunnel configuration imported from "+req.Path)
	recordEvent(api.history, api.logs, history.CategoryBackup, "import_tunnel", req.Path, profile.Address)

	c.JSON(http.StatusOK, MessageResponse{Message: "Tunnel configuration imported"})
}
