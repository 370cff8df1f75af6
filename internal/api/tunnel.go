package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"netident/internal/history"
	"netident/internal/monitoring"
	"netident/internal/utils"
	"netident/internal/wireguard"
)

// TunnelAPI provides REST endpoints for the device's tunnel interface:
// provisioning, live status, teardown, and QR export of the configuration.
type TunnelAPI struct {
	provisioner *wireguard.Provisioner // Tunnel lifecycle management
	qr          *utils.QRCodeGenerator // QR rendering of the tunnel config
	history     *history.Database      // Event log, may be nil
	logs        *monitoring.LogManager // Daemon log, may be nil
}

// Request/Response structures for tunnel management
type TunnelSetupRequest struct {
	Endpoint            string   `json:"endpoint" binding:"required"`
	PeerPublicKey       string   `json:"peer_public_key" binding:"required"`
	AllowedIPs          []string `json:"allowed_ips" binding:"required,min=1"`
	DNS                 string   `json:"dns,omitempty"`
	ListenPort          int      `json:"listen_port,omitempty"`
	PrivateKey          string   `json:"private_key,omitempty"`
	PersistentKeepalive int      `json:"persistent_keepalive,omitempty"`
}

type TunnelSetupResponse struct {
	PublicKey string `json:"public_key"`
	Address   string `json:"address"`
	Endpoint  string `json:"endpoint"`
}

type TunnelQRResponse struct {
	QRCode string `json:"qr_code"` // base64-encoded PNG data URI
}

// NewTunnelAPI creates a new tunnel API instance.
// Returns a pointer to the newly created TunnelAPI.
func NewTunnelAPI(provisioner *wireguard.Provisioner, hist *history.Database, logs *monitoring.LogManager) *TunnelAPI {
	return &TunnelAPI{
		provisioner: provisioner,
		qr:          utils.NewQRCodeGenerator(),
		history:     hist,
		logs:        logs,
	}
}

// RegisterRoutes registers the tunnel routes on the given group.
func (api *TunnelAPI) RegisterRoutes(group *gin.RouterGroup) {
	tunnel := group.Group("/tunnel")
	{
		tunnel.POST("/setup", api.Setup)
		tunnel.GET("/status", api.Status)
		tunnel.POST("/stop", api.Stop)
		tunnel.GET("/config", api.GetConfig)
		tunnel.GET("/qr", api.GetQR)
	}
}

// Setup provisions the tunnel: key material, address allocation, config
// write, and service activation. Failures name the stage that broke.
func (api *TunnelAPI) Setup(c *gin.Context) {
	var req TunnelSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	profile, err := api.provisioner.Setup(wireguard.SetupOptions{
		Endpoint:            req.Endpoint,
		PeerPublicKey:       req.PeerPublicKey,
		AllowedIPs:          req.AllowedIPs,
		DNS:                 req.DNS,
		ListenPort:          req.ListenPort,
		PrivateKey:          req.PrivateKey,
		PersistentKeepalive: req.PersistentKeepalive,
	})
	if err != nil {
		logError(api.logs, "tunnel", "setup failed: "+err.Error())
		recordEvent(api.history, api.logs, history.CategoryTunnel, "setup_failed", api.provisioner.Interface(), err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "tunnel", "tunnel provisioned at "+profile.Address)
	recordEvent(api.history, api.logs, history.CategoryTunnel, "setup", api.provisioner.Interface(), profile.Address)

	c.JSON(http.StatusOK, TunnelSetupResponse{
		PublicKey: profile.PublicKey,
		Address:   profile.Address,
		Endpoint:  profile.Endpoint,
	})
}

// Status returns the live tunnel state. An inactive tunnel is reported as
// such, not as an error.
func (api *TunnelAPI) Status(c *gin.Context) {
	status, err := api.provisioner.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to get tunnel status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// Stop tears the tunnel down. Stopping an already-stopped tunnel succeeds.
func (api *TunnelAPI) Stop(c *gin.Context) {
	if err := api.provisioner.Stop(); err != nil {
		logError(api.logs, "tunnel", "teardown failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logInfo(api.logs, "tunnel", "tunnel stopped")
	recordEvent(api.history, api.logs, history.CategoryTunnel, "stop", api.provisioner.Interface(), "")

	c.JSON(http.StatusOK, MessageResponse{Message: "Tunnel stopped"})
}

// GetConfig returns the rendered tunnel configuration text.
func (api *TunnelAPI) GetConfig(c *gin.Context) {
	profile, err := api.provisioner.ReadConfig()
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No tunnel configuration found"})
		return
	}

	c.String(http.StatusOK, profile.Render())
}

// GetQR returns the tunnel configuration as a QR code so it can be scanned
// into a mobile WireGuard client.
func (api *TunnelAPI) GetQR(c *gin.Context) {
	profile, err := api.provisioner.ReadConfig()
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No tunnel configuration found"})
		return
	}

	encoded, err := api.qr.GenerateTunnelQR(profile.Render())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate QR code"})
		return
	}

	c.JSON(http.StatusOK, TunnelQRResponse{QRCode: encoded})
}
