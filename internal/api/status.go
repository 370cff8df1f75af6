package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"netident/internal/history"
	"netident/internal/monitoring"
	"netident/internal/network"
)

// StatusAPI provides REST endpoints for connectivity status, recent daemon
// logs, and the persisted event history.
type StatusAPI struct {
	aggregator *network.Aggregator    // Connectivity status probes
	history    *history.Database      // Event log, may be nil
	logs       *monitoring.LogManager // Daemon log, may be nil
}

// Response structures for status and history
type LogsResponse struct {
	Logs  []monitoring.LogEntry `json:"logs"`
	Total int                   `json:"total"`
}

type HistoryResponse struct {
	Events []history.Event `json:"events"`
	Total  int             `json:"total"`
}

// NewStatusAPI creates a new status API instance.
// Returns a pointer to the newly created StatusAPI.
func NewStatusAPI(aggregator *network.Aggregator, hist *history.Database, logs *monitoring.LogManager) *StatusAPI {
	return &StatusAPI{
		aggregator: aggregator,
		history:    hist,
		logs:       logs,
	}
}

// RegisterRoutes registers the status routes on the given group.
func (api *StatusAPI) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/status", api.GetStatus)
	group.GET("/logs", api.GetLogs)
	group.GET("/history", api.GetHistory)
}

// GetStatus returns the unified connectivity snapshot. Individual probe
// failures degrade fields instead of failing the request.
func (api *StatusAPI) GetStatus(c *gin.Context) {
	status := api.aggregator.GetStatus()
	c.JSON(http.StatusOK, status)
}

// GetLogs returns recent daemon log entries from the in-memory buffer.
// The optional "count" query parameter limits how many are returned.
func (api *StatusAPI) GetLogs(c *gin.Context) {
	if api.logs == nil {
		c.JSON(http.StatusOK, LogsResponse{})
		return
	}

	count, _ := strconv.Atoi(c.DefaultQuery("count", "100"))
	entries := api.logs.RecentLogs(count)

	c.JSON(http.StatusOK, LogsResponse{
		Logs:  entries,
		Total: len(entries),
	})
}

// GetHistory returns recent persisted events, newest first. The optional
// "subject" query parameter filters by subject and "count" limits results.
func (api *StatusAPI) GetHistory(c *gin.Context) {
	if api.history == nil {
		c.JSON(http.StatusOK, HistoryResponse{})
		return
	}

	count, err := strconv.Atoi(c.DefaultQuery("count", "50"))
	if err != nil || count <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "count must be a positive integer"})
		return
	}

	var events []history.Event
	if subject := c.Query("subject"); subject != "" {
		events, err = api.history.ForSubject(subject, count)
	} else {
		events, err = api.history.Recent(count)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read event history"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Events: events,
		Total:  len(events),
	})
}
