package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/monitor"
	"github.com/couchcryptid/quake-monitor-service/internal/notify"
	"github.com/couchcryptid/quake-monitor-service/internal/scheduler"
	"github.com/couchcryptid/quake-monitor-service/internal/view"
	"github.com/couchcryptid/quake-monitor-service/internal/view/markers"
	"github.com/gin-gonic/gin"
)

// Monitor is the application state the API reads and mutates.
type Monitor interface {
	Snapshot() monitor.Snapshot
	SetCriteria(c domain.Criteria) monitor.Snapshot
	Preview(c domain.Criteria) monitor.Snapshot
	Locate(id string) (view.Focus, error)
	LocateNear(lat, lon float64) (view.Focus, error)
	SelectAlert(alertID string) (view.Focus, error)
	SetOffline()
}

// Scheduler accepts refresh triggers and environment signals.
type Scheduler interface {
	Dispatch(ctx context.Context, ev scheduler.Event) error
	Status() scheduler.Status
}

// Notifier manages the notification preference and permission.
type Notifier interface {
	State() notify.State
	Toggle(ctx context.Context) notify.State
	SetPermission(p notify.Permission) notify.State
}

// AlertCenter lists and closes active alerts.
type AlertCenter interface {
	Active() []notify.Alert
	Dismiss(id string) bool
}

// MapLayer renders the current markers.
type MapLayer interface {
	GeoJSON() markers.FeatureCollection
}

// API bundles the collaborators behind the /api routes.
type API struct {
	Monitor   Monitor
	Scheduler Scheduler
	Notifier  Notifier
	Alerts    AlertCenter
	Map       MapLayer
}

type handlers struct {
	api    API
	logger *slog.Logger
}

func (h *handlers) register(rg *gin.RouterGroup) {
	rg.GET("/view", h.handleView)
	rg.GET("/map", h.handleMap)
	rg.PUT("/criteria", h.handleSetCriteria)

	rg.POST("/refresh", h.handleRefresh)
	rg.POST("/time-range", h.handleTimeRange)
	rg.POST("/signals/visibility", h.handleVisibility)
	rg.POST("/signals/network", h.handleNetwork)
	rg.GET("/scheduler", h.handleSchedulerStatus)

	rg.GET("/quakes/:id/locate", h.handleLocate)
	rg.GET("/locate", h.handleLocateNear)

	rg.GET("/notifications", h.handleNotifications)
	rg.POST("/notifications/toggle", h.handleToggle)
	rg.PUT("/notifications/permission", h.handlePermission)

	rg.GET("/alerts", h.handleAlerts)
	rg.POST("/alerts/:id/select", h.handleSelectAlert)
	rg.POST("/alerts/:id/dismiss", h.handleDismissAlert)
}

// handleView returns the current view. Query parameters are laid over the
// active criteria for this response only; PUT /criteria changes them.
func (h *handlers) handleView(c *gin.Context) {
	q := c.Request.URL.Query()
	if !q.Has("min_magnitude") && !q.Has("depth") && !q.Has("search") && !q.Has("sort") {
		c.JSON(http.StatusOK, h.api.Monitor.Snapshot())
		return
	}

	cur := h.api.Monitor.Snapshot().Criteria
	crit, err := domain.ParseCriteria(
		c.DefaultQuery("min_magnitude", strconv.FormatFloat(cur.MinMagnitude, 'f', -1, 64)),
		c.DefaultQuery("depth", string(cur.Depth)),
		c.DefaultQuery("search", cur.Search),
		c.DefaultQuery("sort", string(cur.Sort)),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.api.Monitor.Preview(crit))
}

func (h *handlers) handleMap(c *gin.Context) {
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, h.api.Map.GeoJSON())
}

func (h *handlers) handleSetCriteria(c *gin.Context) {
	var crit domain.Criteria
	if err := c.ShouldBindJSON(&crit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, h.api.Monitor.SetCriteria(crit))
}

func (h *handlers) handleRefresh(c *gin.Context) {
	h.dispatch(c, scheduler.ManualRefresh{})
}

func (h *handlers) handleTimeRange(c *gin.Context) {
	var req struct {
		Range string `json:"range"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	r, err := domain.ParseTimeRange(req.Range)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, scheduler.TimeRangeChanged{Range: r})
}

func (h *handlers) handleVisibility(c *gin.Context) {
	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visible is required"})
		return
	}
	if *req.Visible {
		h.dispatch(c, scheduler.VisibilityResumed{})
		return
	}
	h.dispatch(c, scheduler.VisibilityHidden{})
}

func (h *handlers) handleNetwork(c *gin.Context) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "online is required"})
		return
	}
	if *req.Online {
		h.dispatch(c, scheduler.NetworkRestored{})
		return
	}
	h.api.Monitor.SetOffline()
	h.dispatch(c, scheduler.NetworkLost{})
}

func (h *handlers) dispatch(c *gin.Context, ev scheduler.Event) {
	if err := h.api.Scheduler.Dispatch(c.Request.Context(), ev); err != nil {
		h.logger.Warn("dispatch scheduler event failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *handlers) handleSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.api.Scheduler.Status())
}

func (h *handlers) handleLocate(c *gin.Context) {
	focus, err := h.api.Monitor.Locate(c.Param("id"))
	if err != nil {
		writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, focus)
}

func (h *handlers) handleLocateNear(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required numbers"})
		return
	}
	focus, err := h.api.Monitor.LocateNear(lat, lon)
	if err != nil {
		writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, focus)
}

func (h *handlers) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.api.Notifier.State())
}

func (h *handlers) handleToggle(c *gin.Context) {
	c.JSON(http.StatusOK, h.api.Notifier.Toggle(c.Request.Context()))
}

func (h *handlers) handlePermission(c *gin.Context) {
	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := notify.ParsePermission(req.Permission)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.api.Notifier.SetPermission(p))
}

func (h *handlers) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.api.Alerts.Active())
}

func (h *handlers) handleSelectAlert(c *gin.Context) {
	focus, err := h.api.Monitor.SelectAlert(c.Param("id"))
	if err != nil {
		writeLocateError(c, err)
		return
	}
	c.JSON(http.StatusOK, focus)
}

func (h *handlers) handleDismissAlert(c *gin.Context) {
	if !h.api.Alerts.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": monitor.ErrAlertNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func writeLocateError(c *gin.Context, err error) {
	if errors.Is(err, monitor.ErrNotFound) || errors.Is(err, monitor.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
