// Package handlers exposes the orchestrator over the localhost HTTP API the
// desktop shell talks to.
package handlers

import (
	"net/http"
	"sort"
	"time"

	"aism/internal/middleware"
	"aism/internal/models"
	"aism/internal/orchestrator"
	"aism/internal/utils"
	"aism/internal/version"

	"github.com/gin-gonic/gin"
)

type ServiceHandlers struct {
	orch *orchestrator.Orchestrator
	log  *utils.Logger
}

func NewServiceHandlers(orch *orchestrator.Orchestrator, log *utils.Logger) *ServiceHandlers {
	return &ServiceHandlers{orch: orch, log: log}
}

// serviceJSON renders one status record. Timestamps follow RFC3339 and are
// empty strings until the first transition of their kind.
func serviceJSON(s models.ServiceStatus) gin.H {
	var started, stopped string
	if s.LastStarted != nil {
		started = s.LastStarted.Format(time.RFC3339)
	}
	if s.LastStopped != nil {
		stopped = s.LastStopped.Format(time.RFC3339)
	}
	return gin.H{
		"name":           s.Name,
		"display_name":   s.DisplayName,
		"type":           string(s.Type),
		"endpoint":       s.Endpoint,
		"running":        s.Running,
		"last_started":   started,
		"last_stopped":   stopped,
		"uptime_seconds": int64(s.Uptime().Seconds()),
	}
}

// APIServices lists every tracked service, sorted by name for a stable UI.
func (h *ServiceHandlers) APIServices(c *gin.Context) {
	statuses := h.orch.AllStatuses()
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make([]gin.H, 0, len(names))
	for _, name := range names {
		services = append(services, serviceJSON(statuses[name]))
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *ServiceHandlers) APIServiceStatus(c *gin.Context) {
	name := c.Param("name")
	status, ok := h.orch.Status(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	payload := serviceJSON(status)
	payload["consecutive_failures"] = h.orch.Breaker().Failures(name)
	c.JSON(http.StatusOK, payload)
}

func (h *ServiceHandlers) APIServiceStart(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.orch.Status(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	if !h.orch.StartService(name) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Service did not come up"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (h *ServiceHandlers) APIServiceStop(c *gin.Context) {
	name := c.Param("name")
	if !h.orch.StopService(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *ServiceHandlers) APIServiceRestart(c *gin.Context) {
	name := c.Param("name")
	if _, ok := h.orch.Status(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	if !h.orch.RestartService(name) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Service did not come back up"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restarted"})
}

type notifyRequest struct {
	Running *bool `json:"running" binding:"required"`
}

// APIServiceNotify lets a monitored service push its own state change instead
// of waiting for the next probe sweep.
func (h *ServiceHandlers) APIServiceNotify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	if !h.orch.ApplyExternalStatus(c.Param("name"), *req.Running) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

type endpointRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// APIServiceSetEndpoint overrides a service's endpoint at runtime. The
// override is persisted so it survives restarts.
func (h *ServiceHandlers) APIServiceSetEndpoint(c *gin.Context) {
	var req endpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format", "details": err.Error()})
		return
	}
	endpoint := middleware.SanitizeString(req.Endpoint)
	if err := middleware.ValidateEndpoint(endpoint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Endpoint must be an http(s) URL", "details": err.Error()})
		return
	}
	if !h.orch.SetEndpoint(c.Param("name"), endpoint) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "endpoint": endpoint})
}

// APIMetrics returns the latest host telemetry snapshot.
func (h *ServiceHandlers) APIMetrics(c *gin.Context) {
	m := h.orch.CurrentMetrics()
	c.JSON(http.StatusOK, gin.H{
		"cpu_percent":       m.CPUPercent,
		"gpu_percent":       m.GPUPercent,
		"cpu_temp_c":        m.CPUTempC,
		"gpu_temp_c":        m.GPUTempC,
		"gpu_fan_rpm":       m.GPUFanRPM,
		"gpu_fan_estimated": m.GPUFanEstimated,
		"memory_used":       m.MemoryUsed,
		"memory_total":      m.MemoryTotal,
		"sampled_at":        m.SampledAt.Format(time.RFC3339),
	})
}

// APILogs returns a short preview of the aism log for the shell's
// diagnostics panel.
func (h *ServiceHandlers) APILogs(c *gin.Context) {
	if h.log == nil {
		c.JSON(http.StatusOK, gin.H{"log": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": h.log.Read()})
}

// APIVersion reports the build version for the shell's about dialog.
func (h *ServiceHandlers) APIVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.String()})
}
