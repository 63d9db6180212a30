package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"aism/internal/orchestrator"
	"aism/internal/utils"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *orchestrator.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := orchestrator.DefaultConfig()
	cfg.WatchService = ""
	cfg.RefreshSeconds = 0
	orch := orchestrator.New(cfg, nil)
	t.Cleanup(orch.Close)

	h := NewServiceHandlers(orch, nil)
	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/logs", h.APILogs)
		api.GET("/services", h.APIServices)
		api.GET("/services/:name", h.APIServiceStatus)
		api.POST("/services/:name/stop", h.APIServiceStop)
		api.POST("/services/:name/notify", h.APIServiceNotify)
		api.PUT("/services/:name/endpoint", h.APIServiceSetEndpoint)
		api.GET("/metrics", h.APIMetrics)
		api.GET("/version", h.APIVersion)
	}
	return r, orch
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	payload := map[string]interface{}{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return w, payload
}

func TestAPIServicesListsCatalog(t *testing.T) {
	r, _ := newTestRouter(t)

	w, payload := doJSON(t, r, http.MethodGet, "/api/services", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	services, ok := payload["services"].([]interface{})
	if !ok || len(services) != 5 {
		t.Fatalf("expected 5 catalog services, got %v", payload["services"])
	}
	first := services[0].(map[string]interface{})
	if first["name"] != "imagegen" {
		t.Errorf("expected alphabetical order starting with imagegen, got %v", first["name"])
	}
	if first["running"] != false {
		t.Errorf("services must start as stopped, got %v", first)
	}
	if _, ok := first["uptime_seconds"]; !ok {
		t.Error("uptime missing from the status shape")
	}
}

func TestAPIServiceStatusUnknown(t *testing.T) {
	r, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodGet, "/api/services/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPIServiceNotifyTransitionsStatus(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/services/mcp/notify", `{"running": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w, payload := doJSON(t, r, http.MethodGet, "/api/services/mcp", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if payload["running"] != true {
		t.Errorf("push did not mark the service running: %v", payload)
	}
	if payload["last_started"] == "" {
		t.Error("expected last_started to be stamped on the transition")
	}
	if got, ok := payload["consecutive_failures"]; !ok || got != float64(0) {
		t.Errorf("expected a zero failure counter in the status, got %v", payload)
	}
}

func TestAPILogsServesLogPreview(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := orchestrator.DefaultConfig()
	cfg.WatchService = ""
	cfg.RefreshSeconds = 0
	orch := orchestrator.New(cfg, nil)
	t.Cleanup(orch.Close)

	logger := utils.NewLogger(filepath.Join(t.TempDir(), "aism.log"))
	t.Cleanup(logger.Close)
	logger.Write("speech server restarted")

	h := NewServiceHandlers(orch, logger)
	r := gin.New()
	r.GET("/api/logs", h.APILogs)

	w, payload := doJSON(t, r, http.MethodGet, "/api/logs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	content, _ := payload["log"].(string)
	if !strings.Contains(content, "speech server restarted") {
		t.Errorf("expected the written line in the preview, got %q", content)
	}
}

func TestAPIServiceNotifyValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/services/mcp/notify", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing running field, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/services/nope/notify", `{"running": false}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown service, got %d", w.Code)
	}
}

func TestAPIServiceStop(t *testing.T) {
	r, _ := newTestRouter(t)

	w, payload := doJSON(t, r, http.MethodPost, "/api/services/tts/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if payload["status"] != "stopped" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestAPIServiceSetEndpoint(t *testing.T) {
	r, orch := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPut, "/api/services/tts/endpoint", `{"endpoint": "not-a-url"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad endpoint, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPut, "/api/services/tts/endpoint", `{"endpoint": "http://localhost:5050"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	status, ok := orch.Status("tts")
	if !ok || status.Endpoint != "http://localhost:5050" {
		t.Errorf("override did not reach the orchestrator: %+v", status)
	}
}

func TestAPIMetricsShape(t *testing.T) {
	r, _ := newTestRouter(t)

	w, payload := doJSON(t, r, http.MethodGet, "/api/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, key := range []string{"cpu_percent", "gpu_percent", "memory_total", "sampled_at"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("metrics payload missing %q: %v", key, payload)
		}
	}
}

func TestAPIVersion(t *testing.T) {
	r, _ := newTestRouter(t)
	w, payload := doJSON(t, r, http.MethodGet, "/api/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if payload["version"] == "" {
		t.Error("version must never be empty")
	}
}
