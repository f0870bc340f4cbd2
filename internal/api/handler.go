package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkprobe/internal/logger"
	"linkprobe/internal/model"
	"linkprobe/internal/parser"
	"linkprobe/internal/prober"
	"linkprobe/internal/store"
)

type Handler struct {
	store  store.Store
	orch   *prober.Orchestrator
	client *http.Client
}

func NewHandler(st store.Store, orch *prober.Orchestrator) *Handler {
	return &Handler{
		store: st,
		orch:  orch,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type fetchRequest struct {
	URL string `json:"url" binding:"required"`
}

type testBatchRequest struct {
	Configs []model.Config `json:"configs"`
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Proxy Config Tester API"})
}

// FetchConfigs downloads a subscription body, decodes every line, and
// replaces the stored config set with the outcome. Retrieval failures are
// reported in the body rather than as an HTTP error, matching what the
// frontend expects.
func (h *Handler) FetchConfigs(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "total": 0, "configs": []model.Config{}})
		return
	}

	resp, err := h.client.Get(req.URL)
	if err != nil {
		logger.Log.Errorf("Failed to fetch configs: %v", err)
		c.JSON(http.StatusOK, gin.H{"error": err.Error(), "total": 0, "configs": []model.Config{}})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Errorf("Subscription fetch returned status %d", resp.StatusCode)
		c.JSON(http.StatusOK, gin.H{"error": "subscription fetch failed", "total": 0, "configs": []model.Config{}})
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error(), "total": 0, "configs": []model.Config{}})
		return
	}

	configs := decodeLines(string(body))

	if len(configs) > 0 {
		if err := h.store.ReplaceConfigs(configs); err != nil {
			logger.Log.Errorf("Failed to store configs: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"total": len(configs), "configs": configs})
}

func decodeLines(body string) []model.Config {
	configs := []model.Config{}
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cfg, err := parser.Decode(line)
		if err != nil {
			logger.Log.Debugf("Dropped line: %v", err)
			continue
		}
		configs = append(configs, *cfg)
	}
	return configs
}

// TestBatch probes every submitted config and upserts the outcomes keyed
// by config id.
func (h *Handler) TestBatch(c *gin.Context) {
	var req testBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for i := range req.Configs {
		if req.Configs[i].Port == 0 {
			req.Configs[i].Port = 443
		}
	}

	results := h.orch.Run(c.Request.Context(), req.Configs, nil)

	for _, res := range results {
		if err := h.store.UpsertResult(res); err != nil {
			logger.Log.Errorf("Failed to store result for %s: %v", res.ConfigID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetResults returns successful probes sorted by latency.
func (h *Handler) GetResults(c *gin.Context) {
	results, err := h.store.ResultsByLatency(1000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []model.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) Clear(c *gin.Context) {
	if err := h.store.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cleared"})
}
