package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"voice-agent-dashboard/internal/agents"
	"voice-agent-dashboard/internal/analytics"
	"voice-agent-dashboard/internal/voices"
	"voice-agent-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Agents    *agents.Service
	Analytics *analytics.Service

	// Ping checks the local store for /healthz. Optional.
	Ping func(ctx context.Context) error
}

const headerIdempotencyKey = "Idempotency-Key"

func (h Handlers) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			logger.FromGin(c).Error("health check failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Agents ---

func (h Handlers) ListAgents(c *gin.Context) {
	list, err := h.Agents.ListAgents(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

type createAgentRequest struct {
	Name string `json:"name"`
}

func (h Handlers) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rec, err := h.Agents.CreateAgent(c.Request.Context(), req.Name, c.GetHeader(headerIdempotencyKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h Handlers) GetAgent(c *gin.Context) {
	cfg, err := h.Agents.GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if cfg == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "agent not found or unavailable"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type updateAgentRequest struct {
	Name           string `json:"name"`
	WelcomeMessage string `json:"welcome_message"`
	SystemPrompt   string `json:"system_prompt"`
	VoiceID        string `json:"voice_id"`
	VoiceName      string `json:"voice_name"`
}

func (h Handlers) UpdateAgent(c *gin.Context) {
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := c.Param("id")
	err := h.Agents.UpdateAgent(c.Request.Context(), id, agents.Config{
		ID:             id,
		Name:           req.Name,
		WelcomeMessage: req.WelcomeMessage,
		SystemPrompt:   req.SystemPrompt,
		VoiceID:        req.VoiceID,
		VoiceName:      req.VoiceName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h Handlers) DeleteAgent(c *gin.Context) {
	ok, err := h.Agents.DeleteAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": ok})
}

type testCallRequest struct {
	PhoneNumber string `json:"phone_number"`
}

func (h Handlers) InitiateTestCall(c *gin.Context) {
	var req testCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Agents.InitiateTestCall(c.Request.Context(), c.Param("id"), req.PhoneNumber); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "requested"})
}

func (h Handlers) ListExecutions(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size")
	if !ok {
		return
	}
	p, err := h.Analytics.ListExecutions(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Analytics ---

func (h Handlers) AnalyticsSummary(c *gin.Context) {
	s, err := h.Analytics.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) ExecutionTimestamps(c *gin.Context) {
	ts, err := h.Analytics.AllExecutionTimestamps(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timestamps": ts})
}

func (h Handlers) CallsByDate(c *gin.Context) {
	r, err := analytics.ParseRange(c.Query("range"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "range must be one of 7d, 30d, 90d"})
		return
	}
	out, err := h.Analytics.CallsByDate(c.Request.Context(), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Voices ---

func (h Handlers) ListVoices(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(int(time.Hour.Seconds())))
	c.JSON(http.StatusOK, gin.H{"voices": voices.Catalog()})
}

// queryInt reads an optional positive integer. It writes a 400 and returns
// false on bad input.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be a positive integer"})
		return 0, false
	}
	return n, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, agents.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, agents.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, agents.ErrNotFound):
		status, msg = http.StatusNotFound, "agent not found"
	case errors.Is(err, agents.ErrInProgress):
		status, msg = http.StatusConflict, "a create with this idempotency key is still in progress"
	case errors.Is(err, agents.ErrThrottled):
		status, msg = http.StatusTooManyRequests, "a test call for this agent was placed recently"
	case errors.Is(err, analytics.ErrPageLimit), errors.Is(err, analytics.ErrProtocol):
		status, msg = http.StatusBadGateway, "call history unavailable"
	case errors.Is(err, agents.ErrUpstream):
		status, msg = http.StatusBadGateway, "voice platform request failed"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
