package agentlog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relay/internal/logger"
	"relay/pkg/errors"
)

type Handler struct {
	Service *Service
	Logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id/logs", h.GetLogs)
			sessions.GET("/:id/summary", h.GetSummary)
			sessions.GET("/:id/timeline", h.GetTimeline)
			sessions.DELETE("/:id/logs", h.DeleteLogs)
		}

		v1.GET("/agents/performance", h.AgentPerformance)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// GetLogs godoc
// @Summary      List session log entries
// @Description  Entries in timestamp order, optionally filtered by agent or message type
// @Tags         logs
// @Produce      json
// @Param        id            path      string  true   "Session id"
// @Param        agent_type    query     string  false  "Agent type filter"
// @Param        message_type  query     string  false  "Message type filter"
// @Param        limit         query     int     false  "Result limit"
// @Success      200  {array}  LogEntry
// @Router       /sessions/{id}/logs [get]
func (h *Handler) GetLogs(c *gin.Context) {
	filter := ListFilter{
		AgentType:   c.Query("agent_type"),
		MessageType: c.Query("message_type"),
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.handleError(c, errors.ErrValidation.WithDetail("message", "limit must be a positive integer"))
			return
		}
		filter.Limit = parsed
	}

	entries, err := h.Service.GetLogs(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GetSummary godoc
// @Summary      Session summary
// @Description  Histogram, agent activity, stages, errors, key events and key metrics
// @Tags         logs
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  Summary
// @Router       /sessions/{id}/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.Service.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetTimeline godoc
// @Summary      Session stage timeline
// @Description  Contiguous processing-stage segments in timestamp order
// @Tags         logs
// @Produce      json
// @Param        id   path     string  true  "Session id"
// @Success      200  {array}  TimelineSegment
// @Router       /sessions/{id}/timeline [get]
func (h *Handler) GetTimeline(c *gin.Context) {
	timeline, err := h.Service.GetTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if timeline == nil {
		timeline = []TimelineSegment{}
	}
	c.JSON(http.StatusOK, timeline)
}

// DeleteLogs godoc
// @Summary      Delete session log entries
// @Tags         logs
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  map[string]interface{}
// @Router       /sessions/{id}/logs [delete]
func (h *Handler) DeleteLogs(c *gin.Context) {
	deleted, err := h.Service.DeleteLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// AgentPerformance godoc
// @Summary      Cross-session agent performance
// @Tags         logs
// @Produce      json
// @Success      200  {array}  AgentPerformance
// @Router       /agents/performance [get]
func (h *Handler) AgentPerformance(c *gin.Context) {
	report, err := h.Service.AgentPerformanceReport(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if report == nil {
		report = []AgentPerformance{}
	}
	c.JSON(http.StatusOK, report)
}
