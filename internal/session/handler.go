package session

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/errors"
)

type Handler struct {
	Registry *Registry
	Archive  Archive
	Logger   logger.Logger
}

func NewHandler(registry *Registry, archive Archive, log logger.Logger) *Handler {
	return &Handler{
		Registry: registry,
		Archive:  archive,
		Logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("", h.ListSessions)
			sessions.POST("/import", h.ImportSession)
			sessions.GET("/:id", h.GetSession)
			sessions.PUT("/:id/status", h.UpdateStatus)
			sessions.PUT("/:id/progress", h.UpdateProgress)
			sessions.GET("/:id/export", h.ExportSession)
			sessions.DELETE("/:id", h.DeleteSession)
		}

		v1.GET("/statistics", h.GetStatistics)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

// CreateSession godoc
// @Summary      Create a session
// @Description  Register a new pipeline run; an id is generated when absent
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        session  body      CreateSessionRequest  true  "Session data"
// @Success      201      {object}  Session
// @Failure      400      {object}  map[string]interface{}
// @Router       /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sessionID := h.Registry.Create(c.Request.Context(), req)
	sess, err := h.Registry.Get(sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// GetSession godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  Session
// @Failure      404  {object}  map[string]interface{}
// @Router       /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.Registry.Get(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ListSessions godoc
// @Summary      List sessions
// @Description  Sessions sorted by last update, optionally filtered
// @Tags         sessions
// @Produce      json
// @Param        status      query     string  false  "Status filter"
// @Param        input_type  query     string  false  "Input type filter"
// @Param        limit       query     int     false  "Result limit"
// @Success      200  {array}  Session
// @Router       /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	limit := constants.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.handleError(c, errors.ErrValidation.WithDetail("message", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	sessions := h.Registry.List(ListFilter{
		Status:    Status(c.Query("status")),
		InputType: c.Query("input_type"),
		Limit:     limit,
	})
	c.JSON(http.StatusOK, sessions)
}

// UpdateStatus godoc
// @Summary      Update session status
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Session id"
// @Param        update  body      UpdateStatusRequest  true  "Status update"
// @Success      200     {object}  Session
// @Failure      404     {object}  map[string]interface{}
// @Router       /sessions/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sessionID := c.Param("id")
	if err := h.Registry.UpdateStatus(c.Request.Context(), sessionID, req.Status, req.ErrorMessage, req.Result); err != nil {
		h.handleError(c, err)
		return
	}

	sess, err := h.Registry.Get(sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// UpdateProgress godoc
// @Summary      Update session progress
// @Description  Progress is clamped to the range 0..100
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id      path      string                 true  "Session id"
// @Param        update  body      UpdateProgressRequest  true  "Progress update"
// @Success      200     {object}  Session
// @Failure      404     {object}  map[string]interface{}
// @Router       /sessions/{id}/progress [put]
func (h *Handler) UpdateProgress(c *gin.Context) {
	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sessionID := c.Param("id")
	if err := h.Registry.UpdateProgress(c.Request.Context(), sessionID, req.Progress); err != nil {
		h.handleError(c, err)
		return
	}

	sess, err := h.Registry.Get(sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession godoc
// @Summary      Delete a session
// @Description  Removes the session and its stored artifacts
// @Tags         sessions
// @Produce      json
// @Param        id   path  string  true  "Session id"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.Registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportSession godoc
// @Summary      Export a session
// @Description  Serializes the session and, when an archive is configured, persists the export
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  ExportedSession
// @Failure      404  {object}  map[string]interface{}
// @Router       /sessions/{id}/export [get]
func (h *Handler) ExportSession(c *gin.Context) {
	data, err := h.Registry.Export(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if h.Archive != nil {
		if err := h.Archive.Save(c.Request.Context(), data); err != nil {
			h.Logger.WarnwCtx(c.Request.Context(), "Failed to archive exported session",
				"session_id", data.Session.ID,
				"error", err,
			)
		}
	}

	c.JSON(http.StatusOK, data)
}

// ImportSession godoc
// @Summary      Import a session
// @Description  Reconstructs a previously exported session, status and timestamps included
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        export  body      ExportedSession  true  "Exported session"
// @Success      201     {object}  Session
// @Failure      400     {object}  map[string]interface{}
// @Router       /sessions/import [post]
func (h *Handler) ImportSession(c *gin.Context) {
	var data ExportedSession
	if err := c.ShouldBindJSON(&data); err != nil {
		h.handleError(c, errors.ErrValidation.WithCause(err))
		return
	}

	sessionID, err := h.Registry.Import(c.Request.Context(), &data)
	if err != nil {
		h.handleError(c, err)
		return
	}

	sess, err := h.Registry.Get(sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetStatistics godoc
// @Summary      Session statistics
// @Description  Totals, by-status histogram and derived active/completed/failed counts
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  Statistics
// @Router       /statistics [get]
func (h *Handler) GetStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.Statistics())
}
