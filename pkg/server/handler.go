package server

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikeboe/prospect-research/pkg/chat"
	"github.com/mikeboe/prospect-research/pkg/research"
)

// JobService runs and stores research jobs.
type JobService interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	GetJobEvents(ctx context.Context, id uuid.UUID) ([]EventEntry, error)
	GetJobLogs(ctx context.Context, id uuid.UUID) ([]LogEntry, error)
	GetSession(ctx context.Context, id uuid.UUID) (*research.ResearchSession, error)
	CancelJob(ctx context.Context, id uuid.UUID) error
}

// ChatService holds briefing conversations.
type ChatService interface {
	CreateConversation(ctx context.Context, prospectID string) (*chat.Conversation, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	GetHistory(ctx context.Context, id uuid.UUID) ([]chat.Message, error)
	SendMessage(ctx context.Context, id uuid.UUID, content string) (iter.Seq2[chat.StreamEvent, error], error)
}

type Handler struct {
	Jobs JobService
	// Chat and MCP are optional; their routes are skipped when nil.
	Chat ChatService
	MCP  http.Handler
}

func NewHandler(jobs JobService, c ChatService, mcp http.Handler) *Handler {
	return &Handler{Jobs: jobs, Chat: c, MCP: mcp}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.MCP != nil {
		r.Any("/mcp", gin.WrapH(h.MCP))
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/research", h.createJob)
		api.GET("/research", h.listJobs)
		api.GET("/research/:id", h.getJob)
		api.DELETE("/research/:id", h.cancelJob)
		api.GET("/research/:id/events", h.getJobEvents)
		api.GET("/research/:id/logs", h.getJobLogs)
		api.GET("/research/:id/legacy", h.getLegacy)

		if h.Chat != nil {
			api.POST("/chat/conversations", h.createConversation)
			api.GET("/chat/conversations", h.listConversations)
			api.GET("/chat/conversations/:id/messages", h.getMessages)
			api.POST("/chat/conversations/:id/messages", h.sendMessage)
		}
	}
}

// parseID writes a 400 and returns false when the :id param is not a uuid.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

func jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrJobNotRunning), errors.Is(err, ErrSessionNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Jobs.CreateJob(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// Return empty list instead of null
	if jobs == nil {
		jobs = []Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) getJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	job, err := h.Jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) cancelJob(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Jobs.CancelJob(c.Request.Context(), id); err != nil {
		jobError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "cancelling"})
}

func (h *Handler) getJobEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	events, err := h.Jobs.GetJobEvents(c.Request.Context(), id)
	if err != nil {
		jobError(c, err)
		return
	}
	if events == nil {
		events = []EventEntry{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getJobLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	logs, err := h.Jobs.GetJobLogs(c.Request.Context(), id)
	if err != nil {
		jobError(c, err)
		return
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) getLegacy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	session, err := h.Jobs.GetSession(c.Request.Context(), id)
	if err != nil {
		jobError(c, err)
		return
	}
	c.JSON(http.StatusOK, research.ToLegacy(session))
}

func (h *Handler) createConversation(c *gin.Context) {
	var req struct {
		ProspectID string `json:"prospect_id"`
	}
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	conv, err := h.Chat.CreateConversation(c.Request.Context(), req.ProspectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) listConversations(c *gin.Context) {
	convs, err := h.Chat.ListConversations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) getMessages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	msgs, err := h.Chat.GetHistory(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) sendMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	next, err := h.Chat.SendMessage(c.Request.Context(), id, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for event, err := range next {
		if err != nil {
			writeSSE(c, chat.StreamEvent{Type: "error", Payload: err.Error()})
			return
		}
		if !writeSSE(c, event) {
			return
		}
	}
}

func writeSSE(c *gin.Context, event chat.StreamEvent) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(data)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
	return true
}
