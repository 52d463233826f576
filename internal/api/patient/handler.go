package patient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/apierror"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles patient session requests
type Handler struct {
	intake *service.IntakeService
	logger *zap.Logger
}

// NewHandler creates a new patient handler
func NewHandler(intake *service.IntakeService, logger *zap.Logger) *Handler {
	return &Handler{intake: intake, logger: logger}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.Start)

	s := r.Group("/:id")
	{
		s.GET("", h.Get)
		s.DELETE("", h.End)
		s.POST("/messages", h.Message)
		s.POST("/messages/stream", h.MessageStream)
		s.GET("/ws", h.Socket)
		s.GET("/summary", h.GetSummary)
		s.PUT("/summary", h.EditSummary)
		s.GET("/recommendations", h.Recommendations)
		s.POST("/selection", h.Select)
		s.PUT("/booking/draft", h.UpdateDraft)
		s.POST("/booking/approve", h.Approve)
		s.POST("/reset", h.Reset)
	}
}

// Start opens a session and returns the greeting
func (h *Handler) Start(c *gin.Context) {
	resp, err := h.intake.Start(c.Request.Context())
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.intake.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Message handles one turn
func (h *Handler) Message(c *gin.Context) {
	var req domain.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.intake.Turn(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MessageStream handles one turn delivered as server-sent events
func (h *Handler) MessageStream(c *gin.Context) {
	var req domain.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stream, err := h.intake.StreamTurn(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return false
			}
			data, _ := json.Marshal(chunk)
			writeSSE(w, chunk.Type, string(data))
			return chunk.Type != "done"
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Socket runs turns over a websocket. Each inbound message is one turn and
// replies are written in the order the messages arrived.
func (h *Handler) Socket(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.intake.Get(c.Request.Context(), id); err != nil {
		apierror.Write(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	for {
		var req domain.TurnRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket closed", zap.String("session_id", id), zap.Error(err))
			}
			return
		}

		var out any
		resp, err := h.intake.Turn(ctx, id, req.Message)
		if err != nil {
			h.logger.Warn("websocket turn failed", zap.String("session_id", id), zap.Error(err))
			out = apierror.Body(err)
		} else {
			out = resp
		}
		if err := conn.WriteJSON(out); err != nil {
			h.logger.Warn("websocket write failed", zap.String("session_id", id), zap.Error(err))
			return
		}
	}
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.intake.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// EditSummary applies edits from the review form
func (h *Handler) EditSummary(c *gin.Context) {
	var edit domain.SummaryEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.intake.EditSummary(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Recommendations(c *gin.Context) {
	matches, err := h.intake.Recommendations(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": matches})
}

func (h *Handler) Select(c *gin.Context) {
	var req domain.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.intake.Select(c.Request.Context(), c.Param("id"), req.PsychiatristID)
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateDraft(c *gin.Context) {
	var email domain.OutreachEmail
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.intake.UpdateDraft(c.Request.Context(), c.Param("id"), email)
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Approve(c *gin.Context) {
	view, err := h.intake.ApproveBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Reset(c *gin.Context) {
	view, err := h.intake.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// End discards the session's live state
func (h *Handler) End(c *gin.Context) {
	if err := h.intake.End(c.Request.Context(), c.Param("id")); err != nil {
		apierror.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session ended"})
}

func writeSSE(w io.Writer, eventType, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
