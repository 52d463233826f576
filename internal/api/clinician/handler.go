package clinician

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/apierror"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/service"
)

// Handler handles clinician API requests
type Handler struct {
	adminService *service.AdminService
}

// NewHandler creates a new clinician handler
func NewHandler(adminService *service.AdminService) *Handler {
	return &Handler{adminService: adminService}
}

// RegisterRoutes registers clinician routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	psychiatrists := r.Group("/psychiatrists")
	{
		psychiatrists.POST("", h.CreatePsychiatrist)
		psychiatrists.GET("", h.ListPsychiatrists)
		psychiatrists.GET("/:id", h.GetPsychiatrist)
		psychiatrists.PUT("/:id", h.UpdatePsychiatrist)
	}

	sessions := r.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id/transcript", h.GetTranscript)
		sessions.GET("/:id/summary", h.GetSummary)
		sessions.GET("/:id/summary/pdf", h.GetSummaryPDF)
	}

	r.GET("/bookings", h.ListBookings)
	r.GET("/stats", h.GetStats)
}

// Psychiatrist handlers

func (h *Handler) CreatePsychiatrist(c *gin.Context) {
	var req domain.CreatePsychiatristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.adminService.CreatePsychiatrist(c.Request.Context(), &req)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPsychiatrists(c *gin.Context) {
	list, err := h.adminService.ListPsychiatrists(c.Request.Context())
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"psychiatrists": list})
}

func (h *Handler) GetPsychiatrist(c *gin.Context) {
	p, err := h.adminService.GetPsychiatrist(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePsychiatrist(c *gin.Context) {
	var req domain.UpdatePsychiatristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.adminService.UpdatePsychiatrist(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Session record handlers

func (h *Handler) ListSessions(c *gin.Context) {
	page, pageSize := pagination(c)
	result, err := h.adminService.ListSessions(c.Request.Context(), page, pageSize)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetTranscript(c *gin.Context) {
	messages, err := h.adminService.GetTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.adminService.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetSummaryPDF downloads the clinical summary as a PDF
func (h *Handler) GetSummaryPDF(c *gin.Context) {
	id := c.Param("id")
	out, err := h.adminService.SummaryPDF(c.Request.Context(), id)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="summary-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", out)
}

// Booking handlers

func (h *Handler) ListBookings(c *gin.Context) {
	page, pageSize := pagination(c)
	result, err := h.adminService.ListBookings(c.Request.Context(), page, pageSize)
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		apierror.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
