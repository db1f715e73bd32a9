package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Entries
// @Description Get a paginated list of audit entries, newest first
// @Tags Audit
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param action query string false "Filter by action"
// @Param resource_type query string false "Filter by resource type"
// @Param severity query string false "Filter by severity"
// @Param actor_id query string false "Filter by actor ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param search_term query string false "Search in description, resource and actor"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := parseListQuery(c)

	filter := repository.AuditFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		Severity:     c.Query("severity"),
		ActorID:      c.Query("actor_id"),
		Search:       c.Query("search_term"),
	}

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// Include the whole end day
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.To = &end
		}
	}

	entries, total, err := h.auditService.List(c.Request.Context(), filter, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Audit Severity Summary
// @Description Get entry counts grouped by severity
// @Tags Audit
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /audit/summary [get]
func (h *AuditHandler) Summary(c *gin.Context) {
	summary, err := h.auditService.SeveritySummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// @Summary Clear Audit Trail
// @Description Delete all audit entries (admin only)
// @Tags Audit
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audit [delete]
func (h *AuditHandler) Clear(c *gin.Context) {
	deleted, err := h.auditService.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Audit trail cleared", "deleted": deleted})
}
