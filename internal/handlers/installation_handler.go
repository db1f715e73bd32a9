package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dcinstall-api/internal/middleware"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/services"
)

type InstallationHandler struct {
	installationService *services.InstallationService
}

func NewInstallationHandler(installationService *services.InstallationService) *InstallationHandler {
	return &InstallationHandler{installationService: installationService}
}

// @Summary List Installations
// @Description Get a paginated list of installation records
// @Tags Installations
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by serial number, datacenter or city"
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param technician_id query int false "Filter by assigned technician"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /installations [get]
func (h *InstallationHandler) Index(c *gin.Context) {
	query := parseListQuery(c)
	query.Search = c.Query("search_term")
	query.Filters["status"] = c.Query("status")
	query.Filters["priority"] = c.Query("priority")

	// Clients only see their own records; technicians only their assignments.
	currentID := strconv.FormatUint(uint64(middleware.GetUserID(c)), 10)
	switch middleware.GetUserRole(c) {
	case models.RoleClient:
		query.Filters["client_id"] = currentID
	case models.RoleUser:
		query.Filters["technician_id"] = currentID
	default:
		query.Filters["client_id"] = c.Query("client_id")
		query.Filters["technician_id"] = c.Query("technician_id")
	}

	installations, total, err := h.installationService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []models.InstallationResponse
	for _, i := range installations {
		responses = append(responses, i.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"installations": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Installation
// @Description Get an installation record by ID
// @Tags Installations
// @Accept json
// @Produce json
// @Param id path int true "Installation ID"
// @Success 200 {object} models.InstallationResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /installations/{id} [get]
func (h *InstallationHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	installation, err := h.installationService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
		return
	}

	if !h.canAccess(c, installation) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this record"})
		return
	}

	h.installationService.RecordView(c.Request.Context(), installation)
	c.JSON(http.StatusOK, gin.H{"installation": installation.ToResponse()})
}

type CreateInstallationRequest struct {
	SerialNumber    string `json:"serial_number" binding:"required"`
	ClientID        uint   `json:"client_id" binding:"required"`
	TechnicianID    *uint  `json:"technician_id"`
	Priority        string `json:"priority"`
	EquipmentVendor string `json:"equipment_vendor"`
	EquipmentModel  string `json:"equipment_model"`
	Datacenter      string `json:"datacenter" binding:"required"`
	RackLocation    string `json:"rack_location"`
	Address         string `json:"address"`
	City            string `json:"city"`
	DeliveryDate    string `json:"delivery_date"`
	Notes           string `json:"notes"`
}

// @Summary Create Installation
// @Description Create a new installation record
// @Tags Installations
// @Accept json
// @Produce json
// @Param request body CreateInstallationRequest true "Installation Data"
// @Success 201 {object} models.InstallationResponse
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /installations [post]
func (h *InstallationHandler) Create(c *gin.Context) {
	var req CreateInstallationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creatorID := middleware.GetUserID(c)
	installation := &models.DCInstallation{
		SerialNumber:    req.SerialNumber,
		ClientID:        req.ClientID,
		TechnicianID:    req.TechnicianID,
		Priority:        req.Priority,
		EquipmentVendor: req.EquipmentVendor,
		EquipmentModel:  req.EquipmentModel,
		Datacenter:      req.Datacenter,
		RackLocation:    req.RackLocation,
		Address:         req.Address,
		City:            req.City,
		CreatedBy:       &creatorID,
	}
	if req.DeliveryDate != "" {
		if d, err := time.Parse("2006-01-02", req.DeliveryDate); err == nil {
			installation.DeliveryDate = &d
		}
	}
	if req.Notes != "" {
		installation.Notes = &req.Notes
	}

	if err := h.installationService.Create(c.Request.Context(), installation); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Serial number is already registered"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"installation": installation.ToResponse(), "message": "Installation created successfully"})
}

// @Summary Update Installation
// @Description Update installation record details
// @Tags Installations
// @Accept json
// @Produce json
// @Param id path int true "Installation ID"
// @Param request body map[string]string true "Installation Fields"
// @Success 200 {object} models.InstallationResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /installations/{id} [put]
func (h *InstallationHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := &models.DCInstallation{}
	if v, ok := req["priority"].(string); ok {
		updates.Priority = v
	}
	if v, ok := req["equipment_vendor"].(string); ok {
		updates.EquipmentVendor = v
	}
	if v, ok := req["equipment_model"].(string); ok {
		updates.EquipmentModel = v
	}
	if v, ok := req["datacenter"].(string); ok {
		updates.Datacenter = v
	}
	if v, ok := req["rack_location"].(string); ok {
		updates.RackLocation = v
	}
	if v, ok := req["address"].(string); ok {
		updates.Address = v
	}
	if v, ok := req["city"].(string); ok {
		updates.City = v
	}
	if v, ok := req["delivery_date"].(string); ok {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			updates.DeliveryDate = &d
		}
	}
	if v, ok := req["notes"].(string); ok {
		updates.Notes = &v
	}

	installation, err := h.installationService.Update(c.Request.Context(), uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"installation": installation.ToResponse(), "message": "Installation updated successfully"})
}

// @Summary Delete Installation
// @Description Soft delete an installation record
// @Tags Installations
// @Accept json
// @Produce json
// @Param id path int true "Installation ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /installations/{id} [delete]
func (h *InstallationHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	if err := h.installationService.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Installation deleted successfully"})
}

// Schedule fires the "schedule" lifecycle event.
func (h *InstallationHandler) Schedule(c *gin.Context) { h.transition(c, "schedule") }

// Deliver fires the "deliver" lifecycle event.
func (h *InstallationHandler) Deliver(c *gin.Context) { h.transition(c, "deliver") }

// Install fires the "install" lifecycle event.
func (h *InstallationHandler) Install(c *gin.Context) { h.transition(c, "install") }

// Verify fires the "verify" lifecycle event.
func (h *InstallationHandler) Verify(c *gin.Context) { h.transition(c, "verify") }

// Cancel fires the "cancel" lifecycle event.
func (h *InstallationHandler) Cancel(c *gin.Context) { h.transition(c, "cancel") }

// Reopen fires the "reopen" lifecycle event.
func (h *InstallationHandler) Reopen(c *gin.Context) { h.transition(c, "reopen") }

func (h *InstallationHandler) transition(c *gin.Context, event string) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	installation, err := h.installationService.Transition(c.Request.Context(), uint(id), event)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
			return
		}
		if errors.Is(err, services.ErrInvalidState) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"installation": installation.ToResponse(), "message": "Status updated"})
}

type AssignRequest struct {
	TechnicianID uint `json:"technician_id" binding:"required"`
}

// @Summary Assign Technician
// @Description Assign a technician to an installation
// @Tags Installations
// @Accept json
// @Produce json
// @Param id path int true "Installation ID"
// @Param request body AssignRequest true "Technician"
// @Success 200 {object} models.InstallationResponse
// @Security BearerAuth
// @Router /installations/{id}/assign [put]
func (h *InstallationHandler) Assign(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	installation, err := h.installationService.Assign(c.Request.Context(), uint(id), req.TechnicianID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"installation": installation.ToResponse(), "message": "Technician assigned"})
}

type ShareRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary Share Installation
// @Description Share an installation record by email
// @Tags Installations
// @Accept json
// @Produce json
// @Param id path int true "Installation ID"
// @Param request body ShareRequest true "Recipient"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /installations/{id}/share [post]
func (h *InstallationHandler) Share(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.installationService.Share(c.Request.Context(), uint(id), req.Email); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Installation shared"})
}

// canAccess checks record-level visibility: admins see everything, clients
// their own records, technicians their assignments.
func (h *InstallationHandler) canAccess(c *gin.Context, installation *models.DCInstallation) bool {
	switch middleware.GetUserRole(c) {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return installation.ClientID == middleware.GetUserID(c)
	default:
		return installation.TechnicianID != nil && *installation.TechnicianID == middleware.GetUserID(c)
	}
}
