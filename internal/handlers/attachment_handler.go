package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dcinstall-api/internal/middleware"
	"github.com/fieldops/dcinstall-api/internal/models"
	"github.com/fieldops/dcinstall-api/internal/services"
)

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// @Summary List Attachments
// @Description List attachments of an installation record
// @Tags Attachments
// @Produce json
// @Param id path int true "Installation ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /installations/{id}/attachments [get]
func (h *AttachmentHandler) Index(c *gin.Context) {
	installationID, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	attachments, err := h.attachmentService.FindByInstallation(c.Request.Context(), uint(installationID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]models.AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		responses = append(responses, a.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"attachments": responses})
}

// @Summary Upload Attachment
// @Description Upload a file attachment to an installation record
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Installation ID"
// @Param file formData file true "File"
// @Success 201 {object} models.AttachmentResponse
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /installations/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	installationID, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	uploaderID := middleware.GetUserID(c)
	attachment, err := h.attachmentService.Upload(c.Request.Context(), uint(installationID), file, header, uploaderID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Installation not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attachment": attachment.ToResponse(), "message": "File uploaded successfully"})
}

// @Summary Download Attachment
// @Description Download an attachment file
// @Tags Attachments
// @Produce octet-stream
// @Param attachment_id path int true "Attachment ID"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /attachments/{attachment_id}/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("attachment_id"), 10, 32)

	attachment, f, err := h.attachmentService.Download(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", "attachment; filename=\""+attachment.FileName+"\"")
	c.Header("Content-Type", attachment.ContentType)
	c.Header("Content-Length", strconv.FormatInt(attachment.ByteSize, 10))

	http.ServeContent(c.Writer, c.Request, attachment.FileName, attachment.CreatedAt, f)
}

// @Summary Delete Attachment
// @Description Delete an attachment and its stored file
// @Tags Attachments
// @Produce json
// @Param attachment_id path int true "Attachment ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /attachments/{attachment_id} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("attachment_id"), 10, 32)
	if err := h.attachmentService.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}
