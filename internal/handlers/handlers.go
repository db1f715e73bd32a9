package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/services"
	"github.com/fieldops/dcinstall-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Installation *InstallationHandler
	Attachment   *AttachmentHandler
	Audit        *AuditHandler
}

// parseListQuery reads pagination params. Malformed or non-positive values
// fall back to the defaults instead of erroring.
func parseListQuery(c *gin.Context) *repository.ListQuery {
	query := repository.NewListQuery()
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		query.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20")); err == nil && perPage > 0 {
		query.PerPage = perPage
	}
	return query
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, storage *storage.LocalStorage) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Installation: NewInstallationHandler(svcs.Installation),
		Attachment:   NewAttachmentHandler(svcs.Attachment),
		Audit:        NewAuditHandler(svcs.Audit),
	}
}
