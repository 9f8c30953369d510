// handlers_catalog.go - Category catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	sessions SessionManager
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(sessions SessionManager) CatalogHandler {
	return &CatalogHandlerImpl{sessions: sessions}
}

// HandleGetCategories returns the catalog with full quotas
func (h *CatalogHandlerImpl) HandleGetCategories(c echo.Context) error {
	cat := h.sessions.Catalog()
	return respond(c, http.StatusOK, map[string]interface{}{
		"categories": cat.Categories(),
		"totalSlots": cat.TotalSlots(),
	})
}
