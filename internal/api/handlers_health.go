// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/file-loader/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionManager
	store    storage.Store
	journal  Journal
	catalog  CatalogStatus
}

// NewHealthHandler creates a new health handler. journal and catalog may be nil.
func NewHealthHandler(version string, sessions SessionManager, store storage.Store, journal Journal, catalog CatalogStatus) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
		store:    store,
		journal:  journal,
		catalog:  catalog,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.sessions != nil {
		resp["sessions"] = h.sessions.Count()
		resp["categories"] = h.sessions.Catalog().Len()
	}
	if h.store != nil {
		if files, err := h.store.List(0); err == nil {
			resp["storedFiles"] = len(files)
		}
	}
	if h.catalog != nil {
		resp["catalog"] = h.catalog.Status()
	}
	if h.journal != nil {
		if counts, err := h.journal.CountByKind(c.Request().Context()); err == nil {
			resp["transitions"] = counts
		}
	}
	return c.JSON(http.StatusOK, resp)
}
