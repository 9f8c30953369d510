// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/file-loader/backend/internal/catalog"
	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/session"
	"github.com/labstack/echo/v4"
)

// WidgetHandler handles widget session operations
type WidgetHandler interface {
	HandleCreateWidget(c echo.Context) error
	HandleListWidgets(c echo.Context) error
	HandleGetWidget(c echo.Context) error
	HandleDeleteWidget(c echo.Context) error
	HandleOfferFile(c echo.Context) error
	HandleChooseCategory(c echo.Context) error
	HandleClearSlot(c echo.Context) error
	HandleGetFiles(c echo.Context) error
	HandleGetSlotContent(c echo.Context) error
	HandleGetHistory(c echo.Context) error
}

// CatalogHandler serves the loaded category catalog
type CatalogHandler interface {
	HandleGetCategories(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// StateStreamHandler pushes widget state over a websocket
type StateStreamHandler interface {
	HandleStateStream(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() *session.SessionState
	Get(id string) (*session.SessionState, error)
	Delete(id string) error
	List() []models.SessionInfo
	Count() int
	Touch(id string) bool
	Catalog() *catalog.Catalog
}

// Journal reads and purges the transition journal
type Journal interface {
	History(ctx context.Context, sessionID string, limit int) ([]models.TransitionEvent, error)
	CountByKind(ctx context.Context) (map[models.TransitionKind]int, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// CatalogStatus reports how the current catalog was obtained
type CatalogStatus interface {
	Status() catalog.Status
}

var _ SessionManager = (*session.Manager)(nil)
