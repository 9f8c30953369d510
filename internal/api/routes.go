// routes.go - Route registration helpers
package api

import (
	"github.com/file-loader/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         storage.Store
	Sessions      SessionManager
	Journal       Journal
	CatalogStatus CatalogStatus
	Logger        *log.Logger
	Version       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Catalog CatalogHandler
	Widget  WidgetHandler
	Stream  StateStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Sessions, deps.Store, deps.Journal, deps.CatalogStatus),
		Catalog: NewCatalogHandler(deps.Sessions),
		Widget:  NewWidgetHandler(deps.Store, deps.Sessions, deps.Journal, deps.Logger),
		Stream:  NewWebSocketHandler(deps.Sessions, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/categories", handlers.Catalog.HandleGetCategories)

	widgetGroup := apiGroup.Group("/widgets")
	widgetGroup.POST("", handlers.Widget.HandleCreateWidget)
	widgetGroup.GET("", handlers.Widget.HandleListWidgets)
	widgetGroup.GET("/:id", handlers.Widget.HandleGetWidget)
	widgetGroup.DELETE("/:id", handlers.Widget.HandleDeleteWidget)
	widgetGroup.POST("/:id/file", handlers.Widget.HandleOfferFile)
	widgetGroup.POST("/:id/category", handlers.Widget.HandleChooseCategory)
	widgetGroup.DELETE("/:id/slots/:index", handlers.Widget.HandleClearSlot)
	widgetGroup.GET("/:id/slots/:index/content", handlers.Widget.HandleGetSlotContent)
	widgetGroup.GET("/:id/files", handlers.Widget.HandleGetFiles)
	widgetGroup.GET("/:id/history", handlers.Widget.HandleGetHistory)
	widgetGroup.GET("/:id/ws", handlers.Stream.HandleStateStream)
}
