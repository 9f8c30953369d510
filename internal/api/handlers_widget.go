// handlers_widget.go - Widget session and transition handlers
package api

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/file-loader/backend/internal/models"
	"github.com/file-loader/backend/internal/session"
	"github.com/file-loader/backend/internal/slots"
	"github.com/file-loader/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const defaultHistoryLimit = 100

// WidgetHandlerImpl implements the WidgetHandler interface
type WidgetHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
	journal  Journal
	logger   *log.Logger
}

// NewWidgetHandler creates a new widget handler. journal may be nil.
func NewWidgetHandler(store storage.Store, sessions SessionManager, journal Journal, logger *log.Logger) WidgetHandler {
	return &WidgetHandlerImpl{
		store:    store,
		sessions: sessions,
		journal:  journal,
		logger:   logger,
	}
}

// HandleCreateWidget starts a widget session sized from the catalog
func (h *WidgetHandlerImpl) HandleCreateWidget(c echo.Context) error {
	s := h.sessions.Create()
	return respond(c, http.StatusCreated, s.Controller.State())
}

// HandleListWidgets lists live widget sessions
func (h *WidgetHandlerImpl) HandleListWidgets(c echo.Context) error {
	return respond(c, http.StatusOK, h.sessions.List())
}

// HandleGetWidget returns the render-ready widget state
func (h *WidgetHandlerImpl) HandleGetWidget(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, s.Controller.State())
}

// HandleDeleteWidget discards a session and every file it holds.
// With ?purge=true its journal history is removed as well.
func (h *WidgetHandlerImpl) HandleDeleteWidget(c echo.Context) error {
	id := c.Param("id")
	purge := false
	if raw := c.QueryParam("purge"); raw != "" {
		var err error
		if purge, err = strconv.ParseBool(raw); err != nil {
			return NewValidationError("purge")
		}
	}

	if err := h.sessions.Delete(id); err != nil {
		return mapWidgetError(err, id)
	}
	if purge && h.journal != nil {
		if err := h.journal.DeleteSession(c.Request().Context(), id); err != nil {
			return NewInternalError("failed to purge history", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleOfferFile stores the uploaded file and offers it to the active slot
func (h *WidgetHandlerImpl) HandleOfferFile(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	mimeType, err := detectMimeType(fh, src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	info, err := h.store.Save(fh.Filename, mimeType, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	out, err := s.Controller.OfferFile(info.Descriptor())
	if err != nil {
		h.discard(info.ID)
		return h.transitionError(err, c.Param("id"))
	}
	h.release(out.Released)
	s.Publish()

	return respond(c, http.StatusOK, s.Controller.State())
}

// HandleChooseCategory assigns a category to the active slot
func (h *WidgetHandlerImpl) HandleChooseCategory(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req chooseCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	out, err := s.Controller.ChooseCategory(req.Category)
	h.release(out.Released)
	if err != nil {
		if out.Released != nil {
			s.Publish()
		}
		return h.transitionError(err, c.Param("id"))
	}
	s.Publish()

	return respond(c, http.StatusOK, s.Controller.State())
}

// HandleClearSlot unbinds a slot and drops its file
func (h *WidgetHandlerImpl) HandleClearSlot(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}

	file, err := s.Controller.ClearSlot(index)
	if err != nil {
		return h.transitionError(err, c.Param("id"))
	}
	h.release(file)
	s.Publish()

	return respond(c, http.StatusOK, s.Controller.State())
}

// HandleGetFiles returns the accepted-files list
func (h *WidgetHandlerImpl) HandleGetFiles(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, s.Controller.Files())
}

// HandleGetSlotContent streams the file bound to a slot
func (h *WidgetHandlerImpl) HandleGetSlotContent(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return NewValidationError("index")
	}

	var file *models.FileDescriptor
	for _, view := range s.Controller.State().Slots {
		if view.Index == index {
			file = view.File
		}
	}
	if file == nil {
		return NewNotFoundError("file in slot", c.Param("index"))
	}

	rc, err := h.store.Open(file.ID)
	if err != nil {
		return NewNotFoundError("file", file.ID)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	return c.Stream(http.StatusOK, file.MimeType, rc)
}

// HandleGetHistory returns the journaled transitions of a session
func (h *WidgetHandlerImpl) HandleGetHistory(c echo.Context) error {
	if h.journal == nil {
		return respond(c, http.StatusOK, []models.TransitionEvent{})
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	events, err := h.journal.History(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	return respond(c, http.StatusOK, events)
}

func (h *WidgetHandlerImpl) lookup(c echo.Context) (*session.SessionState, error) {
	id := c.Param("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		return nil, mapWidgetError(err, id)
	}
	return s, nil
}

func (h *WidgetHandlerImpl) transitionError(err error, id string) error {
	if errors.Is(err, slots.ErrAlreadyBound) || errors.Is(err, slots.ErrNotBound) {
		h.logger.Errorf("[Widget %s] invariant violation: %v", shortID(id), err)
	}
	return mapWidgetError(err, id)
}

// release drops the stored content of a file the widget no longer holds.
func (h *WidgetHandlerImpl) release(file *models.FileDescriptor) {
	if file != nil {
		h.discard(file.ID)
	}
}

func (h *WidgetHandlerImpl) discard(id string) {
	if err := h.store.Delete(id); err != nil {
		h.logger.Warnf("failed to delete stored file %s: %v", id, err)
	}
}

// ReleaseToStore returns a session release hook that deletes file content.
func ReleaseToStore(store storage.Store, logger *log.Logger) session.ReleaseFunc {
	return func(sessionID string, files []*models.FileDescriptor) {
		for _, f := range files {
			if err := store.Delete(f.ID); err != nil {
				logger.Warnf("[Widget %s] failed to delete stored file %s: %v", shortID(sessionID), f.ID, err)
			}
		}
	}
}

// detectMimeType prefers the part's Content-Type and sniffs the content
// when the browser sent none. src is rewound afterwards.
func detectMimeType(fh *multipart.FileHeader, src multipart.File) (string, error) {
	if ct := fh.Header.Get(echo.HeaderContentType); ct != "" && ct != echo.MIMEOctetStream {
		if i := strings.Index(ct, ";"); i >= 0 {
			ct = ct[:i]
		}
		return strings.TrimSpace(ct), nil
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(src, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	ct := http.DetectContentType(buf[:n])
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct, nil
}

// Request types

type chooseCategoryRequest struct {
	Category string `json:"category"`
}

func (r *chooseCategoryRequest) validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return NewValidationError("category")
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
