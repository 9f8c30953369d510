package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/file-loader/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransition(t *testing.T) {
	m := New()

	m.RecordTransition(models.TransitionEvent{Kind: models.TransitionSlotBound, FileSize: 100})
	m.RecordTransition(models.TransitionEvent{Kind: models.TransitionSlotBound, FileSize: 50})
	m.RecordTransition(models.TransitionEvent{Kind: models.TransitionSlotCleared, FileSize: 100})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("slot_bound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("slot_cleared")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.bytesAccepted))
}

func TestRecordCatalogLoad(t *testing.T) {
	m := New()

	m.RecordCatalogLoad(3, 6)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.catalogSize))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.catalogSlots))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogLoads.WithLabelValues("ok")))

	m.RecordCatalogLoad(0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.catalogSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogLoads.WithLabelValues("empty")))
}

func TestSetActiveSessions(t *testing.T) {
	m := New()
	m.SetActiveSessions(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.activeSessions))
}

// rejectedError stands in for an application error type that only the
// installed error handler knows how to render.
type rejectedError struct{}

func (rejectedError) Error() string { return "rejected" }

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/widgets/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/missing/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.POST("/api/widgets/:id/file", func(c echo.Context) error {
		return rejectedError{}
	})
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if _, ok := err.(rejectedError); ok {
			c.JSON(http.StatusUnprocessableEntity, map[string]string{"code": "VALIDATION_FAILED"})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/widgets/a/file", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for _, path := range []string{"/api/widgets/a", "/api/widgets/b", "/missing/x"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/widgets/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/missing/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("POST", "/api/widgets/:id/file", "422")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("POST", "/api/widgets/:id/file", "200")))

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "file_loader_http_requests_total"))
}
