package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is returned when the client asks for it in Accept.
const MIMEApplicationMsgpack = "application/msgpack"

// respond writes v as msgpack when the client accepts it, JSON otherwise.
func respond(c echo.Context, status int, v interface{}) error {
	if !wantsMsgpack(c.Request()) {
		return c.JSON(status, v)
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, data)
}

func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEApplicationMsgpack) || strings.Contains(accept, "application/x-msgpack")
}
