package api

import (
	"github.com/labstack/echo/v4"
)

// errorBody is the error envelope every endpoint returns. RemoteVersion is
// set only on version conflicts so clients can surface the current version.
type errorBody struct {
	Error         string `json:"error"`
	RemoteVersion int64  `json:"remote_version,omitempty"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorBody{Error: msg})
}
