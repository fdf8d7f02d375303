package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContentHandler serves the sample resources used to exercise the access guard.
type ContentHandler struct{}

func NewContentHandler() *ContentHandler {
	return &ContentHandler{}
}

// Public handles GET /api/test/all.
func (h *ContentHandler) Public(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Public Content."})
}

// User handles GET /api/test/user. Requires any authenticated caller.
func (h *ContentHandler) User(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "User Content."})
}

// Admin handles GET /api/test/admin. Requires the admin role.
func (h *ContentHandler) Admin(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Admin Content."})
}
