package routes

import (
	"bytes"
	"net/http"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap/render"
	"github.com/dw-outreach/outreach/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetViewHandler lays out the graph for the selected clients and returns
// positions, overlaps and metrics in one document.
func GetViewHandler(c echo.Context) error {
	a := app(c)
	q, err := parseViewQuery(c, a)
	if err != nil {
		return badRequest(c, err)
	}

	g, err := a.Store.GetGraph(c.Request().Context())
	if err != nil {
		logger.Error("[Network] Failed to load graph", "err", err)
		return errorJSON(c, http.StatusBadGateway, "Failed to load network graph")
	}
	return c.JSON(http.StatusOK, buildView(g, q, "json"))
}

func GetViewSVGHandler(c echo.Context) error {
	a := app(c)
	q, err := parseViewQuery(c, a)
	if err != nil {
		return badRequest(c, err)
	}

	g, err := a.Store.GetGraph(c.Request().Context())
	if err != nil {
		logger.Error("[Network] Failed to load graph", "err", err)
		return errorJSON(c, http.StatusBadGateway, "Failed to load network graph")
	}
	view := buildView(g, q, "svg")

	var buf bytes.Buffer
	if err := render.SVG(&buf, view, render.Options{Title: "Access map", HideLabels: q.hideLabels}); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	return c.Blob(http.StatusOK, "image/svg+xml", buf.Bytes())
}
