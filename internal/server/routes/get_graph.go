package routes

import (
	"net/http"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns the stored network. When the store fails the
// response is still a graph, empty, with the failure in an error field, so
// the map can render its empty state.
func GetGraphHandler(c echo.Context) error {
	type graphResponse struct {
		accessmap.Graph
		Error string `json:"error,omitempty"`
	}

	g, err := app(c).Store.GetGraph(c.Request().Context())
	if err != nil {
		logger.Error("[Network] Failed to load graph", "err", err)
		return c.JSON(http.StatusOK, graphResponse{Graph: store.EmptyGraph(), Error: "Failed to load network graph"})
	}
	return c.JSON(http.StatusOK, graphResponse{Graph: g})
}
