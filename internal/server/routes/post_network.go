package routes

import (
	"errors"
	"net/http"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func CreateClientHandler(c echo.Context) error {
	type createClientBody struct {
		Name  string `json:"name" validate:"required"`
		Color string `json:"color" validate:"omitempty,hexcolor"`
	}

	data := new(createClientBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	a := app(c)
	client, err := a.Store.CreateClient(ctx, accessmap.Client{Name: data.Name, Color: data.Color})
	if err != nil {
		logger.Error("[Network] Failed to create client", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	publishGraphChanged(ctx, a, "client", 1)
	return c.JSON(http.StatusCreated, client)
}

func CreateEntityHandler(c echo.Context) error {
	type createEntityBody struct {
		Label string `json:"label" validate:"required"`
		Type  string `json:"type" validate:"omitempty,max=32"`
		Depth int    `json:"depth" validate:"gte=0"`
	}

	data := new(createEntityBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	a := app(c)
	entity, err := a.Store.CreateEntity(ctx, accessmap.Entity{
		Label: data.Label,
		Type:  accessmap.EntityType(data.Type),
		Depth: data.Depth,
	})
	if err != nil {
		logger.Error("[Network] Failed to create entity", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	publishGraphChanged(ctx, a, "entity", 1)
	return c.JSON(http.StatusCreated, entity)
}

func CreateEdgeHandler(c echo.Context) error {
	type createEdgeBody struct {
		From     string   `json:"from" validate:"required"`
		To       string   `json:"to" validate:"required"`
		Strength float64  `json:"strength" validate:"gte=0"`
		Clients  []string `json:"clients" validate:"dive,required"`
	}

	data := new(createEdgeBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx := c.Request().Context()
	a := app(c)
	edge, err := a.Store.CreateEdge(ctx, accessmap.Edge{
		From:     data.From,
		To:       data.To,
		Strength: data.Strength,
		Clients:  data.Clients,
	})
	if errors.Is(err, store.ErrUnknownEntity) {
		return errorJSON(c, http.StatusBadRequest, "Edge references an unknown entity")
	}
	if err != nil {
		logger.Error("[Network] Failed to create edge", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	publishGraphChanged(ctx, a, "edge", 1)
	return c.JSON(http.StatusCreated, edge)
}

// ImportGraphHandler bulk loads a graph. Ids in the body only connect its
// edges to its clients and entities.
func ImportGraphHandler(c echo.Context) error {
	data := new(accessmap.Graph)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	for _, client := range data.Clients {
		if client.Color != "" && !accessmap.ValidColor(client.Color) {
			return errorJSON(c, http.StatusBadRequest, "Invalid color for client "+client.ID)
		}
	}

	ctx := c.Request().Context()
	a := app(c)
	res, err := a.Store.ImportGraph(ctx, *data)
	if errors.Is(err, store.ErrUnknownEntity) || errors.Is(err, store.ErrDuplicateID) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		logger.Error("[Network] Failed to import graph", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
	logger.Info("[Network] Imported graph", "clients", res.Clients, "entities", res.Entities, "edges", res.Edges)
	publishGraphChanged(ctx, a, "import", res.Clients+res.Entities+res.Edges)
	return c.JSON(http.StatusCreated, res)
}
