package routes

import (
	"errors"
	"net/http"

	"github.com/dw-outreach/outreach/backend/internal/queue"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/labstack/echo/v4"
)

// CreateSnapshotHandler records a snapshot request and queues it for the
// worker, which renders and uploads the map. Without a clients list the
// snapshot covers every client stored at request time.
func CreateSnapshotHandler(c echo.Context) error {
	type createSnapshotBody struct {
		Clients []string `json:"clients" validate:"dive,required"`
		Rings   int      `json:"rings" validate:"gte=0"`
		Spokes  int      `json:"spokes" validate:"gte=0"`
	}

	data := new(createSnapshotBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	a := app(c)
	if a.Queue == nil {
		snapshotRequests.WithLabelValues("unavailable").Inc()
		return errorJSON(c, http.StatusServiceUnavailable, "Snapshot rendering is not configured")
	}

	id, err := gonanoid.New()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	ctx := c.Request().Context()
	if data.Clients == nil {
		g, err := a.Store.GetGraph(ctx)
		if err != nil {
			logger.Error("[Snapshot] Failed to load graph", "err", err)
			return errorJSON(c, http.StatusBadGateway, "Failed to load network graph")
		}
		data.Clients = accessmap.AllClientIDs(g)
	}

	layout := a.Config.Layout
	snap, err := a.Store.CreateSnapshot(ctx, store.Snapshot{
		ID:            id,
		ActiveClients: data.Clients,
		RingCount:     min(data.Rings, layout.MaxRings),
		SpokeCount:    min(data.Spokes, layout.MaxSpokes),
	})
	if err != nil {
		logger.Error("[Snapshot] Failed to create snapshot", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	if err := queue.EnqueueSnapshot(ctx, a.Queue, snap.ID); err != nil {
		logger.Error("[Snapshot] Failed to enqueue snapshot", "snapshot", snap.ID, "err", err)
		snapshotRequests.WithLabelValues("enqueue_failed").Inc()
		if err := a.Store.FailSnapshot(ctx, snap.ID, "could not be queued"); err != nil {
			logger.Error("[Snapshot] Failed to mark snapshot as failed", "snapshot", snap.ID, "err", err)
		}
		return errorJSON(c, http.StatusServiceUnavailable, "Failed to queue snapshot")
	}

	snapshotRequests.WithLabelValues("queued").Inc()
	return c.JSON(http.StatusAccepted, map[string]string{
		"id":     snap.ID,
		"status": string(snap.Status),
	})
}

func GetSnapshotHandler(c echo.Context) error {
	type snapshotResponse struct {
		store.Snapshot
		DownloadURL string `json:"download_url,omitempty"`
	}

	ctx := c.Request().Context()
	a := app(c)
	snap, err := a.Store.GetSnapshot(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "Snapshot not found")
	}
	if err != nil {
		logger.Error("[Snapshot] Failed to load snapshot", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	res := snapshotResponse{Snapshot: snap}
	if snap.Status == store.SnapshotCompleted && a.Objects != nil {
		link, err := a.Objects.GenerateDownloadLink(ctx, snap.ObjectKey)
		if err != nil {
			logger.Error("[Snapshot] Failed to sign download link", "key", snap.ObjectKey, "err", err)
			return errorJSON(c, http.StatusInternalServerError, "Internal server error")
		}
		res.DownloadURL = link
	}
	return c.JSON(http.StatusOK, res)
}
