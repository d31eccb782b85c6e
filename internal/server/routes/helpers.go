package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dw-outreach/outreach/backend/internal/queue"
	"github.com/dw-outreach/outreach/backend/internal/server/middleware"
	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// publishGraphChanged notifies subscribers of a write. Delivery is best
// effort; the write already happened.
func publishGraphChanged(ctx context.Context, a *middleware.App, kind string, count int) {
	graphMutations.WithLabelValues(kind).Add(float64(count))
	if a.Queue == nil {
		return
	}
	if err := queue.PublishGraphChanged(ctx, a.Queue, kind, count); err != nil {
		logger.Warn("[Network] Failed to publish graph change", "kind", kind, "err", err)
	}
}

type viewQuery struct {
	clients    []string
	allClients bool
	previous   int
	canvas     accessmap.CanvasConfig
	hideLabels bool
}

var errNegativeDimension = errors.New("rings, spokes, width, height and previous must not be negative")

// parseViewQuery reads the view parameters. Without a clients parameter every
// client is active; an empty one activates none.
func parseViewQuery(c echo.Context, a *middleware.App) (viewQuery, error) {
	var q viewQuery
	var rings, spokes int
	var width, height float64
	err := echo.QueryParamsBinder(c).
		Int("previous", &q.previous).
		Int("rings", &rings).
		Int("spokes", &spokes).
		Float64("width", &width).
		Float64("height", &height).
		Bool("hide_labels", &q.hideLabels).
		BindError()
	if err != nil {
		return viewQuery{}, err
	}
	if q.previous < 0 || rings < 0 || spokes < 0 || width < 0 || height < 0 {
		return viewQuery{}, errNegativeDimension
	}
	if err := a.Config.Layout.ValidateSize(width, height); err != nil {
		return viewQuery{}, err
	}

	values, ok := c.QueryParams()["clients"]
	if ok {
		q.clients = util.SplitList(strings.Join(values, ","))
	} else {
		q.allClients = true
	}
	q.canvas = a.Config.Layout.Canvas(rings, spokes, width, height)
	return q, nil
}

// buildView computes the view for q and records it.
func buildView(g accessmap.Graph, q viewQuery, format string) accessmap.View {
	active := q.clients
	if q.allClients {
		active = accessmap.AllClientIDs(g)
	}
	v := accessmap.BuildView(g, accessmap.ViewOptions{
		ActiveClients: active,
		Canvas:        q.canvas,
		PreviousCount: q.previous,
	})
	viewComputations.WithLabelValues(format).Inc()
	unplacedEntities.Add(float64(len(v.Unplaced)))
	overlapPercentage.Observe(v.Metrics.OverlapPercentage)
	return v
}

func badRequest(c echo.Context, err error) error {
	var he *echo.BindingError
	if errors.As(err, &he) {
		return errorJSON(c, http.StatusBadRequest, "Invalid query parameter "+he.Field)
	}
	return errorJSON(c, http.StatusBadRequest, err.Error())
}
