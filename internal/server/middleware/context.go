package middleware

import (
	"context"

	"github.com/dw-outreach/outreach/backend/internal/config"
	"github.com/dw-outreach/outreach/backend/internal/queue"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

// DownloadLinker hands out temporary links to stored objects.
type DownloadLinker interface {
	GenerateDownloadLink(ctx context.Context, key string) (string, error)
}

// App carries the long lived dependencies of the handlers. Queue and Objects
// are nil when no broker or bucket is configured.
type App struct {
	Store   store.NetworkStore
	Queue   queue.Publisher
	Objects DownloadLinker
	Config  config.Config
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
