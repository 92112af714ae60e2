package main

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/spacefrags/kopiahook/internal/config"
	"github.com/spacefrags/kopiahook/internal/history"
	"github.com/spacefrags/kopiahook/internal/sensor"
	"github.com/spacefrags/kopiahook/internal/snapshot"
)

// application bundles the HTTP handlers with their dependencies.
type application struct {
	cfg    *config.Config
	store  *history.Store
	slots  []*sensor.Slot
	logger *log.Logger
}

// handleWebhook accepts one backup-run report, JSON or plain text, and
// inserts it into the rolling history. Every rejection is local to this
// request; stored history is never touched on failure.
func (app *application) handleWebhook(c echo.Context) error {
	if c.Param("id") != app.cfg.WebhookID {
		return echo.NewHTTPError(http.StatusNotFound, "unknown webhook id")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		app.logger.Warn("webhook received empty payload")
		return echo.NewHTTPError(http.StatusBadRequest, "empty payload")
	}

	rec, err := snapshot.Parse(body, c.Request().Header.Get(echo.HeaderContentType))
	if err != nil {
		app.logger.Errorf("error decoding webhook payload: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload format: "+err.Error())
	}
	if len(rec) == 0 {
		app.logger.Warn("webhook payload contained no recognizable fields")
		return echo.NewHTTPError(http.StatusBadRequest, "no recognizable fields in payload")
	}

	app.store.Update(rec)
	return c.String(http.StatusOK, "OK")
}

// listSlots returns every display slot's current view.
func (app *application) listSlots(c echo.Context) error {
	return c.JSON(http.StatusOK, sensor.Views(app.slots))
}

// getSlot returns one slot by index (0-based).
func (app *application) getSlot(c echo.Context) error {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 || i >= len(app.slots) {
		return echo.NewHTTPError(http.StatusNotFound, "no such slot")
	}
	return c.JSON(http.StatusOK, app.slots[i].View())
}

func (app *application) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// routes registers every handler on e.
func (app *application) routes(e *echo.Echo) {
	e.POST("/api/webhook/:id", app.handleWebhook)
	e.GET("/api/slots", app.listSlots)
	e.GET("/api/slots/:index", app.getSlot)
	e.GET("/healthz", app.health)
}
