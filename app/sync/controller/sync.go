package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/consultia/bonusx/app/sync/types"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleReady reports readiness: the warehouse must answer a ping.
func (c *Controller) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := c.App.DB.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "warehouse unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleSyncSource triggers one source's sync and waits for it.
func (c *Controller) HandleSyncSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["source"]

	event, err := c.App.SyncSource(r.Context(), name)
	switch {
	case errors.Is(err, types.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source")
	case errors.Is(err, types.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "sync already in progress")
	case err != nil:
		c.App.Logger.Error("Triggered sync failed",
			zap.String("source", name),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, event)
	default:
		writeJSON(w, http.StatusOK, event)
	}
}

// HandleSyncAll triggers every source in the background and returns
// immediately.
func (c *Controller) HandleSyncAll(w http.ResponseWriter, _ *http.Request) {
	// Detach from the request context: the run outlives the response.
	go c.App.SyncAll(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "sources": types.Sources()})
}

// HandleSyncStatus lists the sources currently syncing and their start times.
func (c *Controller) HandleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	running := map[string]time.Time{}
	c.App.Running.Range(func(name string, started time.Time) bool {
		running[name] = started
		return true
	})
	writeJSON(w, http.StatusOK, map[string]any{"running": running})
}
