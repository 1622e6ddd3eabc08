package httpapi

import (
	"net/http"

	"airsentry/internal/infra/httpserver"
	"airsentry/internal/sensing/store"
)

func NewSnapshotController(st *store.Store) *SnapshotController {
	return &SnapshotController{store: st}
}

var _ httpserver.Controller = (*SnapshotController)(nil)

type SnapshotController struct {
	store *store.Store
}

func (c *SnapshotController) AddRoutes(router *http.ServeMux) {
	router.Handle("GET /v1/snapshot", c.get())
}

func (c *SnapshotController) get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpserver.ReplyJSONResponse(w, http.StatusOK, c.store.Snapshot())
	}
}
