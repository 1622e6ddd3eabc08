package httpapi

import (
	"log/slog"
	"net/http"

	"airsentry/internal/infra/httpserver"
	"airsentry/internal/sensing/fusion"
	"airsentry/internal/sensing/httpapi/internal"
)

func NewFusionController(engine *fusion.Engine, learner *fusion.BaselineLearner) *FusionController {
	return &FusionController{engine: engine, learner: learner}
}

var _ httpserver.Controller = (*FusionController)(nil)

type FusionController struct {
	engine  *fusion.Engine
	learner *fusion.BaselineLearner
}

func (c *FusionController) AddRoutes(router *http.ServeMux) {
	router.Handle("POST /v1/fusion/baseline/reset", c.resetBaseline())
	router.Handle("POST /v1/fusion/temperature-offset", c.setTemperatureOffset())
}

func (c *FusionController) resetBaseline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.learner.Reset(r.Context()); err != nil {
			slog.Error("resetting baseline", slog.Any("error", err))
			httpserver.ReplyWithError(w, http.StatusInternalServerError, "failed to reset baseline")
			return
		}
		httpserver.ReplyJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (c *FusionController) setTemperatureOffset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body internal.TemperatureOffsetRequest
		if err := httpserver.DecodeJSONBody(r, &body); err != nil {
			httpserver.ReplyWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := c.engine.SetTemperatureOffset(r.Context(), body.OffsetC); err != nil {
			slog.Error("persisting temperature offset", slog.Any("error", err))
			httpserver.ReplyWithError(w, http.StatusInternalServerError, "failed to persist offset")
			return
		}
		httpserver.ReplyJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
