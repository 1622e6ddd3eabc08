package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airsentry/internal/infra/httpserver"
	"airsentry/internal/sensing/coordinator"
	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/httpapi/internal"
)

const _commandReplyTimeout = 10 * time.Second

// CommandService is the coordinator surface the API needs.
type CommandService interface {
	SubmitAndWait(ctx context.Context, cmd domain.Command) (domain.CommandResult, error)
	SensorStatuses() []coordinator.SensorStatus
}

func NewSensorController(service CommandService) *SensorController {
	return &SensorController{service: service}
}

var _ httpserver.Controller = (*SensorController)(nil)

type SensorController struct {
	service CommandService
}

func (c *SensorController) AddRoutes(router *http.ServeMux) {
	router.Handle("GET /v1/sensors", c.list())
	router.Handle("POST /v1/sensors/{name}/commands", c.submitCommand())
}

func (c *SensorController) list() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpserver.ReplyJSONResponse(w, http.StatusOK, c.service.SensorStatuses())
	}
}

func (c *SensorController) submitCommand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sensor, err := domain.ParseSensorID(r.PathValue("name"))
		if err != nil {
			httpserver.ReplyWithError(w, http.StatusNotFound, err.Error())
			return
		}

		var body internal.CommandRequest
		if err := httpserver.DecodeJSONBody(r, &body); err != nil {
			slog.Error("decoding json body", slog.Any("error", err))
			httpserver.ReplyWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cmd, err := domain.NewCommandBuilder().
			WithType(domain.CommandType(body.Type)).
			WithSensor(sensor).
			WithCalibrationPPM(body.CalibrationPPM).
			WithCadence(time.Duration(body.CadenceMS) * time.Millisecond).
			WithReply().
			Build()
		if err != nil {
			httpserver.ReplyWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), _commandReplyTimeout)
		defer cancel()
		result, err := c.service.SubmitAndWait(ctx, cmd)
		switch {
		case errors.Is(err, coordinator.ErrQueueFull):
			httpserver.ReplyWithError(w, http.StatusServiceUnavailable, "command queue is full, retry later")
			return
		case errors.Is(err, coordinator.ErrReplyTimedOut):
			httpserver.ReplyWithError(w, http.StatusGatewayTimeout, "timed out waiting for command result")
			return
		case err != nil:
			httpserver.ReplyWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		response := internal.CommandResponse{ID: cmd.ID, Status: string(result.Status)}
		if result.Err != nil {
			response.Error = result.Err.Error()
		}

		switch result.Status {
		case domain.CommandOK:
			httpserver.ReplyJSONResponse(w, http.StatusOK, response)
		case domain.CommandUnsupported:
			httpserver.ReplyJSONResponse(w, http.StatusUnprocessableEntity, response)
		default:
			httpserver.ReplyJSONResponse(w, http.StatusInternalServerError, response)
		}
	}
}
