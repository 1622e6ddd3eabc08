package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsentry/internal/sensing/coordinator"
	"airsentry/internal/sensing/domain"
	"airsentry/internal/sensing/httpapi/internal"
)

type fakeCommandService struct {
	result    domain.CommandResult
	err       error
	lastCmd   domain.Command
	statuses  []coordinator.SensorStatus
	submitted int
}

func (s *fakeCommandService) SubmitAndWait(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	s.lastCmd = cmd
	s.submitted++
	if s.err != nil {
		return domain.CommandResult{}, s.err
	}
	return s.result, nil
}

func (s *fakeCommandService) SensorStatuses() []coordinator.SensorStatus {
	return s.statuses
}

func newSensorRouter(service CommandService) *http.ServeMux {
	router := http.NewServeMux()
	NewSensorController(service).AddRoutes(router)
	return router
}

func TestSensorController_List(t *testing.T) {
	service := &fakeCommandService{
		statuses: []coordinator.SensorStatus{
			{Name: "co2", State: domain.StateReady},
		},
	}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/v1/sensors", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []coordinator.SensorStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "co2", statuses[0].Name)
}

func TestSensorController_SubmitCommand(t *testing.T) {
	service := &fakeCommandService{result: domain.CommandResult{Status: domain.CommandOK}}
	router := newSensorRouter(service)

	body := `{"type":"calibrate","calibration_ppm":420}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/co2/commands", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CommandCalibrate, service.lastCmd.Type)
	assert.Equal(t, domain.SensorCO2, service.lastCmd.Sensor)
	assert.Equal(t, 420.0, service.lastCmd.CalibrationPPM)

	var response internal.CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.NotEmpty(t, response.ID)
}

func TestSensorController_UnknownSensorIs404(t *testing.T) {
	service := &fakeCommandService{}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/radon/commands", strings.NewReader(`{"type":"read"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, service.submitted)
}

func TestSensorController_InvalidCommandIs400(t *testing.T) {
	service := &fakeCommandService{}
	router := newSensorRouter(service)

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"type":"warp"}`},
		{"calibration out of range", `{"type":"calibrate","calibration_ppm":9999}`},
		{"malformed json", `{"type":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sensors/co2/commands", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, service.submitted)
}

func TestSensorController_QueueFullIs503(t *testing.T) {
	service := &fakeCommandService{err: coordinator.ErrQueueFull}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/co2/commands", strings.NewReader(`{"type":"read"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSensorController_ReplyTimeoutIs504(t *testing.T) {
	service := &fakeCommandService{err: coordinator.ErrReplyTimedOut}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/co2/commands", strings.NewReader(`{"type":"read"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestSensorController_UnsupportedIs422(t *testing.T) {
	service := &fakeCommandService{result: domain.CommandResult{
		Status: domain.CommandUnsupported,
		Err:    assert.AnError,
	}}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/mcu_temp/commands", strings.NewReader(`{"type":"reset"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var response internal.CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "unsupported", response.Status)
	assert.NotEmpty(t, response.Error)
}

func TestSensorController_FailedCommandIs500(t *testing.T) {
	service := &fakeCommandService{result: domain.CommandResult{
		Status: domain.CommandFailed,
		Err:    assert.AnError,
	}}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/gas/commands", strings.NewReader(`{"type":"read"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSensorController_SetCadenceUsesMilliseconds(t *testing.T) {
	service := &fakeCommandService{result: domain.CommandResult{Status: domain.CommandOK}}
	router := newSensorRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/sensors/gas/commands",
		strings.NewReader(`{"type":"set_cadence","cadence_ms":2000}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CommandSetCadence, service.lastCmd.Type)
	assert.Equal(t, "2s", service.lastCmd.Cadence.String())
}
