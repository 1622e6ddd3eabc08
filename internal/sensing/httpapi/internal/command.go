package internal

type CommandRequest struct {
	Type           string  `json:"type"`
	CalibrationPPM float64 `json:"calibration_ppm,omitempty"`
	CadenceMS      int64   `json:"cadence_ms,omitempty"`
}

type CommandResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type TemperatureOffsetRequest struct {
	OffsetC float64 `json:"offset_c"`
}
