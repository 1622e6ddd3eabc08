package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilder_BuildsValidCommand(t *testing.T) {
	cmd, err := NewCommandBuilder().
		WithType(CommandCalibrate).
		WithSensor(SensorCO2).
		WithCalibrationPPM(420).
		WithReply().
		Build()

	require.NoError(t, err)
	assert.NotEmpty(t, cmd.ID)
	assert.Equal(t, CommandCalibrate, cmd.Type)
	assert.Equal(t, SensorCO2, cmd.Sensor)
	assert.Equal(t, 420.0, cmd.CalibrationPPM)
	require.NotNil(t, cmd.Reply)
	assert.Equal(t, 1, cap(cmd.Reply))
}

func TestCommandBuilder_RejectsInvalidCommand(t *testing.T) {
	_, err := NewCommandBuilder().
		WithType(CommandCalibrate).
		WithSensor(SensorCO2).
		WithCalibrationPPM(100).
		Build()

	require.Error(t, err)
}

func TestCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantErr bool
	}{
		{
			name: "read on valid sensor",
			cmd:  Command{Type: CommandRead, Sensor: SensorHumidity},
		},
		{
			name:    "unknown type",
			cmd:     Command{Type: CommandType("explode"), Sensor: SensorHumidity},
			wantErr: true,
		},
		{
			name:    "invalid sensor",
			cmd:     Command{Type: CommandRead, Sensor: SensorID(42)},
			wantErr: true,
		},
		{
			name: "calibration at lower bound",
			cmd:  Command{Type: CommandCalibrate, Sensor: SensorCO2, CalibrationPPM: 400},
		},
		{
			name: "calibration at upper bound",
			cmd:  Command{Type: CommandCalibrate, Sensor: SensorCO2, CalibrationPPM: 5000},
		},
		{
			name:    "calibration below range",
			cmd:     Command{Type: CommandCalibrate, Sensor: SensorCO2, CalibrationPPM: 399},
			wantErr: true,
		},
		{
			name:    "calibration above range",
			cmd:     Command{Type: CommandCalibrate, Sensor: SensorCO2, CalibrationPPM: 5001},
			wantErr: true,
		},
		{
			name: "zero cadence disables schedule",
			cmd:  Command{Type: CommandSetCadence, Sensor: SensorGas, Cadence: 0},
		},
		{
			name:    "negative cadence",
			cmd:     Command{Type: CommandSetCadence, Sensor: SensorGas, Cadence: -time.Second},
			wantErr: true,
		},
		{
			name: "noop skips sensor validation",
			cmd:  Command{Type: CommandNoop},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
