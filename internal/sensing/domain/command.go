package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CommandType string

const (
	CommandRead       CommandType = "read"
	CommandReset      CommandType = "reset"
	CommandCalibrate  CommandType = "calibrate"
	CommandEnable     CommandType = "enable"
	CommandDisable    CommandType = "disable"
	CommandSetCadence CommandType = "set_cadence"

	// CommandNoop only wakes the coordinator loop; used during shutdown.
	CommandNoop CommandType = "noop"
)

type CommandStatus string

const (
	CommandOK          CommandStatus = "ok"
	CommandFailed      CommandStatus = "failed"
	CommandUnsupported CommandStatus = "unsupported"
)

type CommandResult struct {
	Status CommandStatus
	Err    error
}

// Command is one operation on a single sensor, consumed exactly once by the
// coordinator. Reply, when set, receives the result of the dispatch; it must
// be buffered so the coordinator never blocks on a gone caller.
type Command struct {
	ID     string
	Type   CommandType
	Sensor SensorID

	// CalibrationPPM is consulted for CommandCalibrate only.
	CalibrationPPM float64
	// Cadence is consulted for CommandSetCadence only. Zero disables
	// scheduled reads without touching the state machine.
	Cadence time.Duration

	Reply chan CommandResult
}

const (
	CalibrationMinPPM = 400
	CalibrationMaxPPM = 5000
)

// Validate rejects malformed commands synchronously at submission so they are
// never enqueued.
func (c Command) Validate() error {
	switch c.Type {
	case CommandNoop:
		return nil
	case CommandRead, CommandReset, CommandEnable, CommandDisable:
	case CommandCalibrate:
		if c.CalibrationPPM < CalibrationMinPPM || c.CalibrationPPM > CalibrationMaxPPM {
			return fmt.Errorf("calibration value %.0f ppm outside [%d, %d]",
				c.CalibrationPPM, CalibrationMinPPM, CalibrationMaxPPM)
		}
	case CommandSetCadence:
		if c.Cadence < 0 {
			return fmt.Errorf("cadence must not be negative, got %s", c.Cadence)
		}
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}

	if !c.Sensor.Valid() {
		return fmt.Errorf("invalid target sensor %d", int(c.Sensor))
	}
	return nil
}

func NewCommandBuilder() *commandBuilder {
	return &commandBuilder{}
}

type commandBuilder struct {
	actions []commandHandler
}

type commandHandler func(c *Command) error

func (b *commandBuilder) WithType(value CommandType) *commandBuilder {
	b.actions = append(b.actions, func(c *Command) error {
		c.Type = value
		return nil
	})
	return b
}

func (b *commandBuilder) WithSensor(value SensorID) *commandBuilder {
	b.actions = append(b.actions, func(c *Command) error {
		c.Sensor = value
		return nil
	})
	return b
}

func (b *commandBuilder) WithCalibrationPPM(value float64) *commandBuilder {
	b.actions = append(b.actions, func(c *Command) error {
		c.CalibrationPPM = value
		return nil
	})
	return b
}

func (b *commandBuilder) WithCadence(value time.Duration) *commandBuilder {
	b.actions = append(b.actions, func(c *Command) error {
		c.Cadence = value
		return nil
	})
	return b
}

func (b *commandBuilder) WithReply() *commandBuilder {
	b.actions = append(b.actions, func(c *Command) error {
		c.Reply = make(chan CommandResult, 1)
		return nil
	})
	return b
}

func (b *commandBuilder) Build() (Command, error) {
	result := Command{
		ID: uuid.NewString(),
	}
	for _, a := range b.actions {
		if err := a(&result); err != nil {
			return Command{}, err
		}
	}
	if err := result.Validate(); err != nil {
		return Command{}, err
	}
	return result, nil
}
