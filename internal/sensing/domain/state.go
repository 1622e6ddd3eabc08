package domain

import "fmt"

// SensorState is the lifecycle state of a sensor as tracked by the
// coordinator. Disabled is reachable only through an explicit command.
type SensorState int

const (
	StateUninitialized SensorState = iota
	StateInit
	StateWarming
	StateReady
	StateError
	StateDisabled
)

var stateNames = map[SensorState]string{
	StateUninitialized: "uninitialized",
	StateInit:          "init",
	StateWarming:       "warming",
	StateReady:         "ready",
	StateError:         "error",
	StateDisabled:      "disabled",
}

func (s SensorState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s SensorState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SensorState) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown sensor state %q", text)
}
