package domain

import "fmt"

// SensorID identifies one of the fixed set of sensors on the station. It is
// used as an array index throughout the coordinator, so the values are dense.
type SensorID int

const (
	SensorMCUTemp SensorID = iota
	SensorHumidity
	SensorPressure
	SensorGas
	SensorParticulate
	SensorCO2

	SensorCount
)

var sensorNames = [SensorCount]string{
	SensorMCUTemp:     "mcu_temp",
	SensorHumidity:    "humidity",
	SensorPressure:    "pressure",
	SensorGas:         "gas",
	SensorParticulate: "particulate",
	SensorCO2:         "co2",
}

func (s SensorID) String() string {
	if !s.Valid() {
		return fmt.Sprintf("sensor(%d)", int(s))
	}
	return sensorNames[s]
}

func (s SensorID) Valid() bool {
	return s >= 0 && s < SensorCount
}

func ParseSensorID(name string) (SensorID, error) {
	for id, n := range sensorNames {
		if n == name {
			return SensorID(id), nil
		}
	}
	return -1, fmt.Errorf("unknown sensor %q", name)
}

// AllSensors returns every sensor identity in index order.
func AllSensors() []SensorID {
	ids := make([]SensorID, SensorCount)
	for i := range ids {
		ids[i] = SensorID(i)
	}
	return ids
}
