package domain

import "encoding/json"

// Sample is an optional measurement value. The zero value means "no data",
// which downstream consumers must be able to tell apart from a measured zero.
type Sample struct {
	Value float64
	Valid bool
}

func NewSample(value float64) Sample {
	return Sample{Value: value, Valid: true}
}

// Or returns the sample value, or fallback when the sample is invalid.
func (s Sample) Or(fallback float64) float64 {
	if !s.Valid {
		return fallback
	}
	return s.Value
}

func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Sample{}
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*s = NewSample(value)
	return nil
}
