package enums

import (
	"fmt"
	"strings"
)

// Frequency enumerates the delivery cadence of a meal plan.
type Frequency string

const (
	FrequencyMonFri Frequency = "Mon-Fri"
	FrequencyMonSat Frequency = "Mon-Sat"
)

var validFrequencies = []Frequency{
	FrequencyMonFri,
	FrequencyMonSat,
}

// String implements fmt.Stringer.
func (f Frequency) String() string {
	return string(f)
}

// IsValid reports whether the value is known.
func (f Frequency) IsValid() bool {
	for _, candidate := range validFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// DeliveriesPerWeek returns how many meals ship in a week for the cadence.
func (f Frequency) DeliveriesPerWeek() int {
	switch f {
	case FrequencyMonFri:
		return 5
	case FrequencyMonSat:
		return 6
	default:
		return 0
	}
}

// ParseFrequency converts raw input into a Frequency. Long-form values sent by
// older clients ("Monday to Friday") are normalized to the canonical enum.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.TrimSpace(value) {
	case "Monday to Friday":
		return FrequencyMonFri, nil
	case "Monday to Saturday":
		return FrequencyMonSat, nil
	}
	for _, candidate := range validFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q", value)
}
