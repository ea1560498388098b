package accessory

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

// LockState is the state of a lock, trunk, or charge port. Codes match the smart-home lock
// characteristic.
type LockState int

const (
	LockUnsecured LockState = 0
	LockSecured   LockState = 1
	LockJammed    LockState = 2
	LockUnknown   LockState = 3
)

func (s LockState) String() string {
	switch s {
	case LockUnsecured:
		return "unsecured"
	case LockSecured:
		return "secured"
	case LockJammed:
		return "jammed"
	}
	return "unknown"
}

// HeatingCoolingState is the mode of a thermostat.
type HeatingCoolingState int

const (
	HeatingCoolingOff HeatingCoolingState = 0
	Heat              HeatingCoolingState = 1
	Cool              HeatingCoolingState = 2
	Auto              HeatingCoolingState = 3
)

func (s HeatingCoolingState) String() string {
	switch s {
	case HeatingCoolingOff:
		return "off"
	case Heat:
		return "heat"
	case Cool:
		return "cool"
	case Auto:
		return "auto"
	}
	return fmt.Sprintf("HeatingCoolingState(%d)", int(s))
}

// ChargingState is the charging status of a battery.
type ChargingState int

const (
	NotCharging   ChargingState = 0
	Charging      ChargingState = 1
	NotChargeable ChargingState = 2
)

func (s ChargingState) String() string {
	switch s {
	case NotCharging:
		return "not charging"
	case Charging:
		return "charging"
	case NotChargeable:
		return "not chargeable"
	}
	return fmt.Sprintf("ChargingState(%d)", int(s))
}

// TemperatureUnits is the unit a thermostat displays.
type TemperatureUnits int

const (
	Celsius    TemperatureUnits = 0
	Fahrenheit TemperatureUnits = 1
)

func (u TemperatureUnits) String() string {
	if u == Celsius {
		return "celsius"
	}
	return "fahrenheit"
}

// ToFahrenheit converts a Celsius temperature for display.
func ToFahrenheit(celsius float64) int {
	return int(math.Round(celsius*1.8 + 32))
}

func invalidValueError(feature string, value interface{}) error {
	return fmt.Errorf("%w: %s does not accept %v (%T)", protocol.ErrInvalidValue, feature, value, value)
}

func asBool(feature string, value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, invalidValueError(feature, value)
}

func asLockState(feature string, value interface{}) (LockState, error) {
	if s, ok := value.(LockState); ok && (s == LockSecured || s == LockUnsecured) {
		return s, nil
	}
	return LockUnknown, invalidValueError(feature, value)
}

func finite(c float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0)
}

func asCelsius(feature string, value interface{}) (float64, error) {
	var c float64
	switch v := value.(type) {
	case float64:
		c = v
	case float32:
		c = float64(v)
	case int:
		return float64(v), nil
	default:
		return 0, invalidValueError(feature, value)
	}
	if !finite(c) {
		return 0, invalidValueError(feature, value)
	}
	return c, nil
}

func asHeatingCooling(feature string, value interface{}) (HeatingCoolingState, error) {
	if s, ok := value.(HeatingCoolingState); ok && s >= HeatingCoolingOff && s <= Auto {
		return s, nil
	}
	return HeatingCoolingOff, invalidValueError(feature, value)
}

// ParseBool accepts on/off, true/false, yes/no, and 1/0.
func ParseBool(text string) (interface{}, error) {
	switch strings.ToLower(text) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%w: expected on or off, got %q", protocol.ErrInvalidValue, text)
}

// ParseLockState accepts lock/locked/secured/close and unlock/unlocked/unsecured/open.
func ParseLockState(text string) (interface{}, error) {
	switch strings.ToLower(text) {
	case "lock", "locked", "secured", "secure", "close", "closed", "1":
		return LockSecured, nil
	case "unlock", "unlocked", "unsecured", "open", "0":
		return LockUnsecured, nil
	}
	return nil, fmt.Errorf("%w: expected locked or unlocked, got %q", protocol.ErrInvalidValue, text)
}

// ParseCelsius accepts a decimal temperature in Celsius.
func ParseCelsius(text string) (interface{}, error) {
	c, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToUpper(text), "C"), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrInvalidValue, err)
	}
	if !finite(c) {
		return nil, fmt.Errorf("%w: expected a temperature, got %q", protocol.ErrInvalidValue, text)
	}
	return c, nil
}

// ParseHeatingCooling accepts off, heat, cool, or auto.
func ParseHeatingCooling(text string) (interface{}, error) {
	for s := HeatingCoolingOff; s <= Auto; s++ {
		if strings.EqualFold(text, s.String()) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: expected off, heat, cool, or auto, got %q", protocol.ErrInvalidValue, text)
}
