package accessory

import (
	"context"
	"fmt"

	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
	"github.com/teslamotors/vehicle-accessory/pkg/session"
)

const (
	InsideTemperature = "inside_temperature"
	TargetTemperature = "target_temperature"
	HVAC              = "hvac"
	TemperatureUnit   = "temperature_units"
	Conditioning      = "conditioning"
	DoorLocks         = "doorlocks"
	ChargePort        = "charge_port"
	Trunk             = "trunk"
	Frunk             = "frunk"
	Battery           = "battery"
	ChargingSwitch    = "charging"
	ChargingStatus    = "charging_state"
	Horn              = "horn"
	Lights            = "lights"
	Connection        = "connection"
	Vent              = "vent"
	Defrost           = "defrost"
	SentryMode        = "sentry_mode"
)

const conditioningTask = "conditioning/auto-stop"

// benignChargeReasons are rejections that mean the battery is already in the requested state.
var benignChargeReasons = map[string]bool{
	"complete":     true,
	"not_charging": true,
}

func lockState(secured bool) LockState {
	if secured {
		return LockSecured
	}
	return LockUnsecured
}

func readInsideTemperature(data *account.VehicleData) (interface{}, error) {
	if data.ClimateState.InsideTemp == nil {
		return nil, fmt.Errorf("%w: inside temperature unavailable", protocol.ErrBadResponse)
	}
	return *data.ClimateState.InsideTemp, nil
}

func readTargetTemperature(data *account.VehicleData) (interface{}, error) {
	return data.ClimateState.DriverTempSetting, nil
}

func readBattery(data *account.VehicleData) (interface{}, error) {
	if data.ChargeState == nil || data.ChargeState.BatteryLevel == nil {
		return nil, fmt.Errorf("%w: battery level unavailable", protocol.ErrBadResponse)
	}
	return *data.ChargeState.BatteryLevel, nil
}

func readChargingState(data *account.VehicleData) (interface{}, error) {
	charge := data.ChargeState
	switch {
	case charge == nil:
		return NotChargeable, nil
	case charge.ChargeRate > 0:
		return Charging, nil
	case charge.ChargePortLatch == "Engaged":
		return NotCharging, nil
	}
	return NotChargeable, nil
}

// trunkCommand opens a trunk. Trunks can't be closed remotely.
func trunkCommand(name string, open func() *action.Command) func(*Accessory, interface{}) (*action.Command, error) {
	return func(_ *Accessory, value interface{}) (*action.Command, error) {
		state, err := asLockState(name, value)
		if err != nil {
			return nil, err
		}
		if state == LockSecured {
			return nil, fmt.Errorf("%w: %s can only be opened", protocol.ErrUnsupportedOperation, name)
		}
		return open(), nil
	}
}

func features() []*Feature {
	return []*Feature{
		{
			Name:        InsideTemperature,
			Description: "cabin temperature in Celsius",
			Default:     lastKnown(readInsideTemperature, 0.0),
			Read:        readInsideTemperature,
		},
		{
			Name:        TargetTemperature,
			Description: "driver and passenger temperature setting in Celsius",
			Default:     lastKnown(readTargetTemperature, 0.0),
			Read:        readTargetTemperature,
			Command: func(a *Accessory, value interface{}) (*action.Command, error) {
				c, err := asCelsius(TargetTemperature, value)
				if err != nil {
					return nil, err
				}
				a.log.Info("Setting temperature to %.1f°C (%d°F)", c, ToFahrenheit(c))
				return action.ChangeClimateTemp(float32(c), float32(c)), nil
			},
			Applied: publishes(TargetTemperature),
			Parse:   ParseCelsius,
		},
		{
			Name:        HVAC,
			Description: "climate mode (off, heat, cool, auto)",
			Default:     constant(HeatingCoolingOff),
			Read: func(data *account.VehicleData) (interface{}, error) {
				if data.ClimateState.IsAutoConditioningOn {
					return Auto, nil
				}
				return HeatingCoolingOff, nil
			},
			Command: func(_ *Accessory, value interface{}) (*action.Command, error) {
				mode, err := asHeatingCooling(HVAC, value)
				if err != nil {
					return nil, err
				}
				if mode == HeatingCoolingOff {
					return action.ClimateOff(), nil
				}
				return action.ClimateOn(), nil
			},
			Applied: func(a *Accessory, value interface{}) {
				if value.(HeatingCoolingState) == HeatingCoolingOff {
					a.publish(HVAC, HeatingCoolingOff)
				} else {
					a.publish(HVAC, Auto)
				}
			},
			Parse: ParseHeatingCooling,
		},
		{
			Name:        TemperatureUnit,
			Description: "display units",
			Get: func(context.Context, *Accessory) (interface{}, error) {
				return Fahrenheit, nil
			},
		},
		{
			Name:        Conditioning,
			Description: "climate conditioning with automatic stop",
			Get: func(_ context.Context, a *Accessory) (interface{}, error) {
				return a.pending(conditioningTask), nil
			},
			Set:   setConditioning,
			Parse: ParseBool,
		},
		{
			Name:        DoorLocks,
			Description: "door locks",
			Default:     constant(LockSecured),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return lockState(data.VehicleState.Locked), nil
			},
			Command: func(_ *Accessory, value interface{}) (*action.Command, error) {
				state, err := asLockState(DoorLocks, value)
				if err != nil {
					return nil, err
				}
				if state == LockSecured {
					return action.Lock(), nil
				}
				return action.Unlock(), nil
			},
			Applied: publishes(DoorLocks),
			Parse:   ParseLockState,
		},
		{
			Name:        ChargePort,
			Description: "charge port door",
			Default:     constant(LockSecured),
			Read: func(data *account.VehicleData) (interface{}, error) {
				if data.ChargeState == nil {
					return LockSecured, nil
				}
				return lockState(!data.ChargeState.ChargePortDoorOpen), nil
			},
			Command: func(_ *Accessory, value interface{}) (*action.Command, error) {
				state, err := asLockState(ChargePort, value)
				if err != nil {
					return nil, err
				}
				if state == LockSecured {
					return action.ChargePortClose(), nil
				}
				return action.ChargePortOpen(), nil
			},
			Applied: publishes(ChargePort),
			Parse:   ParseLockState,
		},
		{
			Name:        Trunk,
			Description: "rear trunk (open only)",
			Default:     constant(LockSecured),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return lockState(data.VehicleState.RearTrunk == 0), nil
			},
			Command: trunkCommand(Trunk, action.OpenTrunk),
			Applied: publishes(Trunk),
			Parse:   ParseLockState,
		},
		{
			Name:        Frunk,
			Description: "front trunk (open only)",
			Default:     constant(LockSecured),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return lockState(data.VehicleState.FrontTrunk == 0), nil
			},
			Command: trunkCommand(Frunk, action.OpenFrunk),
			Applied: publishes(Frunk),
			Parse:   ParseLockState,
		},
		{
			Name:        Battery,
			Description: "battery level in percent",
			Default:     lastKnown(readBattery, 0),
			Read:        readBattery,
		},
		{
			Name:        ChargingSwitch,
			Description: "charging on or off",
			Default:     constant(false),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return data.ChargeState != nil && data.ChargeState.ChargeRate > 0, nil
			},
			Command: toggle(ChargingSwitch, action.ChargeStart, action.ChargeStop),
			Accept: func(a *Accessory, reason string) bool {
				if !benignChargeReasons[reason] {
					return false
				}
				a.resetAfter(ChargingSwitch, false, a.IndicatorReset)
				return true
			},
			Applied: publishes(ChargingSwitch),
			Parse:   ParseBool,
		},
		{
			Name:        ChargingStatus,
			Description: "charging, not charging, or not chargeable",
			Default:     constant(NotChargeable),
			Read:        readChargingState,
		},
		{
			Name:        Horn,
			Description: "honk the horn",
			Get:         local(Horn, false),
			Command: func(_ *Accessory, value interface{}) (*action.Command, error) {
				on, err := asBool(Horn, value)
				if err != nil || !on {
					return nil, err
				}
				return action.HonkHorn(), nil
			},
			Applied: func(a *Accessory, _ interface{}) {
				a.publish(Horn, false)
			},
			Parse: ParseBool,
		},
		{
			Name:        Lights,
			Description: "flash the lights",
			Get:         local(Lights, false),
			Command: func(_ *Accessory, value interface{}) (*action.Command, error) {
				on, err := asBool(Lights, value)
				if err != nil || !on {
					return nil, err
				}
				return action.FlashLights(), nil
			},
			Applied: func(a *Accessory, _ interface{}) {
				a.publish(Lights, true)
				a.resetAfter(Lights, false, a.LightsReset)
			},
			Parse: ParseBool,
		},
		{
			Name:        Connection,
			Description: "whether the vehicle is awake; set to wake it",
			Get: func(ctx context.Context, a *Accessory) (interface{}, error) {
				state, err := a.vehicle.State(ctx)
				if err != nil {
					return nil, err
				}
				return state == session.StateOnline, nil
			},
			Set:   setConnection,
			Parse: ParseBool,
		},
		{
			Name:        Vent,
			Description: "vent or close the windows",
			Default:     constant(false),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return data.VehicleState.DriverFrontWin != 0, nil
			},
			Command: toggle(Vent, action.VentWindows, action.CloseWindows),
			Applied: publishes(Vent),
			Parse:   ParseBool,
		},
		{
			Name:        Defrost,
			Description: "maximum defrost",
			Default:     constant(false),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return data.ClimateState.IsAutoConditioningOn, nil
			},
			Command: flag(Defrost, action.SetPreconditioningMax),
			Applied: publishes(Defrost),
			Parse:   ParseBool,
		},
		{
			Name:        SentryMode,
			Description: "sentry mode",
			Default:     constant(false),
			Read: func(data *account.VehicleData) (interface{}, error) {
				return data.VehicleState.SentryMode, nil
			},
			Command: flag(SentryMode, action.SetSentryMode),
			Applied: publishes(SentryMode),
			Parse:   ParseBool,
		},
	}
}

func setConditioning(ctx context.Context, a *Accessory, value interface{}) error {
	on, err := asBool(Conditioning, value)
	if err != nil {
		return err
	}
	if !on {
		if err := a.vehicle.Execute(ctx, action.ClimateOff()); err != nil {
			return err
		}
		if a.cancelTask(conditioningTask) {
			a.log.Debug("Cancelled climate auto-stop")
		}
		a.publish(Conditioning, false)
		return nil
	}

	if err := a.vehicle.Execute(ctx, action.ClimateOn()); err != nil {
		return err
	}
	a.cancelTask(Conditioning + "/reset")
	a.schedule(conditioningTask, a.AutoStopDelay, a.autoStopClimate)
	a.log.Info("Climate on, stopping automatically in %s", a.AutoStopDelay)
	a.publish(Conditioning, true)
	return nil
}

// autoStopClimate turns climate off if the vehicle is parked, then clears the conditioning
// indicator.
func (a *Accessory) autoStopClimate(ctx context.Context) {
	drive, err := a.vehicle.DriveState(ctx)
	switch {
	case err != nil:
		a.log.Error("Couldn't check drive state before stopping climate: %s", err)
	case !drive.Parked():
		a.log.Info("Vehicle is not parked, leaving climate on")
	default:
		if err := a.vehicle.Execute(ctx, action.ClimateOff()); err != nil {
			a.log.Error("Error stopping climate: %s", err)
		} else {
			a.log.Info("Stopped climate after %s", a.AutoStopDelay)
		}
	}
	a.resetAfter(Conditioning, false, a.IndicatorReset)
}

func setConnection(ctx context.Context, a *Accessory, value interface{}) error {
	on, err := asBool(Connection, value)
	if err != nil || !on {
		return err
	}
	state, err := a.vehicle.State(ctx)
	if err != nil {
		return err
	}
	if state != session.StateOnline {
		if err := a.vehicle.Wake(ctx); err != nil {
			return err
		}
	}
	a.publish(Connection, true)
	return nil
}
