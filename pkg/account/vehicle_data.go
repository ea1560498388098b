package account

import (
	"encoding/json"
)

// VehicleID identifies a vehicle in REST endpoint paths. It is not a VIN.
type VehicleID string

// Vehicle is an entry of the account's vehicle listing.
type Vehicle struct {
	ID          json.Number `json:"id"`
	IDString    string      `json:"id_s"`
	VehicleID   json.Number `json:"vehicle_id"`
	VIN         string      `json:"vin"`
	DisplayName string      `json:"display_name"`
	// State is "online", "asleep", or "offline".
	State string `json:"state"`
}

// Identifier returns the id used in endpoint paths. The string form is preferred because numeric
// ids can exceed the precision some JSON encoders use.
func (v *Vehicle) Identifier() VehicleID {
	if v.IDString != "" {
		return VehicleID(v.IDString)
	}
	return VehicleID(v.ID.String())
}

// VehicleData is the document returned by the vehicle_data endpoint. Only fields used by the
// accessory are decoded.
type VehicleData struct {
	ID           json.Number  `json:"id"`
	VehicleID    json.Number  `json:"vehicle_id"`
	VIN          string       `json:"vin"`
	State        string       `json:"state"`
	ClimateState ClimateState `json:"climate_state"`
	VehicleState VehicleState `json:"vehicle_state"`
	ChargeState  *ChargeState `json:"charge_state"`
	DriveState   DriveState   `json:"drive_state"`
}

type ClimateState struct {
	InsideTemp           *float64 `json:"inside_temp"`
	OutsideTemp          *float64 `json:"outside_temp"`
	DriverTempSetting    float64  `json:"driver_temp_setting"`
	PassengerTempSetting float64  `json:"passenger_temp_setting"`
	IsAutoConditioningOn bool     `json:"is_auto_conditioning_on"`
	IsClimateOn          bool     `json:"is_climate_on"`
	IsFrontDefrosterOn   bool     `json:"is_front_defroster_on"`
}

// VehicleState holds closure and security fields. Trunk and window fields are non-zero when
// open.
type VehicleState struct {
	Locked          bool `json:"locked"`
	FrontTrunk      int  `json:"ft"`
	RearTrunk       int  `json:"rt"`
	DriverFrontWin  int  `json:"fd_window"`
	PassFrontWin    int  `json:"fp_window"`
	DriverRearWin   int  `json:"rd_window"`
	PassRearWin     int  `json:"rp_window"`
	SentryMode      bool `json:"sentry_mode"`
	SentryAvailable bool `json:"sentry_mode_available"`
}

type ChargeState struct {
	BatteryLevel       *int    `json:"battery_level"`
	ChargeRate         float64 `json:"charge_rate"`
	ChargingState      string  `json:"charging_state"`
	ChargePortLatch    string  `json:"charge_port_latch"`
	ChargePortDoorOpen bool    `json:"charge_port_door_open"`
	ChargeLimitSOC     int     `json:"charge_limit_soc"`
}

type DriveState struct {
	// ShiftState is "P", "D", "R", "N", or null when the vehicle is parked and idle.
	ShiftState *string  `json:"shift_state"`
	Speed      *float64 `json:"speed"`
}

// Parked reports whether the vehicle is not in gear.
func (d *DriveState) Parked() bool {
	return d.ShiftState == nil || *d.ShiftState == "" || *d.ShiftState == "P"
}

// CommandResponse is the vehicle's reply to a command.
type CommandResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// OK reports whether the vehicle executed the command. A reason means the command did not take
// effect, even when result is set.
func (r *CommandResponse) OK() bool {
	return r.Result && r.Reason == ""
}
