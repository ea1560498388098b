package action

// ClimateOn turns on the climate control system.
func ClimateOn() *Command {
	return simple("auto_conditioning_start")
}

// ClimateOff turns off the climate control system.
func ClimateOff() *Command {
	return simple("auto_conditioning_stop")
}

// ChangeClimateTemp sets the desired cabin temperature in degrees Celsius.
func ChangeClimateTemp(driverCelsius, passengerCelsius float32) *Command {
	return &Command{
		Name: "set_temps",
		Params: map[string]interface{}{
			"driver_temp":    driverCelsius,
			"passenger_temp": passengerCelsius,
		},
	}
}

// SetPreconditioningMax turns maximum defrost on or off.
func SetPreconditioningMax(on bool) *Command {
	return &Command{
		Name:   "set_preconditioning_max",
		Params: map[string]interface{}{"on": on},
	}
}
