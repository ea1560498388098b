package action

// HonkHorn honks the vehicle's horn.
func HonkHorn() *Command {
	return simple("honk_horn")
}

// FlashLights flashes the vehicle's exterior lights.
func FlashLights() *Command {
	return simple("flash_lights")
}

// WindowCommand selects a window_control operation.
type WindowCommand string

const (
	WindowVent  WindowCommand = "vent"
	WindowClose WindowCommand = "close"
)

// WindowControl vents or closes the windows. Closing requires the vehicle to be near the provided
// coordinates.
func WindowControl(command WindowCommand, latitude, longitude float64) *Command {
	return &Command{
		Name: "window_control",
		Params: map[string]interface{}{
			"command": string(command),
			"lat":     latitude,
			"lon":     longitude,
		},
	}
}

// VentWindows cracks the windows on the vehicle.
//
// The request carries a (0, 0) location because the accessory does not track the user's position.
func VentWindows() *Command {
	return WindowControl(WindowVent, 0, 0)
}

// CloseWindows closes the windows on the vehicle. See VentWindows regarding location.
func CloseWindows() *Command {
	return WindowControl(WindowClose, 0, 0)
}
