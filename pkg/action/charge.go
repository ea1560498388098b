package action

// ChargeStart starts charging.
func ChargeStart() *Command {
	return simple("charge_start")
}

// ChargeStop stops charging.
func ChargeStop() *Command {
	return simple("charge_stop")
}

// ChargePortOpen opens the charge port door (and unlatches the cable).
func ChargePortOpen() *Command {
	return simple("charge_port_door_open")
}

// ChargePortClose closes the charge port door.
func ChargePortClose() *Command {
	return simple("charge_port_door_close")
}
