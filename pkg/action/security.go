package action

// Lock locks the vehicle's doors.
func Lock() *Command {
	return simple("door_lock")
}

// Unlock unlocks the vehicle's doors.
func Unlock() *Command {
	return simple("door_unlock")
}

// SetSentryMode enables or disables Sentry Mode.
func SetSentryMode(on bool) *Command {
	return &Command{
		Name:   "set_sentry_mode",
		Params: map[string]interface{}{"on": on},
	}
}
