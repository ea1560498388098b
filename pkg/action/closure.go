package action

// Closure represents a part of the vehicle that opens and closes.
type Closure string

const (
	ClosureTrunk Closure = "rear"
	ClosureFrunk Closure = "front"
)

// ActuateTrunk opens the rear trunk or the frunk. Closing is not available remotely on all
// vehicles, and the frunk can never be closed remotely.
func ActuateTrunk(which Closure) *Command {
	return &Command{
		Name:   "actuate_trunk",
		Params: map[string]interface{}{"which_trunk": string(which)},
	}
}

// OpenTrunk opens the rear trunk.
func OpenTrunk() *Command {
	return ActuateTrunk(ClosureTrunk)
}

// OpenFrunk opens the frunk.
func OpenFrunk() *Command {
	return ActuateTrunk(ClosureFrunk)
}
