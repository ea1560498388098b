package accessory

import (
	"context"

	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
)

// Feature describes how one vehicle capability is read and written.
//
// Reads use Get if it's set. Otherwise they report Default while the vehicle isn't online and
// Read applied to a snapshot when it is.
//
// Writes use Set if it's set. Otherwise Command builds the remote command, and Applied runs once
// the vehicle accepts it. When the vehicle rejects a command, Accept may still treat the
// vehicle's reason as success. Features with neither Set nor Command are read-only.
type Feature struct {
	Name        string
	Description string

	Default func(a *Accessory) interface{}
	Read    func(data *account.VehicleData) (interface{}, error)
	Get     func(ctx context.Context, a *Accessory) (interface{}, error)

	// Command returns nil if value requires no remote command.
	Command func(a *Accessory, value interface{}) (*action.Command, error)
	Accept  func(a *Accessory, reason string) bool
	Applied func(a *Accessory, value interface{})
	Set     func(ctx context.Context, a *Accessory, value interface{}) error

	// Parse converts user input into a value accepted by writes.
	Parse func(text string) (interface{}, error)
}

// Writable reports whether the feature accepts writes.
func (f *Feature) Writable() bool {
	return f.Set != nil || f.Command != nil
}

func constant(v interface{}) func(*Accessory) interface{} {
	return func(*Accessory) interface{} { return v }
}

// lastKnown reports the feature from the most recent snapshot, or fallback if there isn't one.
func lastKnown(read func(*account.VehicleData) (interface{}, error), fallback interface{}) func(*Accessory) interface{} {
	return func(a *Accessory) interface{} {
		if data := a.vehicle.Latest(); data != nil {
			if v, err := read(data); err == nil {
				return v
			}
		}
		return fallback
	}
}

func local(name string, fallback interface{}) func(context.Context, *Accessory) (interface{}, error) {
	return func(_ context.Context, a *Accessory) (interface{}, error) {
		return a.localValue(name, fallback), nil
	}
}

func publishes(name string) func(*Accessory, interface{}) {
	return func(a *Accessory, v interface{}) {
		a.publish(name, v)
	}
}

// toggle builds a command for a boolean feature.
func toggle(name string, on, off func() *action.Command) func(*Accessory, interface{}) (*action.Command, error) {
	return func(_ *Accessory, value interface{}) (*action.Command, error) {
		b, err := asBool(name, value)
		if err != nil {
			return nil, err
		}
		if b {
			return on(), nil
		}
		return off(), nil
	}
}

// flag builds a command for a boolean feature whose command takes the value as a parameter.
func flag(name string, build func(bool) *action.Command) func(*Accessory, interface{}) (*action.Command, error) {
	return func(_ *Accessory, value interface{}) (*action.Command, error) {
		b, err := asBool(name, value)
		if err != nil {
			return nil, err
		}
		return build(b), nil
	}
}
