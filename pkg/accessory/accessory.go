// Package accessory exposes a vehicle as a set of named features that a smart-home bridge can
// read and write.
//
// Reads report a safe default while the vehicle is not online so that bridges polling an idle
// vehicle don't wake it. Writes send a remote command and, on success, publish the new value to
// subscribers without waiting for the next snapshot.
package accessory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
	"github.com/teslamotors/vehicle-accessory/pkg/session"
)

const (
	DefaultAutoStopDelay  = 10 * time.Minute
	DefaultIndicatorReset = 300 * time.Millisecond
	DefaultLightsReset    = time.Second
)

// Vehicle is the session an Accessory reads from and commands. It is implemented by
// *session.Session.
type Vehicle interface {
	State(ctx context.Context) (session.State, error)
	SnapshotDeduped(ctx context.Context) (*account.VehicleData, error)
	Latest() *account.VehicleData
	Execute(ctx context.Context, cmd *action.Command) error
	DriveState(ctx context.Context) (*account.DriveState, error)
	Wake(ctx context.Context) error
}

var _ Vehicle = (*session.Session)(nil)

// Update notifies subscribers that a feature changed without a fresh snapshot.
type Update struct {
	Feature string
	Value   interface{}
}

// Accessory serves the features of one vehicle. Methods are safe for concurrent use.
type Accessory struct {
	Name string

	// AutoStopDelay is how long climate conditioning runs before it's stopped automatically.
	AutoStopDelay time.Duration
	// IndicatorReset is the delay before charging and conditioning indicators fall back to off.
	IndicatorReset time.Duration
	// LightsReset is the delay before the lights indicator falls back to off.
	LightsReset time.Duration

	vehicle  Vehicle
	log      log.Logger
	features map[string]*Feature
	order    []string

	ctx    context.Context
	cancel context.CancelFunc

	lock        sync.Mutex
	closed      bool
	values      map[string]interface{}
	timers      map[string]*time.Timer
	subscribers []func(Update)
}

// New returns an Accessory named name that serves every feature in the default feature table.
func New(name string, vehicle Vehicle) *Accessory {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Accessory{
		Name:           name,
		AutoStopDelay:  DefaultAutoStopDelay,
		IndicatorReset: DefaultIndicatorReset,
		LightsReset:    DefaultLightsReset,
		vehicle:        vehicle,
		log:            log.Named(name),
		features:       make(map[string]*Feature),
		ctx:            ctx,
		cancel:         cancel,
		values:         make(map[string]interface{}),
		timers:         make(map[string]*time.Timer),
	}
	for _, f := range features() {
		a.features[f.Name] = f
		a.order = append(a.order, f.Name)
	}
	return a
}

// Features lists feature names in table order.
func (a *Accessory) Features() []string {
	return append([]string(nil), a.order...)
}

// Feature returns the named feature.
func (a *Accessory) Feature(name string) (*Feature, error) {
	f, ok := a.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownFeature, name)
	}
	return f, nil
}

// Get reads a feature.
func (a *Accessory) Get(ctx context.Context, name string) (interface{}, error) {
	f, err := a.Feature(name)
	if err != nil {
		return nil, err
	}
	if f.Get != nil {
		return f.Get(ctx, a)
	}

	state, err := a.vehicle.State(ctx)
	if err != nil {
		value := f.Default(a)
		a.log.Warning("Couldn't determine vehicle state, reporting %s=%v: %s", name, value, err)
		return value, nil
	}
	if state != session.StateOnline {
		value := f.Default(a)
		a.log.Debug("Vehicle is %s, reporting %s=%v", state, name, value)
		return value, nil
	}

	data, err := a.vehicle.SnapshotDeduped(ctx)
	if err != nil {
		return nil, err
	}
	return f.Read(data)
}

// Set writes a feature.
func (a *Accessory) Set(ctx context.Context, name string, value interface{}) error {
	f, err := a.Feature(name)
	if err != nil {
		return err
	}
	if f.Set != nil {
		if err = f.Set(ctx, a, value); err != nil {
			a.log.Error("Error setting %s: %s", name, err)
		}
		return err
	}
	if f.Command == nil {
		return fmt.Errorf("%w: %s", protocol.ErrReadOnly, name)
	}

	cmd, err := f.Command(a, value)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}
	if err = a.vehicle.Execute(ctx, cmd); err != nil {
		reason, rejected := protocol.RemoteReason(err)
		if !rejected || f.Accept == nil || !f.Accept(a, reason) {
			if protocol.Temporary(err) {
				a.log.Warning("Vehicle couldn't set %s right now: %s", name, err)
			} else {
				a.log.Error("Error setting %s: %s", name, err)
			}
			return err
		}
		a.log.Info("Vehicle reported %s for %s, treating as success", reason, cmd)
		return nil
	}
	a.log.Info("Set %s to %v", name, value)
	if f.Applied != nil {
		f.Applied(a, value)
	}
	return nil
}

// Subscribe registers fn to receive feature updates. fn must not block.
func (a *Accessory) Subscribe(fn func(Update)) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// publish records value as the current local value of feature and notifies subscribers.
func (a *Accessory) publish(feature string, value interface{}) {
	a.lock.Lock()
	a.values[feature] = value
	subscribers := append([]func(Update){}, a.subscribers...)
	a.lock.Unlock()

	for _, fn := range subscribers {
		fn(Update{Feature: feature, Value: value})
	}
}

func (a *Accessory) localValue(feature string, fallback interface{}) interface{} {
	a.lock.Lock()
	defer a.lock.Unlock()
	if v, ok := a.values[feature]; ok {
		return v
	}
	return fallback
}

// schedule runs fn after d, replacing any pending task with the same key. fn receives a context
// that's cancelled by Close.
func (a *Accessory) schedule(key string, d time.Duration, fn func(ctx context.Context)) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.closed {
		return
	}
	if pending, ok := a.timers[key]; ok {
		pending.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		a.lock.Lock()
		if a.timers[key] != timer {
			a.lock.Unlock()
			return
		}
		delete(a.timers, key)
		a.lock.Unlock()
		fn(a.ctx)
	})
	a.timers[key] = timer
}

// resetAfter publishes value for feature after d.
func (a *Accessory) resetAfter(feature string, value interface{}, d time.Duration) {
	a.schedule(feature+"/reset", d, func(context.Context) {
		a.publish(feature, value)
	})
}

// cancelTask stops the pending task with key. Returns false if there wasn't one.
func (a *Accessory) cancelTask(key string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	timer, ok := a.timers[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(a.timers, key)
	return true
}

func (a *Accessory) pending(key string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	_, ok := a.timers[key]
	return ok
}

// Close cancels every pending background task. The Accessory can still serve reads and writes
// afterwards, but no new background tasks are started.
func (a *Accessory) Close() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.closed = true
	for key, timer := range a.timers {
		timer.Stop()
		delete(a.timers, key)
	}
	a.cancel()
}
