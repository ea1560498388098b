// Package session manages a single vehicle on behalf of an accessory.
//
// The remote API is slow and the vehicle is usually asleep, so a [Session] caches the vehicle's
// identifier and coarse presence for a few seconds, wakes the vehicle with a bounded polling
// loop, and coalesces concurrent vehicle data requests into a single remote call.
package session

//go:generate mockgen -package mocks -destination ../../mocks/session_api.go -mock_names API=SessionAPI . API

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/account"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
	"github.com/teslamotors/vehicle-accessory/pkg/cache"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

const (
	DefaultIdentityTTL  = 10 * time.Second
	DefaultPresenceTTL  = 10 * time.Second
	DefaultWakeInterval = 5 * time.Second
	DefaultPollInterval = time.Second
	DefaultMaxWakePolls = 20
	DefaultTimeout      = 10 * time.Second
)

const (
	listingKey  = "listing"
	snapshotKey = "snapshot"
)

// API is the subset of the remote vehicle API used by a Session. It is implemented by
// *account.Account.
type API interface {
	Vehicles(ctx context.Context) ([]account.Vehicle, error)
	VehicleData(ctx context.Context, id account.VehicleID) (*account.VehicleData, error)
	DriveState(ctx context.Context, id account.VehicleID) (*account.DriveState, error)
	WakeUp(ctx context.Context, id account.VehicleID) (*account.Vehicle, error)
	SendCommand(ctx context.Context, id account.VehicleID, cmd *action.Command) (*account.CommandResponse, error)
}

var _ API = (*account.Account)(nil)

// Session tracks one vehicle. Methods are safe for concurrent use.
type Session struct {
	// VIN is informational. The first vehicle on the account is always selected; if VIN is set
	// and doesn't match, a warning is logged.
	VIN string
	// Timeout bounds each remote call.
	Timeout time.Duration
	// WakeInterval is the minimum time between wake commands.
	WakeInterval time.Duration
	// PollInterval is the delay between presence polls while waking.
	PollInterval time.Duration
	// MaxWakePolls bounds the number of presence polls in one wake sequence.
	MaxWakePolls int
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	api       API
	log       log.Logger
	vehicleID *cache.Value[account.VehicleID]
	presence  *cache.Value[State]
	waking    atomic.Int32
	vinWarned atomic.Bool
	group     singleflight.Group

	wakeLock sync.Mutex
	lastWake time.Time

	lock     sync.Mutex
	snapshot *account.VehicleData
}

// New returns a Session that talks to api. Log messages are prefixed with name.
func New(api API, name string) *Session {
	s := &Session{
		Timeout:      DefaultTimeout,
		WakeInterval: DefaultWakeInterval,
		PollInterval: DefaultPollInterval,
		MaxWakePolls: DefaultMaxWakePolls,
		api:          api,
		log:          log.Named(name),
		vehicleID:    cache.New[account.VehicleID](DefaultIdentityTTL),
		presence:     cache.New[State](DefaultPresenceTTL),
	}
	s.vehicleID.Clock = s.now
	s.presence.Clock = s.now
	return s
}

func (s *Session) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// shared runs fn once for all concurrent callers using the same key. fn runs under a context
// that outlives any single caller, so a caller giving up doesn't fail the others.
func (s *Session) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := s.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		return fn(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		return result.Val, result.Err
	}
}

// refreshListing fetches the vehicle listing and refreshes both the identity and presence
// caches from its first entry.
func (s *Session) refreshListing(ctx context.Context) (*account.Vehicle, error) {
	val, err := s.shared(ctx, listingKey, func(ctx context.Context) (interface{}, error) {
		vehicles, err := s.api.Vehicles(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", protocol.ErrRemoteUnavailable, err)
		}
		if len(vehicles) == 0 {
			return nil, fmt.Errorf("%w: no vehicles on account", protocol.ErrRemoteUnavailable)
		}
		vehicle := vehicles[0]
		if s.VIN != "" && vehicle.VIN != s.VIN && !s.vinWarned.Swap(true) {
			s.log.Warning("Configured VIN %s does not match first vehicle on account (%s); using %s", s.VIN, vehicle.VIN, vehicle.VIN)
		}
		s.vehicleID.Store(vehicle.Identifier())
		s.presence.Store(parseState(vehicle.State))
		return &vehicle, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*account.Vehicle), nil
}

// VehicleID returns the identifier of the first vehicle on the account.
func (s *Session) VehicleID(ctx context.Context) (account.VehicleID, error) {
	if id, ok := s.vehicleID.Load(); ok {
		return id, nil
	}
	vehicle, err := s.refreshListing(ctx)
	if err != nil {
		return "", err
	}
	return vehicle.Identifier(), nil
}

// State returns the vehicle's presence as of at most PresenceTTL ago. While a wake sequence is
// running, a vehicle that hasn't come online yet is reported as StateWaking.
func (s *Session) State(ctx context.Context) (State, error) {
	state, ok := s.presence.Load()
	if ok {
		if age, known := s.presence.Age(); known {
			s.log.Debug("Vehicle was %s %s ago", state, age)
		}
	} else {
		vehicle, err := s.refreshListing(ctx)
		if err != nil {
			if last, known := s.presence.Peek(); known {
				s.log.Debug("Couldn't refresh vehicle state, last reported %s", last)
			}
			return StateUnknown, err
		}
		state = parseState(vehicle.State)
	}
	if state != StateOnline && s.waking.Load() > 0 {
		return StateWaking, nil
	}
	return state, nil
}

// Online reports whether the vehicle is awake.
func (s *Session) Online(ctx context.Context) (bool, error) {
	state, err := s.State(ctx)
	return state == StateOnline, err
}

func (s *Session) sendWake(ctx context.Context, id account.VehicleID) error {
	s.wakeLock.Lock()
	now := s.now()
	if !s.lastWake.IsZero() && now.Sub(s.lastWake) < s.WakeInterval {
		s.wakeLock.Unlock()
		s.log.Debug("Wake command sent %s ago, not sending another", now.Sub(s.lastWake))
		return nil
	}
	s.lastWake = now
	s.wakeLock.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	s.log.Info("Waking vehicle")
	if _, err := s.api.WakeUp(ctx, id); err != nil {
		return fmt.Errorf("sending wake command: %w", err)
	}
	return nil
}

// WakeUp sends a wake command, unless one was sent within the last WakeInterval, and then polls
// the vehicle listing until the vehicle no longer reports itself asleep. Polling gives up after
// MaxWakePolls attempts with protocol.ErrWakeTimeout.
func (s *Session) WakeUp(ctx context.Context, id account.VehicleID) error {
	s.waking.Add(1)
	defer s.waking.Add(-1)

	if err := s.sendWake(ctx, id); err != nil {
		return err
	}

	for i := 0; i < s.MaxWakePolls; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.PollInterval):
			}
		}
		vehicle, err := s.refreshListing(ctx)
		if err != nil {
			return err
		}
		if state := parseState(vehicle.State); state != StateAsleep {
			s.log.Info("Vehicle is %s after %d polls", state, i+1)
			return nil
		}
	}
	s.log.Warning("Vehicle did not wake up after %d polls", s.MaxWakePolls)
	return protocol.ErrWakeTimeout
}

// Wake resolves the vehicle and runs WakeUp.
func (s *Session) Wake(ctx context.Context) error {
	id, err := s.VehicleID(ctx)
	if err != nil {
		return err
	}
	return s.WakeUp(ctx, id)
}

func (s *Session) fetchSnapshot(ctx context.Context) (*account.VehicleData, error) {
	id, err := s.VehicleID(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	data, err := s.api.VehicleData(ctx, id)
	if err != nil {
		if errors.Is(err, protocol.ErrAuth) || errors.Is(err, protocol.ErrVehicleAsleep) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", protocol.ErrVehicleAsleep, err)
	}
	s.lock.Lock()
	s.snapshot = data
	s.lock.Unlock()
	s.presence.Store(StateOnline)
	return data, nil
}

// Snapshot fetches a fresh vehicle data document. The vehicle must be awake.
func (s *Session) Snapshot(ctx context.Context) (*account.VehicleData, error) {
	return s.fetchSnapshot(ctx)
}

// SnapshotDeduped is like Snapshot, but callers that arrive while a fetch is in flight wait for
// and share its result.
func (s *Session) SnapshotDeduped(ctx context.Context) (*account.VehicleData, error) {
	val, err := s.shared(ctx, snapshotKey, func(ctx context.Context) (interface{}, error) {
		return s.fetchSnapshot(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.(*account.VehicleData), nil
}

// Latest returns the most recently fetched snapshot, or nil. Callers must not modify it.
func (s *Session) Latest() *account.VehicleData {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.snapshot
}

// Execute sends cmd to the vehicle. If the vehicle rejects the command, the returned error is a
// *protocol.RemoteError carrying the vehicle's reason.
func (s *Session) Execute(ctx context.Context, cmd *action.Command) error {
	id, err := s.VehicleID(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	s.log.Debug("Sending %s", cmd)
	rsp, err := s.api.SendCommand(ctx, id, cmd)
	if err != nil {
		return fmt.Errorf("sending %s: %w", cmd, err)
	}
	if !rsp.OK() {
		return &protocol.RemoteError{Command: cmd.Name, Reason: rsp.Reason}
	}
	return nil
}

// DriveState fetches the vehicle's drive state.
func (s *Session) DriveState(ctx context.Context) (*account.DriveState, error) {
	id, err := s.VehicleID(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.api.DriveState(ctx, id)
}
