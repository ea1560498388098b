package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// MayHaveSucceeded returns true if the Error was triggered a command that might have been executed.
	// For example, if a client times out while waiting for a response, then the client cannot tell
	// if the command was received. (Not all timeouts mean the command MayHaveSucceeded, so the
	// common Timeout() error interface is not appropriate here).
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient condition. For
	// example, it's not unusual for the car to reject commands while it's in the process of waking
	// from sleep and the services responsible for executing the command are not yet running.
	Temporary() bool
}

var (
	// ErrAuth indicates the refresh token could not be exchanged for an access token.
	ErrAuth = NewError("could not obtain access token", false, true)
	// ErrRemoteUnavailable indicates the vehicle listing could not be retrieved, so the vehicle's
	// identity and presence are unknown.
	ErrRemoteUnavailable = NewError("vehicle listing unavailable", false, true)
	// ErrVehicleAsleep indicates the vehicle could not serve a request, typically because it is
	// asleep or fell asleep while the request was in flight.
	ErrVehicleAsleep = NewError("vehicle unavailable: vehicle is offline or asleep", false, true)
	// ErrWakeTimeout indicates the vehicle did not report itself awake within the polling bound.
	ErrWakeTimeout = NewError("vehicle took too long to wake up", true, true)
	// ErrUnsupportedOperation indicates a request the vehicle cannot perform remotely, such as
	// closing a trunk.
	ErrUnsupportedOperation = NewError("operation not supported remotely", false, false)
	// ErrUnknownFeature indicates the caller referenced an accessory feature that doesn't exist.
	ErrUnknownFeature = NewError("unknown feature", false, false)
	// ErrReadOnly indicates the caller tried to set a feature that can only be read.
	ErrReadOnly = NewError("feature is read-only", false, false)
	// ErrInvalidValue indicates a value outside of a feature's domain.
	ErrInvalidValue = NewError("invalid value for feature", false, false)
	// ErrBadResponse indicates the server returned a document that could not be interpreted.
	ErrBadResponse = errors.New("invalid response")
)

type CommandError struct {
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

func NewError(message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// temporaryReasons lists reasons reported by vehicles that usually clear up without user action.
var temporaryReasons = []string{
	"timeout",
	"vehicle unavailable",
	"could_not_wake_buses",
	"busy",
}

// RemoteError carries the reason a vehicle gave for rejecting a command.
type RemoteError struct {
	Command string
	Reason  string
}

func (e *RemoteError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown error"
	}
	if e.Command == "" {
		return "vehicle rejected command: " + reason
	}
	return fmt.Sprintf("vehicle rejected %s: %s", e.Command, reason)
}

func (e *RemoteError) MayHaveSucceeded() bool {
	return false
}

func (e *RemoteError) Temporary() bool {
	reason := strings.ToLower(e.Reason)
	for _, r := range temporaryReasons {
		if strings.Contains(reason, r) {
			return true
		}
	}
	return false
}

// RemoteReason returns the reason attached to a RemoteError in err's chain, if any.
func RemoteReason(err error) (string, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Reason, true
	}
	return "", false
}

// MayHaveSucceeded returns true if err is a CommandError that indicates the command may have been
// executed but the client did not receive a confirmation from the vehicle.
func MayHaveSucceeded(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.MayHaveSucceeded() {
		return true
	}
	return false
}

// Temporary returns true if err is a CommandError that indicates the command failed due to possibly
// transient conditions that do not require user action to resolve.
func Temporary(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.Temporary() {
		return true
	}
	return false
}

// ShouldRetry returns true if the client should retry to issue the command that triggered an error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		if e.MayHaveSucceeded() {
			return false
		}
		if e.Temporary() {
			return true
		}
	}
	return false
}
