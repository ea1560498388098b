package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/action"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

const libraryVersion = "0.3.1"

// DefaultHost serves the owner REST API used for vehicle listings, vehicle data, and commands.
const DefaultHost = "owner-api.teslamotors.com"

func buildUserAgent(app string) string {
	library := "tesla-accessory/" + libraryVersion
	if app != "" {
		return fmt.Sprintf("%s %s", app, library)
	}
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return library
	}
	path := strings.Split(build.Path, "/")
	if len(path) == 0 || path[len(path)-1] == "" {
		return library
	}
	app = path[len(path)-1]
	var version string
	if build.Main.Version != "(devel)" && build.Main.Version != "" {
		version = build.Main.Version
	} else {
		for _, info := range build.Settings {
			if info.Key == "vcs.revision" {
				if len(info.Value) > 8 {
					version = info.Value[0:8]
				}
				break
			}
		}
	}
	if version != "" {
		app = fmt.Sprintf("%s/%s", app, version)
	}
	return fmt.Sprintf("%s %s", app, library)
}

// TokenSource supplies bearer tokens for requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// invalidator is implemented by token sources that can discard a token the server rejected.
type invalidator interface {
	Invalidate()
}

// Account allows interaction with a Tesla account.
type Account struct {
	// The default UserAgent is constructed from the build info, but can be overridden.
	UserAgent string
	Host      string

	tokens TokenSource
	client *http.Client
}

// New returns an [Account] that authorizes requests with tokens from tokens.
// Optional userAgent can be passed in - otherwise it will be generated from code
func New(tokens TokenSource, userAgent string) *Account {
	return &Account{
		UserAgent: buildUserAgent(userAgent),
		Host:      DefaultHost,
		tokens:    tokens,
		client:    &http.Client{},
	}
}

// SetHTTPClient replaces the client used to send requests. Intended for tests and for callers
// that need custom transports.
func (a *Account) SetHTTPClient(client *http.Client) {
	a.client = client
}

func (a *Account) authHeader(ctx context.Context) (string, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + strings.TrimSpace(token), nil
}

func (a *Account) do(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	authHeader, err := a.authHeader(ctx)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("User-Agent", a.UserAgent)
	header.Set("Authorization", authHeader)
	url := fmt.Sprintf("https://%s/%s", a.Host, endpoint)
	rsp, err := sendRequest(ctx, a.client, method, url, header, body)
	if errors.Is(err, protocol.ErrAuth) {
		if inv, ok := a.tokens.(invalidator); ok {
			log.Debug("Server rejected access token, discarding it")
			inv.Invalidate()
		}
	}
	return rsp, err
}

// Get sends an HTTP GET request to endpoint.
//
// The endpoint should contain only the path (e.g., "api/1/vehicles"); the domain is determined
// by a.Host.
func (a *Account) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return a.do(ctx, http.MethodGet, endpoint, nil)
}

// Post sends an HTTP POST request to endpoint. The data must support JSON serialization, or be a
// []byte that's sent as-is. Returns the HTTP body of the response.
func (a *Account) Post(ctx context.Context, endpoint string, data interface{}) ([]byte, error) {
	return a.do(ctx, http.MethodPost, endpoint, data)
}

// envelope wraps every owner API response body.
type envelope struct {
	Response   json.RawMessage `json:"response"`
	Error      string          `json:"error"`
	ErrDetails string          `json:"error_description"`
}

func decodeResponse(body []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrBadResponse, err)
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		if env.Error != "" {
			return fmt.Errorf("%w: %s", protocol.ErrBadResponse, env.Error)
		}
		return fmt.Errorf("%w: empty response", protocol.ErrBadResponse)
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrBadResponse, err)
	}
	return nil
}

// Vehicles lists the vehicles on the account, in the order the server returns them.
func (a *Account) Vehicles(ctx context.Context) ([]Vehicle, error) {
	body, err := a.Get(ctx, "api/1/vehicles")
	if err != nil {
		return nil, err
	}
	var vehicles []Vehicle
	if err := decodeResponse(body, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// VehicleData fetches the full state document of a vehicle. The vehicle must be awake.
func (a *Account) VehicleData(ctx context.Context, id VehicleID) (*VehicleData, error) {
	body, err := a.Get(ctx, fmt.Sprintf("api/1/vehicles/%s/vehicle_data", id))
	if err != nil {
		return nil, err
	}
	var data VehicleData
	if err := decodeResponse(body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DriveState fetches the drive state of a vehicle. The vehicle must be awake.
func (a *Account) DriveState(ctx context.Context, id VehicleID) (*DriveState, error) {
	body, err := a.Get(ctx, fmt.Sprintf("api/1/vehicles/%s/data_request/drive_state", id))
	if err != nil {
		return nil, err
	}
	var state DriveState
	if err := decodeResponse(body, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// WakeUp asks the vehicle to wake up. The server replies immediately with the vehicle's current
// listing; the vehicle typically takes several seconds to come online.
func (a *Account) WakeUp(ctx context.Context, id VehicleID) (*Vehicle, error) {
	body, err := a.Post(ctx, fmt.Sprintf("api/1/vehicles/%s/wake_up", id), nil)
	if err != nil {
		return nil, err
	}
	var vehicle Vehicle
	if err := decodeResponse(body, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// SendCommand sends cmd to a vehicle through the REST API.
//
// A nil error means the server delivered the command; callers must still inspect the
// CommandResponse to learn whether the vehicle executed it.
func (a *Account) SendCommand(ctx context.Context, id VehicleID, cmd *action.Command) (*CommandResponse, error) {
	var params interface{}
	if cmd.Params != nil {
		params = cmd.Params
	}
	body, err := a.Post(ctx, fmt.Sprintf("api/1/vehicles/%s/command/%s", id, cmd.Name), params)
	if err != nil {
		return nil, err
	}
	var rsp CommandResponse
	if err := decodeResponse(body, &rsp); err != nil {
		return nil, err
	}
	return &rsp, nil
}
