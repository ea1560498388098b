package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

// MaxResponseLength caps the byte-length of response bodies. Vehicle data documents are
// typically a few kilobytes.
const MaxResponseLength = 1000000

type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s: %s", http.StatusText(e.Code), e.Message)
}

func (e *HttpError) MayHaveSucceeded() bool {
	if e.Code >= 400 && e.Code < 500 {
		return false
	}
	return e.Code != http.StatusServiceUnavailable
}

func (e *HttpError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code == http.StatusBadGateway
}

// sendRequest sends payload (JSON-encoded unless it's a []byte) with the provided headers and
// returns the response body of successful requests.
func sendRequest(ctx context.Context, client *http.Client, method, url string, header http.Header, payload interface{}) ([]byte, error) {
	// Token exchanges carry credentials in the body, so only authorized API calls log bodies.
	redact := header.Get("Authorization") == ""
	var reader io.Reader
	if payload != nil {
		body, ok := payload.([]byte)
		if !ok {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				return nil, err
			}
		}
		if redact {
			log.Debug("Sending %s request to %s (%d bytes)", method, url, len(body))
		} else {
			log.Debug("Sending %s request to %s: %s", method, url, body)
		}
		reader = bytes.NewReader(body)
	} else {
		log.Debug("Sending %s request to %s", method, url)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: false, PossibleTemporary: false}
	}
	for name, values := range header {
		request.Header[name] = values
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "*/*")

	result, err := client.Do(request)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: method != http.MethodGet, PossibleTemporary: true}
	}
	defer result.Body.Close()

	limited := io.LimitedReader{R: result.Body, N: MaxResponseLength + 1}
	body, err := io.ReadAll(&limited)
	if err != nil {
		return nil, &protocol.CommandError{Err: err, PossibleSuccess: method != http.MethodGet, PossibleTemporary: false}
	}
	if len(body) == MaxResponseLength+1 {
		return nil, protocol.NewError("response exceeds maximum length", true, true)
	}

	if redact {
		log.Debug("Server returned %d: %s (%d bytes)", result.StatusCode, http.StatusText(result.StatusCode), len(body))
	} else {
		log.Debug("Server returned %d: %s: %s", result.StatusCode, http.StatusText(result.StatusCode), body)
	}
	switch result.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusRequestTimeout, http.StatusServiceUnavailable:
		// The owner API answers 408 "vehicle unavailable" while the car sleeps.
		return nil, fmt.Errorf("%w: %w", protocol.ErrVehicleAsleep, &HttpError{Code: result.StatusCode, Message: string(body)})
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", protocol.ErrAuth, &HttpError{Code: result.StatusCode, Message: string(body)})
	}
	return nil, &HttpError{Code: result.StatusCode, Message: string(body)}
}
