package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teslamotors/vehicle-accessory/internal/log"
	"github.com/teslamotors/vehicle-accessory/pkg/cache"
	"github.com/teslamotors/vehicle-accessory/pkg/protocol"
)

const (
	// DefaultAuthEndpoint exchanges refresh tokens for access tokens.
	DefaultAuthEndpoint = "https://auth.tesla.com/oauth2/v3/token"
	// TokenTTL is the longest an access token is reused before it's exchanged again.
	TokenTTL = time.Hour

	oauthClientID    = "ownerapi"
	oauthScope       = "openid email offline_access"
	mobileAppAgent   = "TeslaApp/3.4.4-350/fad4a582e/android/8.1.0"
	mobileWebViewUA  = "Mozilla/5.0 (Linux; Android 8.1.0; Pixel XL Build/OPM4.171019.021.D1; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/68.0.3440.91 Mobile Safari/537.36"
	refreshGrantType = "refresh_token"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenCache exchanges a long-lived refresh token for access tokens and caches the result for up
// to TokenTTL. It implements [TokenSource].
//
// Failed exchanges are not retried; the next call to Token tries again.
type TokenCache struct {
	Endpoint string

	client       *http.Client
	lock         sync.Mutex
	refreshToken string
	token        *cache.Value[string]
}

// NewTokenCache returns a TokenCache that exchanges refreshToken at DefaultAuthEndpoint.
func NewTokenCache(refreshToken string) *TokenCache {
	return &TokenCache{
		Endpoint:     DefaultAuthEndpoint,
		client:       &http.Client{Timeout: 30 * time.Second},
		refreshToken: refreshToken,
		token:        cache.New[string](TokenTTL),
	}
}

// SetHTTPClient replaces the client used for token exchanges.
func (c *TokenCache) SetHTTPClient(client *http.Client) {
	c.client = client
}

// RefreshToken returns the refresh token the next exchange will use. Servers may rotate refresh
// tokens, so this can differ from the one the cache was created with.
func (c *TokenCache) RefreshToken() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.refreshToken
}

// Invalidate discards the cached access token.
func (c *TokenCache) Invalidate() {
	c.token.Clear()
}

// Token returns a cached access token, exchanging the refresh token if the cached one is missing
// or expired. Concurrent callers wait for a single exchange.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if token, ok := c.token.Load(); ok {
		return token, nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if token, ok := c.token.Load(); ok {
		return token, nil
	}

	rsp, err := c.exchange(ctx)
	if err != nil {
		log.Error("Error refreshing access token: %s", err)
		return "", err
	}
	if rsp.RefreshToken != "" && rsp.RefreshToken != c.refreshToken {
		log.Debug("Server rotated refresh token")
		c.refreshToken = rsp.RefreshToken
	}
	c.token.StoreUntil(rsp.AccessToken, tokenExpiry(rsp.AccessToken))
	return rsp.AccessToken, nil
}

// tokenExpiry returns the exp claim of a JWT access token, or the zero time if the token isn't a
// JWT. The signature isn't checked; the server that issued the token is the one that verifies it.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		log.Debug("Access token is not a JWT, using default lifetime: %s", err)
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *TokenCache) exchange(ctx context.Context) (*tokenResponse, error) {
	if c.refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token configured", protocol.ErrAuth)
	}
	request := tokenRequest{
		GrantType:    refreshGrantType,
		ClientID:     oauthClientID,
		RefreshToken: c.refreshToken,
		Scope:        oauthScope,
	}
	header := http.Header{}
	header.Set("User-Agent", mobileWebViewUA)
	header.Set("X-Tesla-User-Agent", mobileAppAgent)
	log.Debug("Exchanging refresh token at %s", c.Endpoint)
	body, err := sendRequest(ctx, c.client, http.MethodPost, c.Endpoint, header, &request)
	if errors.Is(err, protocol.ErrAuth) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrAuth, err)
	}
	var rsp tokenResponse
	if err := json.Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrAuth, err)
	}
	if rsp.AccessToken == "" {
		return nil, fmt.Errorf("%w: server did not return an access token", protocol.ErrAuth)
	}
	return &rsp, nil
}
