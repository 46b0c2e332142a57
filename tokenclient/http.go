package tokenclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/okta-compat/token-manager/tokenstore"
)

// Sentinel error classes a refresh-grant request can fail with, reused
// verbatim in shape from driver.OAuth2Client's RefreshToken error
// taxonomy: the authorization-server failure modes an OAuth2 refresh
// grant can hit are the same regardless of which API sits behind it.
var (
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired")
	ErrRateLimited         = errors.New("token endpoint rate limit exceeded")
	ErrTokenRevoked        = errors.New("refresh token has been revoked")
	ErrInvalidGrant        = errors.New("invalid grant type or parameters")
	ErrTemporaryFailure    = errors.New("temporary token endpoint failure")
)

// tokenErrorResponse mirrors OAuth2ErrorResponse in the driver
// package this client is grounded on: the standard
// error/error_description/error_uri body an authorization server
// returns on a failed grant.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

type tokenSuccessResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// HTTPClient performs an OAuth2 refresh-grant POST against tokenURL.
// Grounded on driver.OAuth2Client.RefreshToken/attemptRefreshToken:
// same timeout configuration, same status-code-to-sentinel-error
// mapping, same form-encoded grant body.
type HTTPClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken func(key string) (string, bool)
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewHTTPClient returns an HTTPClient posting refresh-grant requests to
// tokenURL. refreshToken looks up the current refresh token value for a
// given tokenKey (the facade's store, typically), since the collaborator
// contract only takes a key, not a token.
func NewHTTPClient(tokenURL, clientID, clientSecret string, refreshToken func(key string) (string, bool), logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Renew exchanges key's current refresh token for a new access (and
// possibly rotated refresh) token.
func (c *HTTPClient) Renew(ctx context.Context, key string) (tokenstore.Token, error) {
	refresh, ok := c.refreshToken(key)
	if !ok || refresh == "" {
		return tokenstore.Token{}, fmt.Errorf("tokenclient: no refresh token available for %q", key)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenstore.Token{}, fmt.Errorf("tokenclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	correlationID := uuid.New().String()
	req.Header.Set("X-Request-Id", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokenstore.Token{}, fmt.Errorf("tokenclient: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return tokenstore.Token{}, c.classifyFailure(resp)
	}

	var body tokenSuccessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return tokenstore.Token{}, fmt.Errorf("tokenclient: decode response: %w", err)
	}

	tok := tokenstore.Token{
		Scopes:       strings.Fields(body.Scope),
		ExpiresAt:    time.Now().Unix() + body.ExpiresIn,
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		IDToken:      body.IDToken,
	}
	if len(tok.Scopes) == 0 {
		tok.Scopes = []string{"openid"}
	}
	if body.IDToken != "" {
		if claims, err := decodeClaims(body.IDToken); err == nil {
			tok.Claims = claims
		}
	}

	c.logger.Info("token renewed via HTTP client", "key", key, "request_id", correlationID, "expires_in", body.ExpiresIn)
	return tok, nil
}

func (c *HTTPClient) classifyFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		var oauthErr tokenErrorResponse
		if json.Unmarshal(raw, &oauthErr) == nil && oauthErr.Error == "invalid_grant" {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("%w: %s", ErrInvalidRefreshToken, string(raw))
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrTokenRevoked, string(raw))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, resp.Header.Get("Retry-After"))
	case http.StatusBadRequest:
		var oauthErr tokenErrorResponse
		if json.Unmarshal(raw, &oauthErr) == nil {
			return fmt.Errorf("%w: %s", ErrInvalidGrant, oauthErr.ErrorDescription)
		}
		return fmt.Errorf("%w: %s", ErrInvalidGrant, string(raw))
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrTemporaryFailure, resp.StatusCode)
	default:
		return fmt.Errorf("tokenclient: refresh failed with status %d: %s", resp.StatusCode, string(raw))
	}
}

// decodeClaims parses an id_token's claims without verifying its
// signature — this module never validates JWT signatures, it only
// surfaces claims for display, exactly the jwt.ParseUnverified use case.
func decodeClaims(idToken string) (map[string]any, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
