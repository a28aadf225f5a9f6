// Package client calls the server's HTTP API on behalf of a user. The
// admin CLI uses it so that session changes go through the running hub
// and reach connected clients.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/models"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Client signs a short-lived identity token for each call with the
// server's secret.
type Client struct {
	baseURL string
	issuer  *auth.Issuer
	http    *http.Client
}

// New creates a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func New(baseURL string, issuer *auth.Issuer, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), issuer: issuer, http: hc}
}

// ListSessions returns userID's live sessions.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]models.SharedSession, error) {
	var out struct {
		Sessions []models.SharedSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/share/sessions", userID, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// RevokeSession ends sessionID as userID. The server notifies both parties.
func (c *Client) RevokeSession(ctx context.Context, sessionID, userID string) (*models.SharedSession, error) {
	var sess models.SharedSession
	path := "/api/share/sessions/" + url.PathEscape(sessionID) + "/revoke"
	if err := c.do(ctx, http.MethodPost, path, userID, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) do(ctx context.Context, method, path, userID string, out interface{}) error {
	token, _, err := c.issuer.Issue(models.Identity{ID: userID})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
