// Package client talks to the drawing API over HTTP.
package client

import (
	"bytes"
	"context"
	"drawboard-server/core"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient uses
// one with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type createDrawingRequest struct {
	UserID    *int64 `json:"userId,omitempty"`
	Name      string `json:"name"`
	Data      string `json:"data"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (c *Client) CreateDrawing(ctx context.Context, nd *core.NewDrawing) (*core.Drawing, error) {
	var d core.Drawing
	err := c.do(ctx, http.MethodPost, "/api/drawings", createDrawingRequest{
		UserID:    nd.UserID,
		Name:      nd.Name,
		Data:      nd.Data,
		CreatedAt: nd.CreatedAt,
		UpdatedAt: nd.UpdatedAt,
	}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GetDrawing(ctx context.Context, id int64) (*core.Drawing, error) {
	var d core.Drawing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/drawings/%d", id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateDrawing(ctx context.Context, id int64, data string) (*core.Drawing, error) {
	var d core.Drawing
	body := map[string]string{"data": data}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/drawings/%d", id), body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDrawings returns all drawings, most recently updated first.
func (c *Client) ListDrawings(ctx context.Context) ([]*core.Drawing, error) {
	var drawings []*core.Drawing
	if err := c.do(ctx, http.MethodGet, "/api/drawings", nil, &drawings); err != nil {
		return nil, err
	}
	return drawings, nil
}

func (c *Client) ListUserDrawings(ctx context.Context, userID int64) ([]*core.Drawing, error) {
	var drawings []*core.Drawing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/drawings", userID), nil, &drawings); err != nil {
		return nil, err
	}
	return drawings, nil
}

func (c *Client) CreateUser(ctx context.Context, username, password string) (*core.User, error) {
	var u core.User
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn(apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
