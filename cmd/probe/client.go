package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/service"
)

// Client talks to a running knightboard server.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return errors.Errorf("%s %s failed: %s - %s", method, path, resp.Status, apiErr.Error)
		}
		return errors.Errorf("%s %s failed: %s - %s", method, path, resp.Status, string(data))
	}
	if result == nil {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(data, result), "parse %s response", path)
}

func (c *Client) CreateSession(ctx context.Context, req service.CreateSessionRequest) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil, nil)
}

func (c *Client) Plan(ctx context.Context, id string, req service.PlanRequest) (*service.PlanResult, error) {
	var result service.PlanResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/plan", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Tour(ctx context.Context, id string, req service.TourRequest) (*service.TourResult, error) {
	var result service.TourResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/tour", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Validate(ctx context.Context, id string, path []board.Coord) (*service.ValidateResult, error) {
	body := map[string][]board.Coord{"path": path}
	var result service.ValidateResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/validate", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Watch subscribes to the session's live events and sends each one to
// events until ctx is done or the connection drops. events is closed on
// return.
func (c *Client) Watch(ctx context.Context, id string, events chan<- service.Event) error {
	defer close(events)

	wsURL, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse server url")
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws/" + id

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return errors.Wrap(err, "connect websocket")
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var event service.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read event")
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return nil
		}
	}
}
