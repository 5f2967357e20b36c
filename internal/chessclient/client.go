// Package chessclient is a Go SDK for the game server's REST and websocket
// APIs.
package chessclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emna-bh/EchecGame/pkg/chessdto"
	"github.com/valyala/fasthttp"
)

// APIError is a non-2xx response.
type APIError struct {
	Status int
	chessdto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chess api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	token   string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry bounds attempts for idempotent requests.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use, set by WithToken or the last
// successful Register/Login.
func (c *Client) Token() string { return c.token }

// WebsocketURL derives the /ws endpoint from the base URL.
func (c *Client) WebsocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (c *Client) Register(ctx context.Context, username, password string) (*chessdto.AuthResponse, error) {
	return c.credentials(ctx, "/api/auth/register", username, password)
}

func (c *Client) Login(ctx context.Context, username, password string) (*chessdto.AuthResponse, error) {
	return c.credentials(ctx, "/api/auth/login", username, password)
}

func (c *Client) credentials(ctx context.Context, path, username, password string) (*chessdto.AuthResponse, error) {
	var out chessdto.AuthResponse
	req := chessdto.AuthRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, req, &out, false); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/auth/logout", nil, nil, false); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) OnlineUsers(ctx context.Context) ([]chessdto.OnlineUser, error) {
	var out []chessdto.OnlineUser
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/users/online", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveGame returns nil when the caller has no active game.
func (c *Client) ActiveGame(ctx context.Context) (*chessdto.GameState, error) {
	var out *chessdto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/active", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Moves(ctx context.Context, gameID int64) ([]chessdto.Move, error) {
	var out []chessdto.Move
	path := "/api/games/" + strconv.FormatInt(gameID, 10) + "/moves"
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BoardPNG(ctx context.Context, gameID int64) ([]byte, error) {
	path := "/api/games/" + strconv.FormatInt(gameID, 10) + "/board.png"
	return c.do(ctx, fasthttp.MethodGet, path, nil, true)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	body, err := c.do(ctx, method, path, payload, retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do runs one request, retrying transport errors and 5xx responses with
// exponential backoff when retry is set. The returned body is a copy.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return append([]byte(nil), resp.Body()...), nil
			}
			apiErr := decodeAPIError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func decodeAPIError(status int, body []byte) *APIError {
	var er chessdto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error.Code == "" {
		return &APIError{Status: status, DomainError: chessdto.DomainError{
			Code:    strconv.Itoa(status),
			Message: truncate(string(body), 512),
		}}
	}
	return &APIError{Status: status, DomainError: er.Error}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
