// Package client is a Go SDK for the helpdesk HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client calls the helpdesk API. It keeps the bearer token issued by Login
// and sends it with every protected call. Safe for concurrent use.
type Client struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

// New builds a client. BaseURL defaults to http://localhost:8080.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: cli, token: strings.TrimSpace(cfg.Token)}
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func do[T any](req *resty.Request, method, path string) (T, error) {
	var out envelope[T]
	resp, err := req.Execute(method, path)
	if err != nil {
		return out.Data, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return out.Data, err
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out.Data, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out.Data, nil
}

// Register creates a new account with the user role.
func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	out, err := do[struct {
		User User `json:"user"`
	}](c.request(ctx).SetBody(credentials{Username: username, Password: password}), resty.MethodPost, "/auth/register")
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*User, *Session, error) {
	out, err := do[loginResult](c.request(ctx).SetBody(credentials{Username: username, Password: password}), resty.MethodPost, "/auth/login")
	if err != nil {
		return nil, nil, err
	}
	c.SetToken(out.Auth.Token)
	return &out.User, &out.Auth, nil
}

// Logout ends the current session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := do[json.RawMessage](c.request(ctx), resty.MethodPost, "/auth/logout"); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the caller's account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	out, err := do[User](c.request(ctx), resty.MethodGet, "/auth/me")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTicket opens a ticket authored by the caller.
func (c *Client) CreateTicket(ctx context.Context, input TicketInput) (*Ticket, error) {
	out, err := do[Ticket](c.request(ctx).SetBody(input), resty.MethodPost, "/tickets")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTickets returns the tickets visible to the caller. An empty status
// matches every status.
func (c *Client) ListTickets(ctx context.Context, status string) ([]Ticket, error) {
	req := c.request(ctx)
	if status != "" {
		req.SetQueryParam("status", status)
	}
	return do[[]Ticket](req, resty.MethodGet, "/tickets")
}

// GetTicket fetches one ticket.
func (c *Client) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	out, err := do[Ticket](c.request(ctx), resty.MethodGet, ticketPath(id))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTicket overwrites a ticket's title, description and status.
func (c *Client) UpdateTicket(ctx context.Context, id string, update TicketUpdate) (*Ticket, error) {
	out, err := do[Ticket](c.request(ctx).SetBody(update), resty.MethodPut, ticketPath(id))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTicket removes a ticket.
func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	_, err := do[json.RawMessage](c.request(ctx), resty.MethodDelete, ticketPath(id))
	return err
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return do[[]User](c.request(ctx), resty.MethodGet, "/users")
}

// SetRole changes a user's role. Admin only.
func (c *Client) SetRole(ctx context.Context, userID, role string) (*User, error) {
	out, err := do[User](c.request(ctx).SetBody(map[string]string{"role": role}), resty.MethodPut, "/users/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func ticketPath(id string) string {
	return "/tickets/" + url.PathEscape(id)
}
