package acumidata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	ProdBaseURL = "https://api.acumidata.com"
	UATBaseURL  = "https://uat.api.acumidata.com"

	defaultMaxPayload = 4 << 20 // 4MB guard
	errorBodyLimit    = 2048
)

var (
	// ErrNotAuthenticated means no API key was configured and login did not yield one.
	ErrNotAuthenticated = errors.New("acumidata: not authenticated")
	ErrPayloadTooLarge  = errors.New("acumidata: payload too large")
	ErrUnknownEndpoint  = errors.New("acumidata: unknown endpoint")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("acumidata error %d: %s", e.Code, e.Body)
}

// Config holds the connection settings. Either APIKey or Username/Password
// must be set; with both, the key is used until the API rejects it.
type Config struct {
	Env      string // "prod" or "uat"
	BaseURL  string // overrides Env
	APIKey   string
	Username string
	Password string

	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxPayload   int64
	Logger       *slog.Logger
}

// BaseURLFor maps an environment name to its API host. Anything other than
// "prod" means UAT.
func BaseURLFor(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "prod") {
		return ProdBaseURL
	}
	return UATBaseURL
}

type Client struct {
	baseURL    string
	username   string
	password   string
	maxPayload int64
	http       *retryablehttp.Client
	log        *slog.Logger

	mu  sync.Mutex
	key string
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	// hand the last response back so non-2xx statuses surface as StatusError
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.RetryMax > 0 {
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	rc.Logger = log

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = BaseURLFor(cfg.Env)
	}
	maxPayload := cfg.MaxPayload
	if maxPayload <= 0 {
		maxPayload = defaultMaxPayload
	}

	return &Client{
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		maxPayload: maxPayload,
		http:       rc,
		log:        log,
		key:        cfg.APIKey,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) canLogin() bool { return c.username != "" && c.password != "" }

// Login exchanges the configured credentials for an API key.
// Docs: POST /api/Account/login {"username","password"} -> data.acumiAPIKey
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if !c.canLogin() {
		return fmt.Errorf("%w: no credentials configured", ErrNotAuthenticated)
	}
	body, _ := json.Marshal(map[string]string{"username": c.username, "password": c.password})

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/Account/login", body)
	if err != nil {
		return fmt.Errorf("acumidata login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("acumidata login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("%w: login status %d: %s", ErrNotAuthenticated, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Data struct {
			Key string `json:"acumiAPIKey"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxPayload)).Decode(&out); err != nil {
		return fmt.Errorf("%w: decode login response: %v", ErrNotAuthenticated, err)
	}
	if out.Data.Key == "" {
		return fmt.Errorf("%w: no API key in login response", ErrNotAuthenticated)
	}
	c.key = out.Data.Key
	c.log.Info("acumidata login ok", "user", c.username, "base_url", c.baseURL)
	return nil
}

// apiKey returns the current key, logging in first when there is none.
func (c *Client) apiKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != "" {
		return c.key, nil
	}
	if err := c.loginLocked(ctx); err != nil {
		return "", err
	}
	return c.key, nil
}

// dropKey forgets a rejected key unless another caller already replaced it.
func (c *Client) dropKey(rejected string) {
	c.mu.Lock()
	if c.key == rejected {
		c.key = ""
	}
	c.mu.Unlock()
}

// Fetch calls a valuation endpoint for one address and returns the raw body.
// Docs: GET <endpoint>?streetAddress=&city=&state=&zip= with Bearer auth.
// A 401 triggers one re-login and retry when credentials are configured.
func (c *Client) Fetch(ctx context.Context, ep Endpoint, addr Address) ([]byte, error) {
	path := ep.Path()
	if path == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, string(ep))
	}
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.get(ctx, path, addr, key)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized && c.canLogin() {
		c.log.Warn("acumidata key rejected, logging in again", "endpoint", string(ep))
		c.dropKey(key)
		if key, err = c.apiKey(ctx); err != nil {
			return nil, err
		}
		raw, err = c.get(ctx, path, addr, key)
	}
	return raw, err
}

func (c *Client) get(ctx context.Context, path string, addr Address, key string) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, addr.query().Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("acumidata %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acumidata %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return ioReadAllLimit(resp.Body, c.maxPayload)
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrPayloadTooLarge
	}
	return bytes.TrimSpace(b), nil
}
