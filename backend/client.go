package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	goPortal "github.com/MrEthical07/goPortal"
)

const maxResponseBytes = 1 << 20

// Config configures the REST client.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://api.example.com/v1".
	BaseURL string
	// Timeout bounds one HTTP exchange. The Portal applies its own call
	// timeout on top. Default 15s.
	Timeout time.Duration
	// RequestsPerSecond and Burst size the outbound token bucket. Zero
	// RequestsPerSecond disables throttling.
	RequestsPerSecond float64
	Burst             int
	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client calls the identity backend. It implements [goPortal.Backend] and is
// safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

var _ goPortal.Backend = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, errors.New("backend RequestsPerSecond must be >= 0")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{baseURL: base, http: hc}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

func (c *Client) VerifyIdentification(ctx context.Context, identification string) (goPortal.IdentificationResult, error) {
	var data IdentificationData
	if err := c.call(ctx, PathVerifyIdentification, IdentificationRequest{Identification: identification}, &data); err != nil {
		return goPortal.IdentificationResult{}, err
	}
	return goPortal.IdentificationResult{
		UserExists:  data.UserExists,
		MaskedEmail: data.MaskedEmail,
		Companies:   data.Companies,
	}, nil
}

func (c *Client) VerifyExistingEmail(ctx context.Context, identification, email string) error {
	return c.call(ctx, PathVerifyExistingEmail, ExistingEmailRequest{Identification: identification, Email: email}, nil)
}

func (c *Client) RequestAccess(ctx context.Context, req goPortal.AccessRequest) error {
	return c.call(ctx, PathAccessRequests, req, nil)
}

func (c *Client) VerifyEmailExists(ctx context.Context, email string) (bool, error) {
	var data EmailExistsData
	if err := c.call(ctx, PathEmailExists, EmailRequest{Email: email}, &data); err != nil {
		return false, err
	}
	return data.Exists, nil
}

func (c *Client) SendVerificationCode(ctx context.Context, email string) error {
	return c.call(ctx, PathSendCode, EmailRequest{Email: email}, nil)
}

func (c *Client) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	var data VerifyCodeData
	if err := c.call(ctx, PathVerifyCode, VerifyCodeRequest{Email: email, Code: code}, &data); err != nil {
		return false, err
	}
	return data.Valid, nil
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.call(ctx, PathResetPassword, ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}, nil)
}

// Login returns the authenticated user. An unrecognised role string yields
// RoleUnknown rather than an error.
func (c *Client) Login(ctx context.Context, email, password string) (goPortal.User, error) {
	var data UserData
	if err := c.call(ctx, PathLogin, LoginRequest{Email: email, Password: password}, &data); err != nil {
		return goPortal.User{}, err
	}
	role, _ := goPortal.ParseRole(data.Role)
	return goPortal.User{
		ID:    data.ID,
		Name:  data.Name,
		Email: data.Email,
		Role:  role,
	}, nil
}

// call posts in to path and decodes the envelope data into out (when non-nil).
func (c *Client) call(ctx context.Context, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("backend throttle: %w", err)
		}
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := goPortal.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: unexpected response (status %d)", path, resp.StatusCode)
	}
	if !env.Success {
		return goPortal.Reject(env.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: success envelope with status %d", path, resp.StatusCode)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}
