package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/99minutos/session-client/internal/core/domain"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 1 << 20

const (
	pathLogin          = "/auth/login"
	pathRegister       = "/auth/register"
	pathLogout         = "/auth/logout"
	pathMe             = "/auth/me"
	pathProfile        = "/auth/profile"
	pathChangePassword = "/auth/change-password"
)

// RetryPolicy bounds how Me retries transient failures.
type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

// DefaultRetryPolicy gives three attempts in total.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, Base: 200 * time.Millisecond}

// Client implements ports.AuthGateway over HTTP. Authentication and
// invalidation are handled by the Transport installed in its http.Client.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	mapper  mapper
	retry   RetryPolicy
	log     zerolog.Logger
}

// NewHTTPClient returns an http.Client that routes through t.
func NewHTTPClient(t *Transport, timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// NewClient creates a gateway for the auth API at baseURL.
func NewClient(baseURL string, httpClient *http.Client, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse auth api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("auth api url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: u,
		http:    httpClient,
		mapper:  newMapper(),
		retry:   DefaultRetryPolicy,
		log:     log,
	}, nil
}

// WithRetry replaces the retry policy used by Me.
func (c *Client) WithRetry(p RetryPolicy) *Client {
	c.retry = p
	return c
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthPayload, error) {
	var resp authResponse
	body := loginRequest{Identifier: creds.Identifier, Password: creds.Secret}
	if err := c.do(ctx, http.MethodPost, pathLogin, body, &resp); err != nil {
		return domain.AuthPayload{}, err
	}
	return c.mapper.authPayload(resp)
}

func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.AuthPayload, error) {
	var resp authResponse
	body := registerRequest{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     reg.Email,
		Phone:     reg.Phone,
		Password:  reg.Password,
		Role:      string(reg.Role),
		Address:   addressToWire(reg.Address),
	}
	if err := c.do(ctx, http.MethodPost, pathRegister, body, &resp); err != nil {
		return domain.AuthPayload{}, err
	}
	return c.mapper.authPayload(resp)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// Me fetches the authoritative user, retrying network and server failures.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	backoff := retry.WithMaxRetries(c.retry.MaxRetries, retry.NewExponential(c.retry.Base))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var resp userResponse
		if err := c.do(ctx, http.MethodGet, pathMe, nil, &resp); err != nil {
			if domain.CategoryOf(err).Transient() {
				c.log.Debug().Err(err).Msg("retrying session revalidation")
				return retry.RetryableError(err)
			}
			return err
		}
		u, err := c.mapper.user(resp.User)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

func (c *Client) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.UserPatch, error) {
	var resp userResponse
	body := profileRequest{
		FirstName:    patch.FirstName,
		LastName:     patch.LastName,
		Email:        patch.Email,
		Phone:        patch.Phone,
		Address:      addressToWire(patch.Address),
		ProfileImage: patch.ProfileImage,
	}
	if err := c.do(ctx, http.MethodPut, pathProfile, body, &resp); err != nil {
		return domain.UserPatch{}, err
	}
	if resp.User == nil {
		return domain.UserPatch{}, fmt.Errorf("%w: profile response without user", domain.ErrInvalidPayload)
	}
	return c.mapper.patch(resp.User)
}

func (c *Client) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	body := passwordRequest{CurrentPassword: change.Current, NewPassword: change.New}
	return c.do(ctx, http.MethodPut, pathChangePassword, body, nil)
}

// do sends one JSON request. Non-2xx responses become *domain.RequestError;
// a 2xx body that does not decode into out wraps domain.ErrInvalidPayload.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.RequestError{Category: domain.CategoryNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return &domain.RequestError{Category: domain.CategoryNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &domain.RequestError{
			Category: Categorize(resp.StatusCode),
			Status:   resp.StatusCode,
			Message:  serverMessage(raw),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty %s response", domain.ErrInvalidPayload, path)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidPayload, path, err)
	}
	return nil
}

// serverMessage extracts {"error": ...} or {"message": ...} from an error body.
func serverMessage(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Message)
}
