package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Error codes reported by the gateway, mirroring the remote protocol's RPC errors.
const (
	codeSessionPasswordNeeded = "SESSION_PASSWORD_NEEDED"
	codePhoneCodeExpired      = "PHONE_CODE_EXPIRED"
	codePhoneCodeInvalid      = "PHONE_CODE_INVALID"
	codePhoneCodeEmpty        = "PHONE_CODE_EMPTY"
	codePasswordHashInvalid   = "PASSWORD_HASH_INVALID"
)

// GatewayConnector talks to a protocol gateway over HTTP. Every connection
// gets its own transport so its traffic leaves through the requested proxy.
type GatewayConnector struct {
	baseURL string
	timeout time.Duration
}

func NewGatewayConnector(baseURL string, timeout time.Duration) *GatewayConnector {
	return &GatewayConnector{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

type gatewayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type connectResponse struct {
	ConnectionID string `json:"connectionId"`
}

type signInResponse struct {
	Status string `json:"status"`
}

type meResponse struct {
	Authorized bool `json:"authorized"`
	User       *struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
}

type sessionResponse struct {
	Session string `json:"session"`
}

func (c *GatewayConnector) Connect(ctx context.Context, egress *url.URL) (Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if egress != nil {
		transport.Proxy = http.ProxyURL(egress)
	}

	client := &GatewayClient{
		baseURL: c.baseURL,
		http:    &http.Client{Transport: transport, Timeout: c.timeout},
	}

	var resp connectResponse
	status, apiErr, err := client.do(ctx, http.MethodPost, "/v1/connections", nil, &resp)
	if err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}
	if apiErr != nil || status >= 300 || resp.ConnectionID == "" {
		transport.CloseIdleConnections()
		return nil, fmt.Errorf("connect: %s", describe(status, apiErr))
	}

	client.connectionID = resp.ConnectionID
	log.Debug().Str("connectionId", resp.ConnectionID).Msg("remote connection opened")
	return client, nil
}

type GatewayClient struct {
	baseURL      string
	http         *http.Client
	connectionID string

	mu           sync.Mutex
	disconnected bool
}

func (c *GatewayClient) path(suffix string) string {
	return "/v1/connections/" + url.PathEscape(c.connectionID) + suffix
}

func (c *GatewayClient) RequestCode(ctx context.Context, phone string) error {
	status, apiErr, err := c.do(ctx, http.MethodPost, c.path("/code"), map[string]string{"phone": phone}, nil)
	if err != nil {
		return err
	}
	if apiErr != nil || status >= 300 {
		return fmt.Errorf("request code: %s", describe(status, apiErr))
	}
	return nil
}

func (c *GatewayClient) SignInWithCode(ctx context.Context, phone, code string) SignInResult {
	var resp signInResponse
	status, apiErr, err := c.do(ctx, http.MethodPost, c.path("/sign-in"), map[string]string{
		"phone": phone,
		"code":  code,
	}, &resp)
	return classify(status, apiErr, err, resp)
}

func (c *GatewayClient) SignInWithPassword(ctx context.Context, password string) SignInResult {
	var resp signInResponse
	status, apiErr, err := c.do(ctx, http.MethodPost, c.path("/password"), map[string]string{
		"password": password,
	}, &resp)
	return classify(status, apiErr, err, resp)
}

func (c *GatewayClient) IsAuthorized(ctx context.Context) (bool, error) {
	me, err := c.me(ctx)
	if err != nil {
		return false, err
	}
	return me.Authorized, nil
}

func (c *GatewayClient) Me(ctx context.Context) (*Account, error) {
	me, err := c.me(ctx)
	if err != nil {
		return nil, err
	}
	if !me.Authorized || me.User == nil {
		return nil, fmt.Errorf("me: not authorized")
	}
	return &Account{
		ID:        me.User.ID,
		Username:  me.User.Username,
		FirstName: me.User.FirstName,
		LastName:  me.User.LastName,
	}, nil
}

func (c *GatewayClient) me(ctx context.Context) (*meResponse, error) {
	var resp meResponse
	status, apiErr, err := c.do(ctx, http.MethodGet, c.path("/me"), nil, &resp)
	if err != nil {
		return nil, err
	}
	if apiErr != nil || status >= 300 {
		return nil, fmt.Errorf("me: %s", describe(status, apiErr))
	}
	return &resp, nil
}

func (c *GatewayClient) ExportSession(ctx context.Context) (string, error) {
	var resp sessionResponse
	status, apiErr, err := c.do(ctx, http.MethodPost, c.path("/export"), nil, &resp)
	if err != nil {
		return "", err
	}
	if apiErr != nil || status >= 300 {
		return "", fmt.Errorf("export session: %s", describe(status, apiErr))
	}
	if resp.Session == "" {
		return "", fmt.Errorf("export session: empty session")
	}
	return resp.Session, nil
}

// Disconnect is idempotent.
func (c *GatewayClient) Disconnect() error {
	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		return nil
	}
	c.disconnected = true
	c.mu.Unlock()

	defer c.http.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, apiErr, err := c.do(ctx, http.MethodDelete, c.path(""), nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if apiErr != nil || status >= 300 {
		return fmt.Errorf("disconnect: %s", describe(status, apiErr))
	}
	return nil
}

// do performs one gateway call. A non-nil error means the gateway could not be
// reached or answered garbage; API-level failures come back as apiErr.
func (c *GatewayClient) do(ctx context.Context, method, path string, body any, out any) (int, *gatewayError, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Dur("elapsed", time.Since(start)).Msg("remote gateway request failed")
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr gatewayError
		if len(data) > 0 && json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, &apiErr, nil
		}
		return resp.StatusCode, &gatewayError{Error: http.StatusText(resp.StatusCode)}, nil
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil, nil
}

func classify(status int, apiErr *gatewayError, err error, resp signInResponse) SignInResult {
	if err != nil {
		return Other(err.Error())
	}
	if apiErr != nil {
		switch apiErr.Error {
		case codeSessionPasswordNeeded:
			return SecondFactorRequired()
		case codePhoneCodeExpired:
			return CodeExpired()
		case codePhoneCodeInvalid, codePhoneCodeEmpty, codePasswordHashInvalid:
			return CodeInvalid()
		default:
			return Other(describe(status, apiErr))
		}
	}
	switch resp.Status {
	case "authorized", "":
		return Authorized()
	case "password_required":
		return SecondFactorRequired()
	default:
		return Other("unexpected sign-in status " + resp.Status)
	}
}

func describe(status int, apiErr *gatewayError) string {
	if apiErr == nil {
		return fmt.Sprintf("unexpected status %d", status)
	}
	if apiErr.Message != "" {
		return fmt.Sprintf("%s: %s", apiErr.Error, apiErr.Message)
	}
	return apiErr.Error
}
