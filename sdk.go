// sdk.go
// ------
// The sdk.go file contains the core Client struct and its methods.
// This is the main entry point of the SDK for users.
//
// Key functionalities include:
// - Initializing the SDK with New()
// - Holding the access token read by every authenticated call
// - Plumbing calls: Request(), Do(), Get(), Post(), Put(), Delete()
// - Exposing the decorator Registry and rate limit info
//
// The Client relies on a RateLimiter and a RequestExecutor to handle
// throttling and retries, and on a Registry to decorate responses.
package fsbridge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/opengovern/familysearch-bridge/utils"
)

const (
	// MediaTypeFamilySearch is the default content type of platform resources.
	MediaTypeFamilySearch = "application/x-fs-v1+json"

	// tokenExpirySkew treats tokens about to expire as already expired.
	tokenExpirySkew = 10 * time.Second
)

type Client struct {
	cfg       Config
	endpoints Endpoints

	mu    sync.RWMutex
	token *oauth2.Token

	registry    *Registry
	rateLimiter *RateLimiter
	executor    *RequestExecutor
	metrics     *Metrics
	logger      *logrus.Logger

	now func() time.Time
}

// New validates cfg and builds a Client. The Client keeps its own copy of cfg.
// It logs through its own logger, which starts from cfg.Logger's output,
// formatter, hooks and level; SetDebug changes only the Client's copy.
// Transport, Registry and MetricsRegisterer are shared with the caller.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Logger = cloneLogger(cfg.Logger)
	endpoints, _ := cfg.Environment.Endpoints()
	if cfg.PlatformURL != "" {
		endpoints.Platform = strings.TrimRight(cfg.PlatformURL, "/")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	c := &Client{
		cfg:         cfg,
		endpoints:   endpoints,
		registry:    registry,
		rateLimiter: NewRateLimiter(),
		metrics:     NewMetrics(cfg.MetricsRegisterer),
		logger:      cfg.Logger,
		now:         time.Now,
	}
	c.executor = NewRequestExecutor(cfg, c.rateLimiter, c.metrics)
	if cfg.AccessToken != "" {
		c.token = utils.NewAccessToken(cfg.AccessToken)
	}

	c.logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"maxRetries":  cfg.MaxRetries,
	}).Debug("Client initialized")
	return c, nil
}

// SetDebug enables or disables debug logging for this client.
func (c *Client) SetDebug(enabled bool) {
	if enabled {
		c.logger.SetLevel(logrus.DebugLevel)
		return
	}
	c.logger.SetLevel(logrus.InfoLevel)
}

// Environment returns the environment the client talks to.
func (c *Client) Environment() Environment { return c.cfg.Environment }

// Endpoints returns the base URLs of the client's environment.
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// Registry returns the decorator registry. Accessors registered on it apply
// to every response this client has decorated or will decorate.
func (c *Client) Registry() *Registry { return c.registry }

// GetRateLimitInfo returns the current known throttling info, or nil.
func (c *Client) GetRateLimitInfo() *NormalizedRateLimitInfo {
	return c.rateLimiter.GetRateLimitInfo(c.cfg.Environment)
}

// SetAccessToken stores the token obtained by the caller's authentication
// flow. JWT tokens get their expiry from the exp claim.
func (c *Client) SetAccessToken(raw string) {
	tok := utils.NewAccessToken(raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// SetOAuth2Token stores a token as returned by an oauth2.Config exchange.
func (c *Client) SetOAuth2Token(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// AccessToken returns the current token, or nil.
func (c *Client) AccessToken() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// InvalidateAccessToken forgets the token, as on logout.
func (c *Client) InvalidateAccessToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
}

// OAuth2Config describes the client's environment for golang.org/x/oauth2.
// Running the authorization flow is left to the caller.
func (c *Client) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.cfg.AppKey,
		RedirectURL: c.cfg.AuthCallbackURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoints.Identity + "/authorization",
			TokenURL:  c.endpoints.Identity + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizationURL returns the URL to send a user to for signing in.
func (c *Client) AuthorizationURL(state string) string {
	return c.OAuth2Config().AuthCodeURL(state)
}

func (c *Client) authorize(req *NormalizedRequest) error {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()

	if tok == nil || tok.AccessToken == "" {
		return ErrAccessTokenMissing
	}
	if utils.IsExpired(tok, c.now(), tokenExpirySkew) {
		return ErrAccessTokenExpired
	}
	req.Headers["Authorization"] = tok.Type() + " " + tok.AccessToken
	return nil
}

// Request sends req through the retry policy and returns the raw response.
// Relative endpoints are resolved against the environment's platform URL.
// It blocks until the call completes; Do is the asynchronous form.
func (c *Client) Request(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error) {
	prepared, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"method":   prepared.Method,
		"endpoint": prepared.Endpoint,
	}).Debug("Requesting")
	return c.executor.ExecuteWithRetry(ctx, prepared, func(ctx context.Context) (*NormalizedResponse, error) {
		return c.cfg.Transport.ExecuteRequest(ctx, prepared)
	})
}

// Do is the asynchronous form of Request. It returns immediately.
func (c *Client) Do(ctx context.Context, req *NormalizedRequest) *Promise[*NormalizedResponse] {
	return runPromise(ctx, func(ctx context.Context) (*NormalizedResponse, *NormalizedResponse, error) {
		resp, err := c.Request(ctx, req)
		if err != nil {
			return nil, resp, err
		}
		return resp, resp, nil
	})
}

// Get fetches endpoint and decorates the body as t.
func (c *Client) Get(ctx context.Context, endpoint string, t ResourceType) *Promise[*Decorated] {
	return c.decorated(ctx, &NormalizedRequest{Method: "GET", Endpoint: endpoint}, t)
}

// Post sends body to endpoint and decorates the response as t.
func (c *Client) Post(ctx context.Context, endpoint string, body []byte, t ResourceType) *Promise[*Decorated] {
	return c.decorated(ctx, &NormalizedRequest{Method: "POST", Endpoint: endpoint, Body: body}, t)
}

// Put sends body to endpoint and decorates the response as t.
func (c *Client) Put(ctx context.Context, endpoint string, body []byte, t ResourceType) *Promise[*Decorated] {
	return c.decorated(ctx, &NormalizedRequest{Method: "PUT", Endpoint: endpoint, Body: body}, t)
}

// Delete removes the resource at endpoint. The response, usually empty,
// decorates as a raw resource.
func (c *Client) Delete(ctx context.Context, endpoint string) *Promise[*Decorated] {
	return c.decorated(ctx, &NormalizedRequest{Method: "DELETE", Endpoint: endpoint}, ResourceRaw)
}

func (c *Client) decorated(ctx context.Context, req *NormalizedRequest, t ResourceType) *Promise[*Decorated] {
	return runPromise(ctx, func(ctx context.Context) (*Decorated, *NormalizedResponse, error) {
		resp, err := c.Request(ctx, req)
		if err != nil {
			return nil, resp, err
		}
		d, err := c.registry.Decorate(t, resp.Data)
		if err != nil {
			return nil, resp, &DecodeError{Response: resp, Err: err}
		}
		return d, resp, nil
	})
}

// prepare copies req, adds default and auth headers and validates the
// endpoint. The caller's request is left untouched.
func (c *Client) prepare(req *NormalizedRequest) (*NormalizedRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidConfig)
	}
	out := req.clone()
	if out.Method == "" {
		out.Method = "GET"
	}
	out.Method = strings.ToUpper(out.Method)

	endpoint, err := c.resolve(out.Endpoint)
	if err != nil {
		return nil, err
	}
	out.Endpoint = endpoint

	setDefault(out.Headers, "Accept", MediaTypeFamilySearch)
	if len(out.Body) > 0 {
		setDefault(out.Headers, "Content-Type", MediaTypeFamilySearch)
	}
	setDefault(out.Headers, "User-Agent", c.cfg.UserAgent)

	if !hasHeader(out.Headers, "Authorization") {
		if err := c.authorize(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolve turns a relative endpoint into an absolute platform URL. Absolute
// URLs, such as links taken from a response, pass through.
func (c *Client) resolve(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("%w: empty endpoint", ErrInvalidConfig)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if u.IsAbs() {
		return endpoint, nil
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.endpoints.Platform + endpoint, nil
}

func cloneLogger(l *logrus.Logger) *logrus.Logger {
	return &logrus.Logger{
		Out:          l.Out,
		Hooks:        l.Hooks,
		Formatter:    l.Formatter,
		ReportCaller: l.ReportCaller,
		Level:        l.GetLevel(),
		ExitFunc:     l.ExitFunc,
		BufferPool:   l.BufferPool,
	}
}

func hasHeader(h map[string]string, key string) bool {
	for k := range h {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func setDefault(h map[string]string, key, value string) {
	if value != "" && !hasHeader(h, key) {
		h[key] = value
	}
}
