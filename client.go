package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

type client struct {
	restyClient       *resty.Client
	apiKey            string
	processingTimeout time.Duration
	pollInterval      time.Duration
	maxPollInterval   time.Duration
	uploadWorkers     int
	limiter           *rate.Limiter
	logger            *slog.Logger
}

var _ Client = (*client)(nil)

type Option func(*client)

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.restyClient.SetBaseURL(baseURL)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.restyClient.SetTimeout(timeout)
		}
	}
}

// WithAPIKey authenticates requests against PrizmDoc Cloud.
func WithAPIKey(apiKey string) Option {
	return func(c *client) {
		c.apiKey = apiKey
	}
}

// WithRestyClient allows callers to provide a preconfigured API client. The
// API key and request rate are applied per request and never set on it.
func WithRestyClient(restyClient *resty.Client) Option {
	return func(c *client) {
		if restyClient != nil {
			c.restyClient = restyClient
		}
	}
}

// WithProcessingTimeout bounds how long a conversion may be polled when the
// caller's context has no deadline. Zero waits until the context is done.
func WithProcessingTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout >= 0 {
			c.processingTimeout = timeout
		}
	}
}

// WithPollInterval sets the first delay between status requests.
func WithPollInterval(interval time.Duration) Option {
	return func(c *client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithMaxPollInterval caps the delay between status requests.
func WithMaxPollInterval(interval time.Duration) Option {
	return func(c *client) {
		if interval > 0 {
			c.maxPollInterval = interval
		}
	}
}

// WithUploadConcurrency limits how many uploads run at once while sources are
// moved onto a common affinity.
func WithUploadConcurrency(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.uploadWorkers = n
		}
	}
}

// WithRequestRate throttles outgoing requests to perSecond with the given
// burst. Requests wait for a token until their context is done.
func WithRequestRate(perSecond float64, burst int) Option {
	return func(c *client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// WithLogger routes debug records about uploads and processes to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) Client {
	c := &client{
		restyClient:       newDefaultAPIClient(),
		processingTimeout: ProcessingTimeout,
		pollInterval:      DefaultPollInterval,
		maxPollInterval:   DefaultMaxPollInterval,
		uploadWorkers:     DefaultUploadWorkers,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.restyClient == nil {
		c.restyClient = newDefaultAPIClient()
	}

	if c.maxPollInterval < c.pollInterval {
		c.maxPollInterval = c.pollInterval
	}

	return c
}

// newRequest waits for the rate limiter and returns a request carrying the
// API key and, when set, the affinity token.
func (c *client) newRequest(ctx context.Context, affinity string) (*resty.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for request rate: %w", err)
		}
	}

	req := c.restyClient.R().SetContext(ctx)
	if c.apiKey != "" {
		req.SetHeader(APIKeyHeader, c.apiKey)
	}
	if affinity != "" {
		req.SetHeader(AffinityTokenHeader, affinity)
	}
	return req, nil
}

// Name returns the service name.
func (c *client) Name() string {
	return ServiceName
}

// Version returns the API version.
func (c *client) Version() string {
	return APIVersion
}

func newDefaultAPIClient() *resty.Client {
	return resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(DefaultTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)
}
