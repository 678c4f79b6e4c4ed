package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/five82/nimbus/internal/weather"
)

const (
	defaultBaseURL           = "https://api.openweathermap.org"
	defaultUserAgent         = "nimbus/0.1"
	defaultTimeout           = 10 * time.Second
	defaultRequestsPerMinute = 60
	maxBodyBytes             = 4 << 20

	suggestionTTL     = 10 * time.Minute
	suggestionLimit   = 5
	unavailableNotice = "weather service temporarily unavailable"
)

// Options configure a Client.
type Options struct {
	APIKey            string
	BaseURL           string        // empty uses https://api.openweathermap.org
	Timeout           time.Duration // zero uses 10s
	RequestsPerMinute int           // zero uses 60
	UserAgent         string
	HTTPClient        *http.Client // overrides Timeout when set
	Logger            *slog.Logger
	Now               func() time.Time
}

// Client talks to the OpenWeatherMap HTTP API.
type Client struct {
	baseURL     *url.URL
	apiKey      string
	http        *http.Client
	userAgent   string
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	suggestions *cache.Cache
	logger      *slog.Logger
	now         func() time.Time
}

// NewClient validates opts and builds a Client. An empty API key is an error.
func NewClient(opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("openweathermap api key is not configured")
	}
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL:     base,
		apiKey:      key,
		http:        httpClient,
		userAgent:   userAgent,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), max(1, rpm/10)),
		suggestions: cache.New(suggestionTTL, 2*suggestionTTL),
		logger:      logger.With("component", "owm"),
		now:         now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// rawResponse is what survives the breaker: a status and a fully read body.
type rawResponse struct {
	status int
	body   []byte
}

// serverError is returned inside the breaker for 5xx so it counts as a failure.
type serverError struct {
	rawResponse
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.status)
}

// get performs a GET against path with params and decodes a 2xx body into dest.
// Every failure is a *weather.FetchError.
func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if c == nil {
		return weather.NewFetchError(weather.KindNetwork, 0, "", errors.New("client is nil"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return weather.NewFetchError(weather.KindNetwork, 0, "", fmt.Errorf("rate limit wait canceled: %w", err))
	}

	values := url.Values{}
	for k, v := range params {
		values[k] = v
	}
	values.Set("appid", c.apiKey)
	rel := &url.URL{Path: path, RawQuery: values.Encode()}
	reqURL := c.baseURL.ResolveReference(rel)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		raw := rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return nil, &serverError{raw}
		}
		return raw, nil
	})
	if err != nil {
		return classifyTransport(path, err)
	}

	raw, ok := result.(rawResponse)
	if !ok {
		return weather.NewFetchError(weather.KindUpstream, 0, "", fmt.Errorf("unexpected result type %T", result))
	}
	return decodeResponse(path, raw, dest)
}

func classifyTransport(path string, err error) error {
	var se *serverError
	switch {
	case errors.As(err, &se):
		return weather.NewFetchError(weather.KindUpstream, se.status, upstreamMessage(se.body), fmt.Errorf("api %s: %w", path, err))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return weather.NewFetchError(weather.KindNetwork, 0, unavailableNotice, err)
	default:
		return weather.NewFetchError(weather.KindNetwork, 0, "", fmt.Errorf("api %s: %w", path, err))
	}
}

func decodeResponse(path string, raw rawResponse, dest any) error {
	switch {
	case raw.status == http.StatusNotFound:
		return weather.NewFetchError(weather.KindNotFound, raw.status, upstreamMessage(raw.body),
			fmt.Errorf("api %s returned status %d", path, raw.status))
	case raw.status < 200 || raw.status >= 300:
		return weather.NewFetchError(weather.KindUpstream, raw.status, upstreamMessage(raw.body),
			fmt.Errorf("api %s returned status %d", path, raw.status))
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw.body, dest); err != nil {
		return weather.NewFetchError(weather.KindUpstream, raw.status, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
