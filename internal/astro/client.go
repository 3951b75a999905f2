package astro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"palmcosmic/internal/zodiac"
	"palmcosmic/pkg/clients"
)

// ErrUpstreamUnavailable marks the fact provider as unreachable or
// erroring. Callers fall back to deterministic content; the error is
// never fatal to a batch.
var ErrUpstreamUnavailable = errors.New("astro engine unavailable")

// BirthDetails is the /calculate request body.
type BirthDetails struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Second int    `json:"second"`
	Place  string `json:"place"`
}

// RepresentativeBirthDetails maps an archetype to the fixed birth
// moment all members of the sign share.
func RepresentativeBirthDetails(sign zodiac.Sign) BirthDetails {
	info := sign.RepresentativeBirth()
	return BirthDetails{
		Year:   2000,
		Month:  info.Month,
		Day:    info.Day,
		Hour:   12,
		Minute: 0,
		Second: 0,
		Place:  "New York, USA",
	}
}

type Position struct {
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

type Chart struct {
	BigThree map[string]Position    `json:"big_three"`
	Elements map[string]interface{} `json:"elements"`
	Planets  map[string]interface{} `json:"planets"`
}

type Dasha struct {
	CurrentPeriod map[string]interface{} `json:"current_period"`
}

// NatalData is the structured fact set for one subject.
type NatalData struct {
	Chart          Chart                    `json:"chart"`
	Dasha          Dasha                    `json:"dasha"`
	ActiveTransits []map[string]interface{} `json:"active_transits"`
}

// Transits is the current sky snapshot shared by all subjects in a run.
type Transits struct {
	Planets map[string]interface{} `json:"planets"`
}

type Client struct {
	baseURL      string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

func NewClient(baseURL string, opts ...Option) *Client {
	defaultConfig := clients.DefaultHTTPExecutorConfig()
	c := &Client{
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		httpExecutor: clients.NewHTTPExecutor(defaultConfig),
		shouldRetry:  defaultConfig.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func WithHTTPExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		c.httpExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

// Calculate fetches natal chart, dasha, and active transits for a
// birth moment.
func (c *Client) Calculate(ctx context.Context, details BirthDetails) (NatalData, error) {
	var natal NatalData
	if err := c.post(ctx, "/calculate", details, &natal); err != nil {
		return NatalData{}, err
	}
	return natal, nil
}

// TransitsNow fetches the current planetary positions.
func (c *Client) TransitsNow(ctx context.Context) (Transits, error) {
	var transits Transits
	if err := c.post(ctx, "/transits/now", struct{}{}, &transits); err != nil {
		return Transits{}, err
	}
	return transits, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	resp, err := clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		resp, doErr := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, doErr) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, doErr
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstreamUnavailable, path, err)
	}
	return nil
}

// MinimalNatal builds placeholder natal data for an archetype when the
// per-sign calculate call fails but current transits are available. The
// archetype batch only treats the transits call as a hard failure.
func MinimalNatal(sign zodiac.Sign) NatalData {
	return NatalData{
		Chart: Chart{
			BigThree: map[string]Position{
				"sun": {Sign: sign.Display(), Degree: 15},
			},
			Elements: map[string]interface{}{},
			Planets:  map[string]interface{}{},
		},
		Dasha:          Dasha{CurrentPeriod: map[string]interface{}{}},
		ActiveTransits: []map[string]interface{}{},
	}
}
