package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"palmcosmic/pkg/clients"
)

type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mail API returned status: %d", e.StatusCode)
}

// Client talks to a Brevo-compatible transactional mail API.
type Client struct {
	baseURL      string
	apiKey       string
	senderEmail  string
	senderName   string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	defaultConfig := clients.DefaultHTTPExecutorConfig()
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		senderEmail:  "hello@palmcosmic.app",
		senderName:   "Cosmic Soul",
		client:       &http.Client{Timeout: 10 * time.Second},
		httpExecutor: clients.NewHTTPExecutor(defaultConfig),
		shouldRetry:  defaultConfig.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithSender(email, name string) Option {
	return func(c *Client) {
		if email != "" {
			c.senderEmail = email
		}
		if name != "" {
			c.senderName = name
		}
	}
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

func (c *Client) doRequest(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if c.httpExecutor == nil {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return c.client.Do(req)
	}

	return clients.ExecuteHTTP(ctx, c.httpExecutor, func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		return resp, err
	})
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendEmailRequest struct {
	Sender      *emailAddress          `json:"sender,omitempty"`
	To          []emailAddress         `json:"to"`
	TemplateID  int                    `json:"templateId,omitempty"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Subject     string                 `json:"subject,omitempty"`
	HTMLContent string                 `json:"htmlContent,omitempty"`
}

func (c *Client) send(ctx context.Context, reqBody sendEmailRequest) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v3/smtp/email", c.baseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", c.apiKey)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

// SendTemplate sends a transactional email rendered from a hosted
// template. The recipient name defaults to the address when empty, as
// the template greeting expects a value.
func (c *Client) SendTemplate(ctx context.Context, toEmail, toName string, templateID int, params map[string]interface{}) error {
	if toName == "" {
		toName = toEmail
	}
	return c.send(ctx, sendEmailRequest{
		To:         []emailAddress{{Email: toEmail, Name: toName}},
		TemplateID: templateID,
		Params:     params,
	})
}

// SendHTML sends a raw transactional email without a template.
func (c *Client) SendHTML(ctx context.Context, toEmail, toName, subject, htmlContent string) error {
	if toName == "" {
		toName = toEmail
	}
	return c.send(ctx, sendEmailRequest{
		Sender:      &emailAddress{Email: c.senderEmail, Name: c.senderName},
		To:          []emailAddress{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
}
