package api

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

	"docdisk/internal/docdisk"
)

// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient
// says otherwise.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// Client talks to the Document Disk HTTP API. It is the unauthenticated
// surface; Authorize returns a handle that sends a bearer credential.
type Client struct {
	baseURL string
	http    *http.Client
	logger  docdisk.Logger
	ids     docdisk.IDGenerator
}

var _ docdisk.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l docdisk.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIDGenerator sets the source of X-Request-ID values.
func WithIDGenerator(g docdisk.IDGenerator) Option {
	return func(c *Client) { c.ids = g }
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8001".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https: %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL has no host: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  docdisk.NewNopLogger(),
		ids:     docdisk.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Register(ctx context.Context, creds docdisk.Credentials) error {
	body := credentialsRequest{Username: creds.Username, Password: creds.Password, PIN: creds.PIN}
	var out userResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", "", body, &out); err != nil {
		return err
	}
	return nil
}

// Login exchanges credentials for a bearer credential. If the token is a JWT
// carrying an expiry, it is copied onto the credential.
func (c *Client) Login(ctx context.Context, creds docdisk.Credentials) (*docdisk.Credential, error) {
	body := credentialsRequest{Username: creds.Username, Password: creds.Password, PIN: creds.PIN}
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", "", body, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("login response has no access token")
	}

	cred := &docdisk.Credential{Token: out.AccessToken, TokenType: out.TokenType}
	if info, err := InspectToken(out.AccessToken); err == nil {
		cred.ExpiresAt = info.ExpiresAt
	} else {
		c.logger.Debug("token is not a readable JWT", "error", err)
	}
	return cred, nil
}

func (c *Client) Authorize(cred docdisk.Credential) docdisk.DocumentAPI {
	return &Session{client: c, token: cred.Token}
}

// Health calls the API root and returns its message.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/", "", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Session is a Client bound to one bearer credential.
type Session struct {
	client *Client
	token  string
}

var _ docdisk.DocumentAPI = (*Session)(nil)

func (s *Session) Me(ctx context.Context) (*docdisk.Identity, error) {
	var out userResponse
	if err := s.client.do(ctx, http.MethodGet, "/api/me", s.token, nil, &out); err != nil {
		return nil, err
	}
	return out.identity(), nil
}

func (s *Session) ListDocuments(ctx context.Context) ([]docdisk.Document, error) {
	var out []documentResponse
	if err := s.client.do(ctx, http.MethodGet, "/api/documents", s.token, nil, &out); err != nil {
		return nil, err
	}
	docs := make([]docdisk.Document, 0, len(out))
	for _, d := range out {
		docs = append(docs, d.document())
	}
	return docs, nil
}

// GetDocument fetches a single document.
func (s *Session) GetDocument(ctx context.Context, id string) (*docdisk.Document, error) {
	var out documentResponse
	if err := s.client.do(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), s.token, nil, &out); err != nil {
		return nil, err
	}
	doc := out.document()
	return &doc, nil
}

func (s *Session) CreateDocument(ctx context.Context, in docdisk.DocumentInput) (*docdisk.Document, error) {
	var out documentResponse
	body := documentRequest{Title: in.Title, Content: in.Content}
	if err := s.client.do(ctx, http.MethodPost, "/api/documents", s.token, body, &out); err != nil {
		return nil, err
	}
	doc := out.document()
	return &doc, nil
}

func (s *Session) UpdateDocument(ctx context.Context, id string, in docdisk.DocumentInput) (*docdisk.Document, error) {
	var out documentResponse
	body := documentRequest{Title: in.Title, Content: in.Content}
	if err := s.client.do(ctx, http.MethodPut, "/api/documents/"+url.PathEscape(id), s.token, body, &out); err != nil {
		return nil, err
	}
	doc := out.document()
	return &doc, nil
}

func (s *Session) DeleteDocument(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), s.token, nil, nil)
}

// do sends one request. A non-2xx answer is returned as *docdisk.ResponseError;
// transport and decoding failures are wrapped as-is.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := c.ids.New()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading %s %s response: %w", method, path, err)
	}
	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
