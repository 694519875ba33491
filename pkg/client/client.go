package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Callbacks are invoked on auth failures so the frontend can react globally
// (clear the session, prompt for login) without every call site handling it.
type Callbacks struct {
	OnSessionExpired func()
	OnForbidden      func(message string)
}

type Options struct {
	BaseURL   string
	Tokens    TokenSource
	Callbacks Callbacks
	Timeout   time.Duration
	// RetryMax bounds transport-level retries. Only idempotent GETs are
	// retried; mutating calls are sent exactly once.
	RetryMax int
}

// Client wraps the RCM backend REST API: bearer injection, envelope
// unwrapping and status-code mapping live here so services stay thin.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	callbacks Callbacks
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.Logger = nil
	rc.HTTPClient.Timeout = opts.Timeout
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp != nil && resp.Request != nil && resp.Request.Method != http.MethodGet {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      rc.StandardClient(),
		tokens:    opts.Tokens,
		callbacks: opts.Callbacks,
	}, nil
}

func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
	contentType string,
) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Upload names one file part of a multipart request.
type Upload struct {
	Field string
	Path  string
}

// UploadMultipart sends files plus form fields and decodes the enveloped
// response into out.
func (c *Client) UploadMultipart(
	ctx context.Context,
	method, path string,
	uploads []Upload,
	fields map[string]string,
	out any,
) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return fmt.Errorf("write field %q: %w", key, err)
		}
	}

	for _, up := range uploads {
		f, err := os.Open(up.Path)
		if err != nil {
			return fmt.Errorf("open upload %q: %w", up.Path, err)
		}
		part, err := mw.CreateFormFile(up.Field, filepath.Base(up.Path))
		if err != nil {
			f.Close()
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return fmt.Errorf("copy upload %q: %w", up.Path, err)
		}
		f.Close()
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

// DownloadBlob streams a binary endpoint (templates, conflict files) into w
// and returns the server-suggested filename, if any.
func (c *Client) DownloadBlob(ctx context.Context, path string, w io.Writer) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(resp)
	}

	filename := ""
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			filename = params["filename"]
		}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", path, err)
	}
	return filename, nil
}

func (c *Client) decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// A 204 or an empty 200 carries no envelope; only an error when the
	// caller expected data back.
	if len(bytes.TrimSpace(payload)) == 0 {
		if out == nil {
			return nil
		}
		return fmt.Errorf("empty response body for %s", resp.Request.URL.Path)
	}

	var env api.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := extractMessage(body, resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.callbacks.OnSessionExpired != nil {
			c.callbacks.OnSessionExpired()
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		if c.callbacks.OnForbidden != nil {
			c.callbacks.OnForbidden(msg)
		}
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	default:
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
}

// extractMessage pulls the most useful error text out of a failure body:
// message, title or detail fields, then raw text, then the bare status.
func extractMessage(body []byte, status int) string {
	var fields struct {
		Message string `json:"message"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, m := range []string{fields.Message, fields.Title, fields.Detail} {
			if m != "" {
				return m
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
