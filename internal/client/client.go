// Package client talks to a running preseed-composer API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	rh "github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/preseed-composer/internal/preseedapi"
)

const DefaultBasePath = "/api/preseed-composer/v1"

type Config struct {
	// RetryMax is the number of retries after a connection failure or a
	// 502, 503 or 504 response.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Logger receives retry notices. Defaults to the standard logrus logger.
	Logger *logrus.Logger
}

func DefaultConfig() Config {
	return Config{
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

type Client struct {
	// base URL of the API, including the base path
	apiURL string
	http   *rh.Client
}

// New returns a client for the API served at apiURL, for example
// "http://localhost:8080/api/preseed-composer/v1".
func New(apiURL string, config Config) (*Client, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", apiURL)
	}

	rc := rh.NewClient()
	rc.RetryMax = config.RetryMax
	if config.RetryWaitMin > 0 {
		rc.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		rc.RetryWaitMax = config.RetryWaitMax
	}
	rc.Logger = newLeveledLogger(config.Logger)
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = rh.PassthroughErrorHandler

	return &Client{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		http:   rc,
	}, nil
}

// checkRetry retries connection errors and gateway failures. Storing is
// not idempotent, so a 500 is never retried: the document may have been
// stored already.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return rh.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// APIError is returned for every response outside the 2xx range.
type APIError struct {
	StatusCode  int
	Code        string
	Reason      string
	OperationID string
	Details     map[string][]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s (%s)", msg, e.Reason, e.Code)
	}
	if len(e.Details) > 0 {
		fields := make([]string, 0, len(e.Details))
		for f, reasons := range e.Details {
			fields = append(fields, fmt.Sprintf("%s: %s", f, strings.Join(reasons, ", ")))
		}
		sort.Strings(fields)
		msg += "\n  " + strings.Join(fields, "\n  ")
	}
	return msg
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := rh.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, apiError(resp.StatusCode, data)
	}
	return resp, data, nil
}

func apiError(status int, data []byte) error {
	var body struct {
		Code        string              `json:"code"`
		Reason      string              `json:"reason"`
		OperationID string              `json:"operation_id"`
		Details     map[string][]string `json:"details"`
	}
	// a proxy in front of the API may answer with something else
	_ = json.Unmarshal(data, &body)

	return &APIError{
		StatusCode:  status,
		Code:        body.Code,
		Reason:      body.Reason,
		OperationID: body.OperationID,
		Details:     body.Details,
	}
}

// Preview renders the JSON install configuration in config without
// storing it.
func (c *Client) Preview(ctx context.Context, config []byte) (string, error) {
	_, data, err := c.do(ctx, http.MethodPost, "/preseed/preview", config)
	if err != nil {
		return "", err
	}

	var preview preseedapi.Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		return "", fmt.Errorf("error decoding preview: %w", err)
	}
	return preview.PreviewContent, nil
}

// Store renders and stores the JSON install configuration in config.
func (c *Client) Store(ctx context.Context, config []byte) (*preseedapi.PreseedReference, error) {
	_, data, err := c.do(ctx, http.MethodPost, "/preseed", config)
	if err != nil {
		return nil, err
	}

	var ref preseedapi.PreseedReference
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("error decoding preseed reference: %w", err)
	}
	return &ref, nil
}

// Show fetches a stored document. It returns the document and the file
// name suggested by the server.
func (c *Client) Show(ctx context.Context, id string) (string, string, error) {
	resp, data, err := c.do(ctx, http.MethodGet, "/preseed/"+url.PathEscape(id), nil)
	if err != nil {
		return "", "", err
	}
	return string(data), filename(resp.Header.Get("Content-Disposition")), nil
}

// filename extracts the file name of a Content-Disposition header.
func filename(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
