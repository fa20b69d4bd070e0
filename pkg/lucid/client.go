package lucid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
)

// bodyPreviewLimit caps how much of an unparseable body is logged
const bodyPreviewLimit = 200

// Client talks to the Lucid REST API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, such as a test server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = trimBase(baseURL)
		}
	}
}

// WithAPIVersion overrides the Lucid-Api-Version header
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Lucid API client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    BaseURL,
		apiVersion: APIVersion,
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API host the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds a GET request with the Lucid headers
func (c *Client) newRequest(ctx context.Context, url, apiKey, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Lucid-Api-Version", c.apiVersion)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	return req, nil
}

// do sends one request. There are no retries.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, lerrors.Wrap(lerrors.ErrorTypeNetwork, err, "request failed")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps a non-success response to a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errorType := lerrors.FromStatusCode(resp.StatusCode)
	var message string
	switch errorType {
	case lerrors.ErrorTypeAuth:
		message = "authentication failed, check the API key"
	case lerrors.ErrorTypeNotFound:
		message = "document not found"
	case lerrors.ErrorTypeRateLimit:
		message = "rate limit exceeded"
	case lerrors.ErrorTypeServerError:
		message = "server error"
	default:
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}

	return &lerrors.Error{
		Type:    errorType,
		Message: message,
		Code:    resp.StatusCode,
	}
}

// FetchMetadata retrieves the title and ordered page list of a document
func (c *Client) FetchMetadata(ctx context.Context, documentID, apiKey string) (*DocumentMetadata, error) {
	url := MetadataURL(c.baseURL, documentID)

	req, err := c.newRequest(ctx, url, apiKey, "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &lerrors.Error{
			Type:    lerrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	meta, err := decodeMetadata(body)
	if err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > bodyPreviewLimit {
			bodyPreview = bodyPreview[:bodyPreviewLimit] + "..."
		}
		c.logger.DebugWithFields("failed to parse document metadata", map[string]interface{}{
			"document_id":  documentID,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return nil, &lerrors.Error{
			Type:    lerrors.ErrorTypeParsing,
			Message: fmt.Sprintf("invalid document metadata: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	c.logger.DebugWithFields("fetched document metadata", map[string]interface{}{
		"document_id": documentID,
		"title":       meta.Title,
		"pages":       len(meta.Pages),
	})

	return meta, nil
}

// DownloadPage fetches the rendered image bytes for one page URL. An empty
// body is an error.
func (c *Client) DownloadPage(ctx context.Context, pageURL, apiKey, contentType string) ([]byte, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	req, err := c.newRequest(ctx, pageURL, apiKey, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &lerrors.Error{
			Type:    lerrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read page data: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if len(data) == 0 {
		return nil, &lerrors.Error{
			Type:    lerrors.ErrorTypeEmptyResponse,
			Message: "page download returned no data",
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("downloaded page", map[string]interface{}{
		"url":  pageURL,
		"size": len(data),
	})

	return data, nil
}
