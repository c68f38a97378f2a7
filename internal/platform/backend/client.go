// Package backend wraps the inference backend's REST API behind three typed
// clients: prediction, patient/lesion registry, and analysis history. All
// persistence and model inference live on the other side of this package; the
// clients only serialize requests and map responses to local records.
package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrConnection marks transport-level failures: DNS, refused connections and
// timeouts. Callers match it with errors.Is to tell "backend unreachable"
// apart from "backend rejected the request".
var ErrConnection = errors.New("connection error")

// APIError carries a non-2xx response. Detail holds the backend's
// machine-readable error message when the body provides one, otherwise the
// raw response body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Client is the shared HTTP core for all three backend clients. One fixed
// timeout, no retries: a timed-out call fails exactly like any other
// connection error and the user decides whether to try again.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates the shared backend client core.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	trimmed := strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(trimmed).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		baseURL: trimmed,
		logger:  logger,
	}
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// connErr wraps a transport failure so callers can match ErrConnection.
func connErr(err error) error {
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// apiErr maps a non-2xx response to an APIError, extracting the backend's
// "detail" message when the error body parses as JSON.
func apiErr(resp *resty.Response) error {
	detail := strings.TrimSpace(string(resp.Body()))
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Detail != "" {
		detail = body.Detail
	}
	if detail == "" {
		detail = resp.Status()
	}
	return &APIError{StatusCode: resp.StatusCode(), Detail: detail}
}

// notFound reports whether a lookup-style response means "no results".
func notFound(resp *resty.Response) bool {
	return resp.StatusCode() == http.StatusNotFound
}

// ImageUpload holds an uploaded dermoscopic image. The bytes are kept in
// memory so the same upload can be submitted to the predict and explain
// endpoints, each call reading from the start of the buffer.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// Reader returns a fresh reader positioned at the start of the image bytes.
func (u ImageUpload) Reader() *bytes.Reader {
	return bytes.NewReader(u.Data)
}

// ContentType derives the upload's MIME type from the filename extension,
// falling back to JPEG.
func (u ImageUpload) ContentType() string {
	switch strings.ToLower(filepath.Ext(u.Filename)) {
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}
