// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"time"

	"github.com/wneessen/friendsmap/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 10
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with API requests. Public geocoding
	// services like Nominatim refuse requests without an identifying User-Agent.
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) friendsmap/%s (+https://github.com/wneessen/friendsmap/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Client is a type wrapper for the Go stdlib http.Client and the Config
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client
func New(logger *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: httpTransport,
	}
	return &Client{httpClient, logger}
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and JSON-unmarshals
// the response into target. The status code is returned as is, callers decide which codes they
// consider successful.
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values, headers map[string]string, timeout time.Duration) (int, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNonPointerTarget
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := h.do(ctx, http.MethodGet, endpoint, query, nil, headers)
	if err != nil {
		return 0, err
	}
	defer h.closeBody(response.Body)

	// Unmarshal the JSON API response into target
	if err = json.NewDecoder(response.Body).Decode(target); err != nil {
		return response.StatusCode, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return response.StatusCode, nil
}

// Stream performs a HTTP GET request and hands the response body to the caller. Only a 200
// response is accepted. At most maxSize bytes can be read from the returned body. The timeout
// covers the whole read, the request context is released when the body is closed.
func (h *Client) Stream(ctx context.Context, endpoint string, maxSize int64, timeout time.Duration) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	response, err := h.do(ctx, http.MethodGet, endpoint, nil, nil, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		h.closeBody(response.Body)
		cancel()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	return &limitedBody{
		Reader: io.LimitReader(response.Body, maxSize),
		body:   response.Body,
		cancel: cancel,
	}, nil
}

// PostJSON performs a HTTP POST request with the JSON-marshalled payload as body. The response
// body is discarded, only the status code is returned.
func (h *Client) PostJSON(ctx context.Context, endpoint string, payload any, headers map[string]string, timeout time.Duration) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if headers == nil {
		headers = make(map[string]string)
	}
	headers["Content-Type"] = "application/json"
	response, err := h.do(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body), headers)
	if err != nil {
		return 0, err
	}
	defer h.closeBody(response.Body)
	_, _ = io.Copy(io.Discard, response.Body)

	return response.StatusCode, nil
}

func (h *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, headers map[string]string) (*http.Response, error) {
	// Prepare URL and query parameters
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}

	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return nil, errors.New("nil response received")
	}
	return response, nil
}

func (h *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		h.logger.Error("failed to close HTTP request body", logger.Err(err))
	}
}

// limitedBody limits the readable size of a response body and releases the request context
// once the body is closed.
type limitedBody struct {
	io.Reader
	body   io.Closer
	cancel context.CancelFunc
}

func (l *limitedBody) Close() error {
	defer l.cancel()
	return l.body.Close()
}
