// http_adapter.go
// ---------------
// This adapter sends requests with net/http. It is a plain pass-through: one
// call, one HTTP exchange. Retries and throttling are handled by the client's
// RequestExecutor, never here.
//
// Key Points:
// - Relative endpoints are resolved against BaseURL (absolute ones are used as is).
// - Response header names are lower-cased, first value wins.
// - Network errors are returned as errors; every HTTP status is returned as a response.

package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	fsbridge "github.com/opengovern/familysearch-bridge"
)

const DefaultHTTPTimeout = 30 * time.Second

var _ fsbridge.Transport = (*HTTPAdapter)(nil)

type HTTPAdapter struct {
	// BaseURL is prepended to relative endpoints. The client resolves
	// endpoints itself, so this is only needed when the adapter is used alone.
	BaseURL string

	Client *http.Client
}

func NewHTTPAdapter(client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPAdapter{Client: client}
}

func (h *HTTPAdapter) ExecuteRequest(ctx context.Context, req *fsbridge.NormalizedRequest) (*fsbridge.NormalizedResponse, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, resolveURL(h.BaseURL, req.Endpoint), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(resp.Header))
	for k, vals := range resp.Header {
		if len(vals) > 0 {
			headers[strings.ToLower(k)] = vals[0]
		}
	}

	return &fsbridge.NormalizedResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Data:       data,
	}, nil
}

func resolveURL(baseURL, endpoint string) string {
	if baseURL == "" || strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
