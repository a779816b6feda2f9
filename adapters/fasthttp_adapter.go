// fasthttp_adapter.go
// -------------------
// An alternative transport built on valyala/fasthttp, for callers that already
// run a fasthttp stack. Semantics match HTTPAdapter: one exchange per call,
// lower-cased response headers, network errors as errors.

package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	fsbridge "github.com/opengovern/familysearch-bridge"
)

var _ fsbridge.Transport = (*FastHTTPAdapter)(nil)

type FastHTTPAdapter struct {
	BaseURL string

	Client *fasthttp.Client

	// Timeout applies when ctx carries no deadline.
	Timeout time.Duration
}

func NewFastHTTPAdapter() *FastHTTPAdapter {
	return &FastHTTPAdapter{
		Client:  &fasthttp.Client{Name: fsbridge.DefaultUserAgent},
		Timeout: DefaultHTTPTimeout,
	}
}

func (f *FastHTTPAdapter) ExecuteRequest(ctx context.Context, req *fsbridge.NormalizedRequest) (*fsbridge.NormalizedResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = &fasthttp.Client{}
	}

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(resolveURL(f.BaseURL, req.Endpoint))
	httpReq.Header.SetMethod(req.Method)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 {
		httpReq.SetBody(req.Body)
	}

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(httpReq, httpResp, deadline)
	} else if f.Timeout > 0 {
		err = client.DoTimeout(httpReq, httpResp, f.Timeout)
	} else {
		err = client.Do(httpReq, httpResp)
	}
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	httpResp.Header.VisitAll(func(key, value []byte) {
		k := strings.ToLower(string(key))
		if _, seen := headers[k]; !seen {
			headers[k] = string(value)
		}
	})

	// The response is released on return, so the body has to be copied.
	data := append([]byte(nil), httpResp.Body()...)

	return &fsbridge.NormalizedResponse{
		StatusCode: httpResp.StatusCode(),
		Headers:    headers,
		Data:       data,
	}, nil
}
