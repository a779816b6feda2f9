package fsbridge

import "strings"

// NormalizedRequest describes a single call against the FamilySearch platform.
// Endpoint is either a path relative to the environment's platform URL
// ("/platform/tree/persons/KWQS-BBQ") or an absolute URL taken from a link.
type NormalizedRequest struct {
	Method   string
	Endpoint string
	Headers  map[string]string
	Body     []byte
}

// NormalizedResponse is the raw response as surfaced by a Transport.
// Header names are lower-cased.
type NormalizedResponse struct {
	StatusCode int
	Headers    map[string]string
	Data       []byte
}

// Header returns the value of the named header, matching case-insensitively.
func (r *NormalizedResponse) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	if v, ok := r.Headers[strings.ToLower(name)]; ok {
		return v
	}
	return r.Headers[name]
}

// NormalizedRateLimitInfo is what the client knows about throttling for an
// environment. Timestamps are unix milliseconds.
type NormalizedRateLimitInfo struct {
	Throttled       bool
	ResetRequestsAt *int64
	RetryAfterMs    *int64
}

func (req *NormalizedRequest) clone() *NormalizedRequest {
	c := &NormalizedRequest{
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Body:     req.Body,
		Headers:  make(map[string]string, len(req.Headers)),
	}
	for k, v := range req.Headers {
		c.Headers[k] = v
	}
	return c
}

func (req *NormalizedRequest) isIdempotent() bool {
	return strings.EqualFold(req.Method, "GET")
}
