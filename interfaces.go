package fsbridge

import "context"

// Transport is the adapter over a concrete HTTP implementation. It performs a
// single request and returns whatever the server answered; it never retries.
// A network failure is returned as an error, any HTTP status as a response.
type Transport interface {
	ExecuteRequest(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error)
}

// TransportFunc adapts a plain function to the Transport interface.
type TransportFunc func(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error)

// ExecuteRequest calls f(ctx, req).
func (f TransportFunc) ExecuteRequest(ctx context.Context, req *NormalizedRequest) (*NormalizedResponse, error) {
	return f(ctx, req)
}
