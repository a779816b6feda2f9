package fsbridge

import (
	"context"
	"errors"
	"sync"
)

// Promise is the pending result of an asynchronous call. It settles exactly
// once, with either a value or an error, and keeps the raw response of the
// final attempt so status and headers stay readable in both cases.
//
//	client.GetPerson(ctx, "KWQS-BBQ").Then(func(p *fsbridge.Person) {
//	    name, _ := p.GivenName()
//	    fmt.Println(name)
//	}, func(err error) {
//	    log.Println(err)
//	})
type Promise[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	resp      *NormalizedResponse
	callbacks []func()
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// runPromise starts fn on its own goroutine and returns immediately.
func runPromise[T any](ctx context.Context, fn func(ctx context.Context) (T, *NormalizedResponse, error)) *Promise[T] {
	p := newPromise[T]()
	go func() {
		v, resp, err := fn(ctx)
		p.settle(v, resp, err)
	}()
	return p
}

// rejected returns a promise that has already failed with err.
func rejected[T any](err error) *Promise[T] {
	p := newPromise[T]()
	var zero T
	p.settle(zero, nil, err)
	return p
}

// mapPromise derives a promise whose value is f applied to p's value. Errors
// and the raw response carry over unchanged.
func mapPromise[T, U any](p *Promise[T], f func(T) (U, error)) *Promise[U] {
	out := newPromise[U]()
	go func() {
		<-p.done
		var zero U
		if p.err != nil {
			out.settle(zero, p.resp, p.err)
			return
		}
		v, err := f(p.value)
		if err != nil {
			out.settle(zero, p.resp, err)
			return
		}
		out.settle(v, p.resp, nil)
	}()
	return out
}

func (p *Promise[T]) settle(v T, resp *NormalizedResponse, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value, p.resp, p.err = v, resp, err
	if p.resp == nil && err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) {
			p.resp = respErr.Response()
		}
	}
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// Then registers callbacks for the outcome. Exactly one of them runs, once.
// Callbacks registered before settlement run on the settling goroutine;
// callbacks registered afterwards run immediately. Either may be nil.
func (p *Promise[T]) Then(onSuccess func(T), onError func(error)) *Promise[T] {
	run := func() {
		if p.err != nil {
			if onError != nil {
				onError(p.err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(p.value)
		}
	}

	p.mu.Lock()
	if !p.settled {
		p.callbacks = append(p.callbacks, run)
		p.mu.Unlock()
		return p
	}
	p.mu.Unlock()
	run()
	return p
}

// Await blocks until the promise settles or ctx is done.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the promise has settled.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Response returns the raw response of the final attempt, or nil while the
// promise is pending or when no response was received.
func (p *Promise[T]) Response() *NormalizedResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resp
}

// StatusCode returns the HTTP status of the final attempt, or 0.
func (p *Promise[T]) StatusCode() int {
	if resp := p.Response(); resp != nil {
		return resp.StatusCode
	}
	return 0
}

// Headers returns the response headers of the final attempt, or nil.
func (p *Promise[T]) Headers() map[string]string {
	if resp := p.Response(); resp != nil {
		return resp.Headers
	}
	return nil
}
