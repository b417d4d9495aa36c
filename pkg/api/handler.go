package api

import (
	"errors"
	"net/http"
)

// HandlerFunc handles a request bound into R and returns the Response to render.
type HandlerFunc[R any] func(r *http.Request, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses an HTTP request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes err to w.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Decorator wraps a HandlerFunc. The first decorator passed to WithDecorators
// is the outermost wrapper.
type Decorator[R any] func(HandlerFunc[R]) HandlerFunc[R]

// WrapOption configures Wrap.
type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binders      []Bind
	errorHandler ErrorHandler
	decorators   []Decorator[R]
}

// WithBinders sets request binders applied in order.
// Binders returning ErrBinderNotApplicable are skipped.
func WithBinders[R any](binders ...Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.binders = append(c.binders, binders...)
	}
}

// WithErrorHandler replaces the default JSON error handler.
func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithDecorators adds decorators around the handler.
func WithDecorators[R any](decorators ...Decorator[R]) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc.
//
//	r.Post("/send", api.Wrap(h.send,
//		api.WithBinders[fanout.Request](api.BindJSON(), api.Validate(v)),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{
		errorHandler: WriteError,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	final := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		final = cfg.decorators[i](final)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				if errors.Is(err, ErrBinderNotApplicable) {
					continue
				}
				cfg.errorHandler(w, r, err)
				return
			}
		}

		resp := final(r, req)
		if resp == nil {
			cfg.errorHandler(w, r, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(w, r, err)
		}
	}
}
