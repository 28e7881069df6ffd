package testutil

import (
	"net/http"

	"complyledger/pkg/requestcontext"
)

// WithActor attaches the acting administrator, as the request middleware
// would from the X-Actor header.
func WithActor(req *http.Request, actor string) *http.Request {
	if actor == "" {
		return req
	}
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestID attaches a request id.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestContext sets both the actor and the request id.
func WithRequestContext(req *http.Request, actor, requestID string) *http.Request {
	return WithRequestID(WithActor(req, actor), requestID)
}
