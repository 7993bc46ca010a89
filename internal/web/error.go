// Package web implements the failure-classification and response-rendering
// layer of docserve.
//
// Every request handler may fail with an arbitrary error value. Classify
// collapses whatever it is given into one variant of a closed taxonomy
// (*Error); the variant is then turned into an intermediate error response
// and rendered as either an HTML error page or a JSON error payload,
// depending on which API surface the handler serves.
package web

import (
	"errors"
	"fmt"
	"net/http"

	"git.home.luguber.info/inful/docserve/internal/storage"
	"git.home.luguber.info/inful/docserve/internal/telemetry"
	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

// errorKind tags the closed set of failure variants. The set is deliberately
// unexported: new variants can only be added here, next to their rendering.
type errorKind int

const (
	kindResourceNotFound errorKind = iota
	kindBuildNotFound
	kindCrateNotFound
	kindOwnerNotFound
	kindVersionNotFound
	kindNoResults
	kindInternalError
	kindBadRequest
	kindRedirect
)

// Error is a classified request failure. Every failure that reaches the
// rendering boundary is exactly one of its variants. Values are constructed
// once at the point a handler fails and consumed once by the renderer.
type Error struct {
	kind   errorKind
	cause  error        // set for internal-error and bad-request variants
	target string       // set for redirects; untrusted, encoded before use
	policy cache.Policy // set for redirects
}

// Shared sentinel values for the payload-free variants.
var (
	ErrResourceNotFound = &Error{kind: kindResourceNotFound}
	ErrBuildNotFound    = &Error{kind: kindBuildNotFound}
	ErrCrateNotFound    = &Error{kind: kindCrateNotFound}
	ErrOwnerNotFound    = &Error{kind: kindOwnerNotFound}
	ErrVersionNotFound  = &Error{kind: kindVersionNotFound}
	ErrNoResults        = &Error{kind: kindNoResults}
)

// InternalError wraps an unexpected failure. The cause is reported
// out-of-band before the response is rendered.
func InternalError(cause error) *Error {
	return &Error{kind: kindInternalError, cause: cause}
}

// BadRequest wraps a client input failure, e.g. an unparsable version
// requirement. The cause's text becomes the rendered message.
func BadRequest(cause error) *Error {
	return &Error{kind: kindBadRequest, cause: cause}
}

// Redirect fails a handler with an intentional redirect to target. The
// target is percent-encoded when the response is built; the policy controls
// the redirect's cache headers.
func Redirect(target string, policy cache.Policy) *Error {
	return &Error{kind: kindRedirect, target: target, policy: policy}
}

// DatabaseError converts a database-query failure. Queries have no
// user-attributable failure modes, so the mapping is unconditional.
func DatabaseError(err error) *Error {
	return InternalError(fmt.Errorf("database error: %w", err))
}

// PoolError converts a connection-pool failure, unconditionally internal.
func PoolError(err error) *Error {
	return InternalError(fmt.Errorf("connection pool error: %w", err))
}

func (e *Error) Error() string {
	switch e.kind {
	case kindResourceNotFound:
		return "requested resource not found"
	case kindBuildNotFound:
		return "requested build not found"
	case kindCrateNotFound:
		return "requested crate not found"
	case kindOwnerNotFound:
		return "requested owner not found"
	case kindVersionNotFound:
		return "requested crate does not have specified version"
	case kindNoResults:
		return "search yielded no results"
	case kindInternalError:
		return "internal error: " + e.cause.Error()
	case kindBadRequest:
		return "bad request: " + e.cause.Error()
	case kindRedirect:
		return "redirect to " + e.target
	default:
		return "unknown error"
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns a stable name for the variant, used for logging and metrics.
func (e *Error) Kind() string {
	switch e.kind {
	case kindResourceNotFound:
		return "resource_not_found"
	case kindBuildNotFound:
		return "build_not_found"
	case kindCrateNotFound:
		return "crate_not_found"
	case kindOwnerNotFound:
		return "owner_not_found"
	case kindVersionNotFound:
		return "version_not_found"
	case kindNoResults:
		return "no_results"
	case kindInternalError:
		return "internal_error"
	case kindBadRequest:
		return "bad_request"
	case kindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Classify resolves an arbitrary error value to exactly one taxonomy
// variant. The checks form a priority list, first match wins:
//
//  1. an *Error anywhere in the chain is returned unchanged, so
//     classification is idempotent;
//  2. the storage layer's path-not-found signal maps to ErrResourceNotFound;
//  3. everything else is an internal error wrapping the original value.
//
// This is the single choke point guaranteeing that no unclassified value
// reaches the rendering boundary.
func Classify(err error) *Error {
	var werr *Error
	if errors.As(err, &werr) {
		return werr
	}
	var pnf *storage.PathNotFoundError
	if errors.As(err, &pnf) {
		return ErrResourceNotFound
	}
	return InternalError(err)
}

// errorInfo is the generic shape shared by the HTML error page and the JSON
// error envelope.
type errorInfo struct {
	// title of the page, a fixed per-variant string
	title string
	// message displayed as the description
	message string
	status  int
}

// errorResponse is the intermediate, format-agnostic error response.
// Exactly one field is set. The search shape is only ever produced for
// ErrNoResults and is only valid on HTML surfaces.
type errorResponse struct {
	info     *errorInfo
	redirect *Response
	search   *SearchPage
}

func infoResponse(title, message string, status int) errorResponse {
	return errorResponse{info: &errorInfo{title: title, message: message, status: status}}
}

// internalErrorResponse reports the cause out-of-band and builds the
// sanitized 500 shape shown to the user.
func internalErrorResponse(cause error) errorResponse {
	telemetry.Report(cause)
	return infoResponse("Internal Server Error", cause.Error(), http.StatusInternalServerError)
}

// response selects the rendering strategy for the variant. Pure except for
// the internal-error telemetry report and the redirect build, which may fail
// and then degrades to the internal-error shape. The fallback is constructed
// directly instead of recursing, so termination is structural.
func (e *Error) response() errorResponse {
	switch e.kind {
	case kindResourceNotFound:
		return infoResponse("The requested resource does not exist", "no such resource", http.StatusNotFound)
	case kindBuildNotFound:
		return infoResponse("The requested build does not exist", "no such build", http.StatusNotFound)
	case kindCrateNotFound:
		return infoResponse("The requested crate does not exist", "no such crate", http.StatusNotFound)
	case kindOwnerNotFound:
		return infoResponse("The requested owner does not exist", "no such owner", http.StatusNotFound)
	case kindVersionNotFound:
		return infoResponse("The requested version does not exist", "no such version for this crate", http.StatusNotFound)
	case kindNoResults:
		return errorResponse{search: EmptySearchPage()}
	case kindBadRequest:
		return infoResponse("Bad request", e.cause.Error(), http.StatusBadRequest)
	case kindInternalError:
		return internalErrorResponse(e.cause)
	case kindRedirect:
		resp, err := CachedRedirect(EncodeURLPath(e.target), e.policy)
		if err != nil {
			return internalErrorResponse(err)
		}
		return errorResponse{redirect: resp}
	default:
		return internalErrorResponse(fmt.Errorf("unhandled error kind %d", e.kind))
	}
}
