package gemini

import (
	"errors"
)

var crlf = []byte("\r\n")

// MaxRequestLength is the maximum length of a request in bytes,
// including the terminating CRLF.
const MaxRequestLength = 1024

// Request errors.
var (
	ErrRequestTooLong    = errors.New("gemini: request too long")
	ErrMalformedRequest  = errors.New("gemini: malformed request")
	ErrSchemeRequired    = errors.New("gemini: absolute gemini URI required")
	ErrUserInfoForbidden = errors.New("gemini: URI must not contain userinfo")
	ErrFragmentForbidden = errors.New("gemini: URI must not contain a fragment")
	ErrTimeout           = errors.New("gemini: request timeout")
)

// Errors.
var (
	ErrInvalidResponse = errors.New("gemini: invalid response")
	ErrBodyNotAllowed  = errors.New("gemini: response status code does not allow for body")
	ErrServerClosed    = errors.New("gemini: server closed")
)

// requestFailureMeta returns the meta sent with a 50 response for
// request errors, and false for errors that are not request errors.
func requestFailureMeta(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrRequestTooLong):
		return "Request too long", true
	case errors.Is(err, ErrMalformedRequest):
		return "Bad request URI", true
	case errors.Is(err, ErrSchemeRequired):
		return "Absolute gemini URI required", true
	case errors.Is(err, ErrUserInfoForbidden):
		return "URI must not contain userinfo", true
	case errors.Is(err, ErrFragmentForbidden):
		return "URI must not contain a fragment", true
	case errors.Is(err, ErrTimeout):
		return "Request timeout", true
	}
	return "", false
}
