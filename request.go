package gemini

import (
	"bytes"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// A Request represents a Gemini request received by a server.
type Request struct {
	// URL specifies the URL being requested.
	URL *url.URL

	// RemoteAddr allows Gemini servers and other software to record
	// the network address that sent the request, usually for
	// logging. This field is not filled in by ReadRequest.
	RemoteAddr net.Addr

	// TLS allows Gemini servers and other software to record
	// information about the TLS connection on which the request
	// was received. This field is not filled in by ReadRequest.
	// The Gemini server in this package sets the field for
	// TLS-enabled connections before invoking a handler;
	// otherwise it leaves the field nil.
	TLS *tls.ConnectionState
}

// NewRequest returns a new request for the given URL.
// The URL is validated the same way a server validates an incoming request.
func NewRequest(rawurl string) (*Request, error) {
	if len(rawurl)+len(crlf) > MaxRequestLength {
		return nil, ErrRequestTooLong
	}
	return parseRequest(rawurl)
}

// ReadRequest reads and parses an incoming request from r.
//
// ReadRequest is a low-level function and should only be used
// for specialized applications; most code should use the Server
// to read requests and handle them via the Handler interface.
// Unlike the Server, ReadRequest enforces no timeouts.
func ReadRequest(r io.Reader) (*Request, error) {
	var rr requestReader
	return rr.readFrom(r)
}

type readState int

const (
	stateReading readState = iota
	stateValidated
	stateFailed
)

// requestReader accumulates request bytes until the terminating CRLF and
// produces exactly one outcome: a validated request or an error.
// It is safe for concurrent use so that a timer may fail it while a
// read is in progress.
type requestReader struct {
	mu    sync.Mutex
	buf   []byte
	state readState
	req   *Request
	err   error

	// onTerminator, if not nil, is called once when the terminating
	// CRLF is seen, before the line is validated.
	onTerminator func()
}

// write feeds p to the reader. It reports whether an outcome has been reached.
// Bytes written after an outcome are ignored.
func (rr *requestReader) write(p []byte) bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.state != stateReading {
		return true
	}

	rr.buf = append(rr.buf, p...)
	i := bytes.Index(rr.buf, crlf)
	if i == -1 {
		if len(rr.buf) > MaxRequestLength {
			rr.failLocked(ErrRequestTooLong)
			return true
		}
		return false
	}

	if rr.onTerminator != nil {
		rr.onTerminator()
	}
	if i+len(crlf) > MaxRequestLength {
		rr.failLocked(ErrRequestTooLong)
		return true
	}
	req, err := parseRequest(string(rr.buf[:i]))
	if err != nil {
		rr.failLocked(err)
		return true
	}
	rr.req = req
	rr.state = stateValidated
	rr.buf = nil
	return true
}

// fail moves the reader into the failed state with the given error.
// It reports whether it did so; once an outcome exists fail does nothing.
func (rr *requestReader) fail(err error) bool {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rr.state != stateReading {
		return false
	}
	rr.failLocked(err)
	return true
}

func (rr *requestReader) failLocked(err error) {
	rr.err = err
	rr.state = stateFailed
	rr.buf = nil
}

// result returns the outcome of the reader.
func (rr *requestReader) result() (*Request, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	switch rr.state {
	case stateValidated:
		return rr.req, nil
	case stateFailed:
		return nil, rr.err
	}
	return nil, io.ErrUnexpectedEOF
}

// readFrom reads from r until an outcome is reached.
func (rr *requestReader) readFrom(r io.Reader) (*Request, error) {
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		if n > 0 && rr.write(buf[:n]) {
			break
		}
		if err != nil {
			if isTimeout(err) {
				err = ErrTimeout
			}
			rr.fail(err)
			break
		}
	}
	return rr.result()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// parseRequest validates a request line without its terminating CRLF.
func parseRequest(line string) (*Request, error) {
	if !utf8.ValidString(line) {
		return nil, ErrMalformedRequest
	}
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if line == "" {
		return nil, ErrMalformedRequest
	}
	u, err := url.Parse(line)
	if err != nil {
		return nil, ErrMalformedRequest
	}
	if u.Scheme != "gemini" {
		return nil, ErrSchemeRequired
	}
	if u.Opaque != "" || u.Hostname() == "" {
		return nil, ErrMalformedRequest
	}
	if u.User != nil {
		return nil, ErrUserInfoForbidden
	}
	// An empty fragment ("#") still counts as a fragment component.
	if u.Fragment != "" || strings.Contains(line, "#") {
		return nil, ErrFragmentForbidden
	}
	return &Request{URL: u}, nil
}
