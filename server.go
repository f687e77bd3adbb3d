package gemini

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"git.sr.ht/~adnano/gemhost/certificate"
)

// DefaultRequestTimeout is the time a client has to send a complete
// request line when Server.RequestTimeout is zero.
const DefaultRequestTimeout = 10 * time.Second

// aLongTimeAgo is a non-zero time in the past, used to unblock reads.
var aLongTimeAgo = time.Unix(1, 0)

// Server is a Gemini server.
type Server struct {
	// Addr specifies the address that the server should listen on.
	// If Addr is empty, the server will listen on the address ":1965".
	Addr string

	// IdleTimeout is the maximum time a connection may sit idle. It bounds
	// reading the request, and each write of the response, so a body
	// streamed to a client that keeps reading is never cut short.
	// A zero IdleTimeout means no limit.
	IdleTimeout time.Duration

	// RequestTimeout is the time a client has to send a complete request
	// line once connected. If zero, DefaultRequestTimeout is used.
	RequestTimeout time.Duration

	// Certificates contains the certificates used by the server.
	Certificates certificate.Store

	// Handler responds to validated requests.
	// If nil, every request is answered with 51 Not found.
	Handler Handler

	// Logger specifies an optional logger for errors accepting connections
	// and reading requests. If nil, logging is disabled.
	Logger *zap.Logger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     sync.WaitGroup
	closed    bool
}

// ListenAndServe listens for requests at the server's configured address.
func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":1965"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.ServeTLS(ln)
}

// ServeTLS wraps l in a TLS listener that selects certificates from
// s.Certificates by server name, then calls Serve.
func (s *Server) ServeTLS(l net.Listener) error {
	return s.Serve(tls.NewListener(l, &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.getCertificate,
	}))
}

// Serve accepts connections on the provided listener and responds to
// each of them in its own goroutine. Serve always returns a non-nil error
// and closes l. After Shutdown, the returned error is ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	if !s.trackListener(l, true) {
		l.Close()
		return ErrServerClosed
	}
	defer s.trackListener(l, false)
	defer l.Close()

	var tempDelay time.Duration // how long to sleep on accept failure

	for {
		rw, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			// If this is a temporary error, sleep
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				s.logger().Warn("accept error; retrying",
					zap.Error(err), zap.Duration("delay", tempDelay))
				time.Sleep(tempDelay)
				continue
			}

			// Otherwise, return the error
			return err
		}

		tempDelay = 0
		s.conns.Add(1)
		go s.respond(rw)
	}
}

// Shutdown closes all listeners and waits for in-flight connections to
// finish, or for ctx to be done, whichever happens first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for l := range s.listeners {
		l.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) trackListener(l net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		if s.listeners == nil {
			s.listeners = make(map[net.Listener]struct{})
		}
		s.listeners[l] = struct{}{}
	} else {
		delete(s.listeners, l)
	}
	return true
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// getCertificate retrieves a certificate for the given client hello.
func (s *Server) getCertificate(h *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return s.Certificates.Get(h.ServerName)
}

// respond responds to a connection.
func (s *Server) respond(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()
	if d := s.IdleTimeout; d != 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d))
	}
	out := idleWriter{conn: conn, timeout: s.IdleTimeout}

	req, err := s.readRequest(conn)
	if err != nil {
		meta, ok := requestFailureMeta(err)
		if !ok {
			// The client went away; there is nobody to answer.
			s.logger().Debug("reading request",
				zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			return
		}
		s.logger().Debug("bad request",
			zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
		w := NewResponseWriter(out)
		w.WriteHeader(StatusPermanentFailure, meta)
		s.flush(w, conn)
		return
	}

	w := NewResponseWriter(out)
	defer s.flush(w, conn)

	// Store information about the TLS connection
	if tlsConn, ok := conn.(*tls.Conn); ok {
		state := tlsConn.ConnectionState()
		req.TLS = &state
	}

	// Store remote address
	req.RemoteAddr = conn.RemoteAddr()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := s.Handler
	if h == nil {
		h = NotFoundHandler()
	}
	h.ServeGemini(ctx, w, req)
}

// readRequest reads the request line from conn. A watchdog fails the read
// with ErrTimeout unless the terminating CRLF arrives within RequestTimeout.
// The watchdog is disarmed as soon as the terminator is seen, so a complete
// but invalid line is reported as such.
func (s *Server) readRequest(conn net.Conn) (*Request, error) {
	d := s.RequestTimeout
	if d == 0 {
		d = DefaultRequestTimeout
	}

	var rr requestReader
	watchdog := time.AfterFunc(d, func() {
		if rr.fail(ErrTimeout) {
			_ = conn.SetReadDeadline(aLongTimeAgo)
		}
	})
	defer watchdog.Stop()
	rr.onTerminator = func() { watchdog.Stop() }

	return rr.readFrom(conn)
}

func (s *Server) flush(w *ResponseWriter, conn net.Conn) {
	if err := w.Flush(); err != nil {
		s.logger().Debug("writing response",
			zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// idleWriter pushes the write deadline of conn forward before every write.
type idleWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w idleWriter) Write(p []byte) (int, error) {
	if w.timeout != 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.conn.Write(p)
}
