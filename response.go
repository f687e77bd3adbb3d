package gemini

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// The default media type for responses.
const defaultMediaType = "text/gemini; charset=utf-8"

// maxMetaLength is the longest meta a response header may carry.
const maxMetaLength = 1024

// Response represents a Gemini response.
//
// Handlers may build a Response and send it with ResponseWriter.WriteResponse.
// ReadResponse returns Responses parsed from the wire. In both cases it is
// the caller's responsibility to close the Body.
type Response struct {
	// Status contains the response status code.
	Status Status

	// Meta contains more information related to the response status.
	// For successful responses, Meta should contain the media type of the response.
	// For failure responses, Meta should contain a short description of the failure.
	Meta string

	// Body is the response body. It is only sent for successful responses
	// and may be nil.
	Body io.ReadCloser
}

// ReadResponse reads a response header from r and returns the response
// with the rest of r as its body. Closing the body does not close r.
// Responses without a success status have an empty body.
func ReadResponse(r io.Reader) (*Response, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	header, ok := strings.CutSuffix(header, "\r\n")
	if !ok {
		return nil, ErrInvalidResponse
	}
	code, meta, ok := strings.Cut(header, " ")
	if !ok || len(code) != 2 || len(meta) > maxMetaLength {
		return nil, ErrInvalidResponse
	}
	status, err := strconv.Atoi(code)
	if err != nil {
		return nil, ErrInvalidResponse
	}

	resp := &Response{Status: Status(status), Meta: meta}
	if resp.Status.Class() == StatusSuccess {
		resp.Body = io.NopCloser(br)
	} else {
		resp.Body = io.NopCloser(strings.NewReader(""))
	}
	return resp, nil
}

func writeHeader(bw *bufio.Writer, status Status, meta string) {
	bw.WriteString(strconv.Itoa(int(status)))
	bw.WriteByte(' ')
	bw.WriteString(meta)
	bw.Write(crlf)
}

// A ResponseWriter is used by a Gemini handler to construct
// a Gemini response.
//
// A ResponseWriter may not be used after the Handler.ServeGemini method
// has returned.
type ResponseWriter struct {
	bw          *bufio.Writer
	wroteHeader bool
	bodyAllowed bool
}

// NewResponseWriter returns a ResponseWriter that writes to w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{
		bw: bufio.NewWriter(w),
	}
}

// Write writes the data to the connection as part of a Gemini response.
//
// If WriteHeader has not yet been called, Write sends a success header
// with the gemtext media type first.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(StatusSuccess, defaultMediaType)
	}
	if !w.bodyAllowed {
		return 0, ErrBodyNotAllowed
	}
	return w.bw.Write(b)
}

// WriteHeader sends a Gemini response header with the provided
// status code and meta.
//
// Only one header may be written.
func (w *ResponseWriter) WriteHeader(status Status, meta string) {
	if w.wroteHeader {
		return
	}
	if status.Class() == StatusSuccess {
		w.bodyAllowed = true
	}
	writeHeader(w.bw, status, meta)
	w.wroteHeader = true
}

// WriteResponse sends resp. The header is written with WriteHeader and the
// body, if any, is copied after it with Write. WriteResponse does not close
// the body.
func (w *ResponseWriter) WriteResponse(resp *Response) error {
	w.WriteHeader(resp.Status, resp.Meta)
	if resp.Body == nil || !w.bodyAllowed {
		return nil
	}
	_, err := io.Copy(w, resp.Body)
	return err
}

// Flush sends any buffered data to the client.
// If no header was written, a temporary failure is sent.
func (w *ResponseWriter) Flush() error {
	if !w.wroteHeader {
		w.WriteHeader(StatusTemporaryFailure, StatusTemporaryFailure.Meta())
	}
	// Write errors from WriteHeader will be returned here.
	return w.bw.Flush()
}
