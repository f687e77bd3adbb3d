package gemini

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	tests := []struct {
		Raw    string
		Status Status
		Meta   string
		Body   string
		Err    error
	}{
		{
			Raw:    "20 text/gemini\r\nHello, world!\nWelcome to my capsule.",
			Status: 20,
			Meta:   "text/gemini",
			Body:   "Hello, world!\nWelcome to my capsule.",
		},
		{
			Raw:    "20 text/plain\r\n",
			Status: 20,
			Meta:   "text/plain",
		},
		{
			Raw:    "51 Not found\r\nThis body is ignored.",
			Status: 51,
			Meta:   "Not found",
		},
		{
			Raw:    "50 Request too long\r\n",
			Status: 50,
			Meta:   "Request too long",
		},
		{
			Raw: "\r\n",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "\n",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "1 Bad response\r\n",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "ab Bad response\r\n",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "20 text/gemini\nHello, world!",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "51 " + strings.Repeat("x", maxMetaLength+1) + "\r\n",
			Err: ErrInvalidResponse,
		},
		{
			Raw: "",
			Err: io.EOF,
		},
		{
			Raw: "51 Not found",
			Err: io.EOF,
		},
		{
			Raw: "20 text/gemini\r",
			Err: io.EOF,
		},
	}

	for _, test := range tests {
		t.Logf("%#v", test.Raw)
		resp, err := ReadResponse(strings.NewReader(test.Raw))
		if err != test.Err {
			t.Errorf("expected err = %v, got %v", test.Err, err)
		}
		if test.Err != nil {
			// No response
			continue
		}
		if resp.Status != test.Status {
			t.Errorf("expected status = %d, got %d", test.Status, resp.Status)
		}
		if resp.Meta != test.Meta {
			t.Errorf("expected meta = %s, got %s", test.Meta, resp.Meta)
		}
		b, _ := io.ReadAll(resp.Body)
		if body := string(b); body != test.Body {
			t.Errorf("expected body = %#v, got %#v", test.Body, body)
		}
	}
}

func TestWriteResponse(t *testing.T) {
	tests := []struct {
		Resp *Response
		Raw  string
	}{
		{
			Resp: &Response{
				Status: StatusSuccess,
				Meta:   "text/gemini",
				Body:   io.NopCloser(strings.NewReader("=> a.gmi\n")),
			},
			Raw: "20 text/gemini\r\n=> a.gmi\n",
		},
		{
			Resp: &Response{Status: StatusSuccess, Meta: "text/plain"},
			Raw:  "20 text/plain\r\n",
		},
		{
			Resp: &Response{
				Status: StatusNotFound,
				Meta:   "Not found",
				Body:   io.NopCloser(strings.NewReader("ignored")),
			},
			Raw: "51 Not found\r\n",
		},
	}

	for _, test := range tests {
		var b bytes.Buffer
		w := NewResponseWriter(&b)
		if err := w.WriteResponse(test.Resp); err != nil {
			t.Error(err)
		}
		if err := w.Flush(); err != nil {
			t.Error(err)
		}
		if got := b.String(); got != test.Raw {
			t.Errorf("expected %#v, got %#v", test.Raw, got)
		}

		// What was written reads back as the same response.
		resp, err := ReadResponse(&b)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Status != test.Resp.Status || resp.Meta != test.Resp.Meta {
			t.Errorf("read back %d %q, expected %d %q",
				resp.Status, resp.Meta, test.Resp.Status, test.Resp.Meta)
		}
	}
}

func TestResponseWriterImplicitHeader(t *testing.T) {
	var b bytes.Buffer
	w := NewResponseWriter(&b)
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	w.WriteHeader(StatusNotFound, "Not found")
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "20 text/gemini; charset=utf-8\r\nhello"; got != want {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

func TestResponseWriterBodyNotAllowed(t *testing.T) {
	var b bytes.Buffer
	w := NewResponseWriter(&b)
	w.WriteHeader(StatusPermanentFailure, "Request too long")
	if _, err := w.Write([]byte("body")); !errors.Is(err, ErrBodyNotAllowed) {
		t.Errorf("expected %v, got %v", ErrBodyNotAllowed, err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "50 Request too long\r\n"; got != want {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

func TestResponseWriterFlushWithoutHeader(t *testing.T) {
	var b bytes.Buffer
	w := NewResponseWriter(&b)
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "40 Temporary failure\r\n"; got != want {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}
