package httpc

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptTransport feeds pre-chunked response bytes to the decoder and records
// every write the encoder issues.
type scriptTransport struct {
	chunks    [][]byte
	written   [][]byte
	writeErr  error
	readCalls int
}

func (st *scriptTransport) Read(_ context.Context, p []byte) (int, error) {
	st.readCalls++
	if len(st.chunks) == 0 {
		return 0, ErrConnectionClosed
	}
	n := copy(p, st.chunks[0])
	if n < len(st.chunks[0]) {
		st.chunks[0] = st.chunks[0][n:]
	} else {
		st.chunks = st.chunks[1:]
	}
	return n, nil
}

func (st *scriptTransport) Write(_ context.Context, p []byte) (int, error) {
	if st.writeErr != nil {
		return 0, st.writeErr
	}
	st.written = append(st.written, append([]byte(nil), p...))
	return len(p), nil
}

func splitChunks(raw []byte, size int) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(raw); i += size {
		end := i + size
		if end > len(raw) {
			end = len(raw)
		}
		chunks = append(chunks, raw[i:end])
	}
	return chunks
}

func decodeRaw(t *testing.T, raw string, chunkSize, bufSize int) (Response, []byte, error) {
	t.Helper()
	st := &scriptTransport{chunks: splitChunks([]byte(raw), chunkSize)}
	c := New(st, "example.com")
	rxBuf := make([]byte, bufSize)
	resp, err := c.Do(context.Background(), Request{Method: GET, Path: "/"}, rxBuf)
	return resp, rxBuf, err
}

func TestDecodeNoPayload(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"
	resp, _, err := decodeRaw(t, raw, len(raw), 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Status)
	}
	if resp.Payload != nil {
		t.Fatalf("expected nil payload, got %q", resp.Payload)
	}
}

func TestDecodePayloadAnyChunking(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 11\r\n\r\nhello world"
	for size := 1; size <= len(raw); size++ {
		resp, rxBuf, err := decodeRaw(t, raw, size, 256)
		if err != nil {
			t.Fatalf("chunk size %d: unexpected error: %v", size, err)
		}
		if resp.Status != StatusOK {
			t.Fatalf("chunk size %d: expected 200, got %d", size, resp.Status)
		}
		if resp.ContentType != "text/plain" {
			t.Fatalf("chunk size %d: unexpected content type %q", size, resp.ContentType)
		}
		if string(resp.Payload) != "hello world" {
			t.Fatalf("chunk size %d: unexpected payload %q", size, resp.Payload)
		}
		if &resp.Payload[0] != &rxBuf[0] {
			t.Fatalf("chunk size %d: payload is not a view into the receive buffer", size)
		}
	}
}

func TestDecodeContentTypeCaseAndWhitespace(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nCONTENT-TYPE:   text/plain\r\nContent-Length: 2\r\n\r\nok"
	resp, _, err := decodeRaw(t, raw, len(raw), 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ContentType != "text/plain" {
		t.Fatalf("unexpected content type %q", resp.ContentType)
	}
}

func TestDecodeStatusMapping(t *testing.T) {
	cases := []struct {
		code string
		want Status
	}{
		{"200", StatusOK},
		{"201", StatusCreated},
		{"404", StatusNotFound},
		{"503", StatusServiceUnavailable},
		{"218", StatusBadRequest}, // outside the supported set
		{"999", StatusBadRequest},
	}
	for _, tc := range cases {
		raw := "HTTP/1.1 " + tc.code + " Whatever\r\nContent-Length: 0\r\n\r\n"
		resp, _, err := decodeRaw(t, raw, len(raw), 256)
		if err != nil {
			t.Fatalf("code %s: unexpected error: %v", tc.code, err)
		}
		if resp.Status != tc.want {
			t.Fatalf("code %s: expected %d, got %d", tc.code, tc.want, resp.Status)
		}
	}
}

func TestDecodeHeaderExceedsBuffer(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Filler: " + strings.Repeat("a", 128) + "\r\n\r\n"
	_, _, err := decodeRaw(t, raw, 8, 32)
	assertCodecError(t, err, ErrHeaderTooLarge)
}

func TestDecodeDeclaredLengthExceedsBuffer(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n"
	_, _, err := decodeRaw(t, raw, len(raw), 64)
	assertCodecError(t, err, ErrContentTooLarge)
}

func TestDecodeBufferedBeyondDeclaredLength(t *testing.T) {
	// Five payload bytes arrive bundled with the header although only two
	// were declared.
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nhello"
	_, _, err := decodeRaw(t, raw, len(raw), 256)
	assertCodecError(t, err, ErrInvalidContentLength)
}

func TestDecodeInvalidContentLengthValue(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: abc\r\n\r\n"
	_, _, err := decodeRaw(t, raw, len(raw), 256)
	assertCodecError(t, err, ErrInvalidContentLength)
}

func TestDecodeInvalidStatusLine(t *testing.T) {
	for _, raw := range []string{
		"HTTP/1.10 200 OK\r\nContent-Length: 0\r\n\r\n",
		"HTTP/11 200 OK\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 2x0 OK\r\nContent-Length: 0\r\n\r\n",
	} {
		_, _, err := decodeRaw(t, raw, len(raw), 256)
		assertCodecError(t, err, ErrInvalidStatusLine)
	}
}

func TestDecodeInvalidUTF8Header(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Bin: \xff\xfe\r\nContent-Length: 0\r\n\r\n"
	_, _, err := decodeRaw(t, raw, len(raw), 256)
	assertCodecError(t, err, ErrInvalidHeaderBytes)
}

func TestDecodeIgnoresUnrecognizedHeaders(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nX-Custom: value\r\nServer: test\r\nContent-Length: 2\r\n\r\nhi"
	resp, _, err := decodeRaw(t, raw, len(raw), 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Payload) != "hi" {
		t.Fatalf("unexpected payload %q", resp.Payload)
	}
	if resp.ContentType != "" {
		t.Fatalf("unexpected content type %q", resp.ContentType)
	}
}

func TestEncodeRequestWire(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
	st := &scriptTransport{chunks: [][]byte{[]byte(raw)}}
	c := New(st, "example.com")

	payload := []byte(`{"a":1}`)
	req := Request{
		Method:       POST,
		Path:         "/api/v1/data",
		Auth:         BasicAuth{Username: "user", Password: "pass"},
		ContentType:  ApplicationJSON,
		Payload:      payload,
		ExtraHeaders: []Header{{Name: "X-Trace", Value: "abc"}},
	}
	if _, err := c.Do(context.Background(), req, make([]byte, 256)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.written) != 2 {
		t.Fatalf("expected header block and payload writes, got %d writes", len(st.written))
	}
	wantHeader := "POST /api/v1/data HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Authorization: Basic dXNlcjpwYXNz\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 7\r\n" +
		"X-Trace: abc\r\n" +
		"\r\n"
	if got := string(st.written[0]); got != wantHeader {
		t.Fatalf("unexpected header block:\n%q\nwant:\n%q", got, wantHeader)
	}
	if !bytes.Equal(st.written[1], payload) {
		t.Fatalf("unexpected payload write %q", st.written[1])
	}
}

func TestEncodeDefaultPath(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
	st := &scriptTransport{chunks: [][]byte{[]byte(raw)}}
	c := New(st, "example.com")
	if _, err := c.Do(context.Background(), Request{Method: GET}, make([]byte, 128)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	if len(st.written) != 1 || string(st.written[0]) != want {
		t.Fatalf("unexpected writes %q", st.written)
	}
}

func TestEncodeCredentialsTooLong(t *testing.T) {
	st := &scriptTransport{}
	c := New(st, "example.com")
	req := Request{
		Method: GET,
		Auth:   BasicAuth{Username: strings.Repeat("u", 200), Password: "pass"},
	}
	_, err := c.Do(context.Background(), req, make([]byte, 128))
	assertCodecError(t, err, ErrCredentialsTooLong)
	if len(st.written) != 0 {
		t.Fatalf("expected no writes after codec failure, got %d", len(st.written))
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	st := &scriptTransport{}
	c := New(st, "example.com")
	_, err := c.Do(context.Background(), Request{Method: Method(99)}, make([]byte, 128))
	assertCodecError(t, err, ErrUnknownMethod)
}

func TestWriteErrorAbortsBeforeRead(t *testing.T) {
	st := &scriptTransport{writeErr: ErrConnectionReset}
	c := New(st, "example.com")
	_, err := c.Do(context.Background(), Request{Method: GET}, make([]byte, 128))
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if !errors.Is(err, ErrConnectionReset) {
		t.Fatalf("expected transport category surfaced verbatim, got %v", err)
	}
	if st.readCalls != 0 {
		t.Fatalf("expected no response read after write failure, got %d reads", st.readCalls)
	}
}

func TestReadErrorSurfacesAsNetwork(t *testing.T) {
	// Connection drops while the decoder is still hunting for the
	// header terminator.
	st := &scriptTransport{chunks: [][]byte{[]byte("HTTP/1.1 200 OK\r\n")}}
	c := New(st, "example.com")
	_, err := c.Do(context.Background(), Request{Method: GET}, make([]byte, 128))
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected connection closed category, got %v", err)
	}
}

func TestResponseDetach(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"
	resp, rxBuf, err := decodeRaw(t, raw, len(raw), 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	detached := resp.Detach()
	copy(rxBuf, []byte("XXXXX"))
	if string(resp.Payload) != "XXXXX" {
		t.Fatalf("expected live view to observe the overwrite, got %q", resp.Payload)
	}
	if string(detached.Payload) != "hello" {
		t.Fatalf("expected detached copy to survive, got %q", detached.Payload)
	}
}

func assertCodecError(t *testing.T, err, want error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *httpc.Error, got %T: %v", err, err)
	}
	if e.Kind != KindCodec {
		t.Fatalf("expected codec kind, got %v (%v)", e.Kind, err)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func BenchmarkDecodeResponse(b *testing.B) {
	payload := strings.Repeat("x", 512)
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 512\r\n\r\n" + payload)
	rxBuf := make([]byte, 2048)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		st := &scriptTransport{chunks: [][]byte{raw}}
		c := New(st, "example.com")
		resp, err := c.Do(ctx, Request{Method: GET, Path: "/bench"}, rxBuf)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Payload) != 512 {
			b.Fatalf("unexpected payload length %d", len(resp.Payload))
		}
	}
}
