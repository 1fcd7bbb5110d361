package httpc

import (
	"bytes"
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

const (
	crlf             = "\r\n"
	headerTerminator = "\r\n\r\n"
)

var (
	crlfBytes           = []byte(crlf)
	headerTerminatorBuf = []byte(headerTerminator)
	statusLinePrefix    = []byte("HTTP")
)

// Client performs HTTP/1.1 requests over a borrowed Transport. The connection
// is held exclusively for the duration of each call and is never closed here;
// connecting, reconnecting and pooling are the caller's concern. A Client
// keeps no state between calls.
type Client struct {
	conn Transport
	host string
	log  *zap.Logger
	pool *bytebufferpool.Pool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger injects an observability sink. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for a connection handle and a target host.
func New(conn Transport, host string, opts ...Option) *Client {
	c := &Client{conn: conn, host: host, log: zap.NewNop(), pool: &bytebufferpool.Pool{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do writes the request and decodes the response into rxBuf, which must be
// large enough to hold the entire response header block plus the declared
// payload. The returned Response borrows its payload from rxBuf. On error the
// contents of rxBuf are undefined until overwritten by a later call.
func (c *Client) Do(ctx context.Context, req Request, rxBuf []byte) (Response, error) {
	if err := c.writeRequest(ctx, req); err != nil {
		return Response{}, err
	}
	return c.readResponse(ctx, rxBuf)
}

// Get performs a GET request for path.
func (c *Client) Get(ctx context.Context, path string, rxBuf []byte) (Response, error) {
	return c.Do(ctx, Request{Method: GET, Path: path}, rxBuf)
}

// Post performs a POST request carrying payload.
func (c *Client) Post(ctx context.Context, path string, contentType ContentType, payload, rxBuf []byte) (Response, error) {
	return c.Do(ctx, Request{Method: POST, Path: path, ContentType: contentType, Payload: payload}, rxBuf)
}

// Put performs a PUT request carrying payload.
func (c *Client) Put(ctx context.Context, path string, contentType ContentType, payload, rxBuf []byte) (Response, error) {
	return c.Do(ctx, Request{Method: PUT, Path: path, ContentType: contentType, Payload: payload}, rxBuf)
}

// Delete performs a DELETE request for path.
func (c *Client) Delete(ctx context.Context, path string, rxBuf []byte) (Response, error) {
	return c.Do(ctx, Request{Method: DELETE, Path: path}, rxBuf)
}

// writeRequest serializes the header block into a pooled buffer and writes it
// with a single transport write, then writes the payload as a separate write.
// Short writes are the transport's concern; this layer only propagates errors.
func (c *Client) writeRequest(ctx context.Context, req Request) error {
	method := req.Method.String()
	if method == "" {
		return codecError(ErrUnknownMethod)
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	buf := c.pool.Get()
	defer c.pool.Put(buf)

	buf.WriteString(method)
	buf.WriteByte(' ')
	buf.WriteString(path)
	buf.WriteString(" HTTP/1.1")
	buf.WriteString(crlf)

	writeHeaderLine(buf, "Host", c.host)
	if req.Auth != nil {
		if err := req.Auth.appendAuthorization(buf); err != nil {
			return codecError(err)
		}
	}
	if req.ContentType != "" {
		writeHeaderLine(buf, "Content-Type", string(req.ContentType))
	}
	if req.Payload != nil {
		var tmp [20]byte
		buf.WriteString("Content-Length: ")
		buf.Write(strconv.AppendUint(tmp[:0], uint64(len(req.Payload)), 10))
		buf.WriteString(crlf)
	}
	for _, h := range req.ExtraHeaders {
		writeHeaderLine(buf, h.Name, h.Value)
	}
	buf.WriteString(crlf)

	if _, err := c.conn.Write(ctx, buf.Bytes()); err != nil {
		c.log.Warn("write header block", zap.Error(err))
		return networkError(err)
	}
	c.log.Debug("header block written", zap.Int("bytes", buf.Len()))

	if req.Payload != nil {
		if _, err := c.conn.Write(ctx, req.Payload); err != nil {
			c.log.Warn("write payload", zap.Error(err))
			return networkError(err)
		}
	}
	return nil
}

func writeHeaderLine(buf *bytebufferpool.ByteBuffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString(crlf)
}

// readResponse runs the decode state machine: accumulate reads until the
// header terminator appears, parse the header block in place, slide any
// already-buffered payload bytes to the front, then fetch the rest of the
// payload as declared by Content-Length.
func (c *Client) readResponse(ctx context.Context, rxBuf []byte) (Response, error) {
	pos := 0
	headerEnd := 0
	for pos < len(rxBuf) {
		n, err := c.conn.Read(ctx, rxBuf[pos:])
		if err != nil {
			return Response{}, networkError(err)
		}
		pos += n
		if i := findSequence(rxBuf[:pos], headerTerminatorBuf); i >= 0 {
			headerEnd = i + len(headerTerminatorBuf)
			break
		}
	}
	if headerEnd == 0 {
		return Response{}, codecError(ErrHeaderTooLarge)
	}

	header := rxBuf[:headerEnd]
	if !utf8.Valid(header) {
		return Response{}, codecError(ErrInvalidHeaderBytes)
	}
	c.log.Debug("header block received", zap.Int("bytes", headerEnd))

	status := StatusBadRequest
	contentType := ""
	contentLength := 0

	rest := header
	for len(rest) > 0 {
		var line []byte
		if i := findSequence(rest, crlfBytes); i >= 0 {
			line, rest = rest[:i], rest[i+len(crlfBytes):]
		} else {
			line, rest = rest, nil
		}
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasPrefix(line, statusLinePrefix):
			s, err := parseStatusLine(line)
			if err != nil {
				return Response{}, codecError(err)
			}
			status = s
		case matchHeader(line, "content-type:"):
			// Copied, not borrowed: compaction below may slide payload
			// bytes over this region of the buffer.
			contentType = string(trimLeftSpace(line[len("content-type:"):]))
		case matchHeader(line, "content-length:"):
			v := trimLeftSpace(line[len("content-length:"):])
			n, err := strconv.ParseUint(string(v), 10, 31)
			if err != nil {
				return Response{}, codecError(ErrInvalidContentLength)
			}
			contentLength = int(n)
		}
	}

	// Slide whatever arrived past the header block to the front of the
	// buffer; those bytes are the leading part of the payload.
	copy(rxBuf, rxBuf[headerEnd:pos])
	pos -= headerEnd

	if contentLength == 0 {
		c.log.Debug("no payload")
		return Response{Status: status, ContentType: contentType}, nil
	}
	if pos > contentLength {
		// More bytes buffered than declared: corrupt or lying peer.
		return Response{}, codecError(ErrInvalidContentLength)
	}
	if contentLength > len(rxBuf) {
		return Response{}, codecError(ErrContentTooLarge)
	}

	toRead := contentLength - pos
	c.log.Debug("reading payload", zap.Int("buffered", pos), zap.Int("remaining", toRead))
	for toRead > 0 {
		n, err := c.conn.Read(ctx, rxBuf[pos:pos+toRead])
		if err != nil {
			return Response{}, networkError(err)
		}
		pos += n
		toRead -= n
	}
	c.log.Debug("payload received", zap.Int("bytes", pos))

	return Response{Status: status, ContentType: contentType, Payload: rxBuf[:pos]}, nil
}

// parseStatusLine extracts the three-digit status code at the fixed offset
// after the version token. Only single-digit major/minor versions are
// accepted; anything else is rejected rather than sliced blindly.
func parseStatusLine(line []byte) (Status, error) {
	const codeStart = len("HTTP/N.N ")
	if len(line) < codeStart+3 {
		return 0, ErrInvalidStatusLine
	}
	if line[4] != '/' || !isDigit(line[5]) || line[6] != '.' || !isDigit(line[7]) || line[8] != ' ' {
		return 0, ErrInvalidStatusLine
	}
	code, err := strconv.ParseUint(string(line[codeStart:codeStart+3]), 10, 32)
	if err != nil {
		return 0, ErrInvalidStatusLine
	}
	return statusFromCode(code), nil
}
