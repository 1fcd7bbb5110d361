package origin

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	crlf                = "\r\n"
	headerBodySeparator = "\r\n\r\n"
)

var (
	crlfBytes          = []byte(crlf)
	headerSeparatorBuf = []byte(headerBodySeparator)
)

var (
	errNeedMoreData   = errors.New("incomplete http request")
	errHeaderTooLarge = errors.New("request header too large")
)

// Request is one decoded inbound HTTP/1.1 request. Header keys are stored
// lowercased; Body is a copy of the request body.
type Request struct {
	Method string
	Path   string
	Header map[string]string
	Body   []byte
}

// HeaderValue returns the value of a header field, name case-insensitive.
func (r Request) HeaderValue(name string) string {
	return r.Header[strings.ToLower(name)]
}

// parseRequest decodes one request from the front of buf and returns it along
// with the number of bytes consumed. errNeedMoreData means the buffer does
// not yet hold a complete request. Chunked transfer encoding is not served
// here; the origin exists to exercise Content-Length framed exchanges.
func parseRequest(buf []byte, maxHeaderBytes int) (Request, int, error) {
	headerEnd := bytes.Index(buf, headerSeparatorBuf)
	if headerEnd == -1 {
		if len(buf) > maxHeaderBytes {
			return Request{}, 0, errHeaderTooLarge
		}
		return Request{}, 0, errNeedMoreData
	}
	if headerEnd > maxHeaderBytes {
		return Request{}, 0, errHeaderTooLarge
	}

	lines := bytes.Split(buf[:headerEnd], crlfBytes)
	requestLine := string(lines[0])
	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) != 3 || parts[0] == "" {
		return Request{}, 0, fmt.Errorf("invalid request line: %q", requestLine)
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return Request{}, 0, fmt.Errorf("unsupported proto: %s", proto)
	}
	if target == "" {
		target = "/"
	}

	header := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		if len(line) == 0 {
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return Request{}, 0, fmt.Errorf("malformed header line: %q", string(line))
		}
		key := strings.ToLower(strings.TrimSpace(string(line[:colon])))
		header[key] = strings.TrimSpace(string(line[colon+1:]))
	}

	if _, ok := header["transfer-encoding"]; ok {
		return Request{}, 0, fmt.Errorf("transfer encodings are not served here")
	}

	length := 0
	if cl, ok := header["content-length"]; ok {
		v, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || v < 0 {
			return Request{}, 0, fmt.Errorf("invalid Content-Length: %q", cl)
		}
		length = int(v)
	}

	bodyStart := headerEnd + len(headerSeparatorBuf)
	total := bodyStart + length
	if len(buf) < total {
		return Request{}, 0, errNeedMoreData
	}

	req := Request{
		Method: method,
		Path:   target,
		Header: header,
	}
	if length > 0 {
		req.Body = append([]byte(nil), buf[bodyStart:total]...)
	}
	return req, total, nil
}
