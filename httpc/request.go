package httpc

import (
	"encoding/base64"

	"github.com/valyala/bytebufferpool"
)

// Method is the closed set of request methods the client can encode.
type Method int

const (
	GET Method = iota
	HEAD
	POST
	PUT
	DELETE
	PATCH
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case DELETE:
		return "DELETE"
	case PATCH:
		return "PATCH"
	default:
		return ""
	}
}

// ContentType is a request or response media type.
type ContentType string

const (
	ApplicationJSON        ContentType = "application/json"
	ApplicationCBOR        ContentType = "application/cbor"
	ApplicationOctetStream ContentType = "application/octet-stream"
	TextPlain              ContentType = "text/plain"
)

// Header is one extra header pair, written after the standard set in the
// order given.
type Header struct {
	Name  string
	Value string
}

// Request describes a single HTTP request. It is borrowed by the client for
// the duration of one Do call; the payload bytes are written to the wire but
// never copied or retained.
type Request struct {
	Method       Method
	Path         string // defaults to "/" when empty
	Auth         Auth
	ContentType  ContentType
	Payload      []byte // nil means no body; a Content-Length header is written when non-nil
	ExtraHeaders []Header
}

// Auth is a request authentication scheme. BasicAuth is the only variant.
type Auth interface {
	// appendAuthorization appends a complete Authorization header line,
	// CRLF included, to the outgoing header block.
	appendAuthorization(buf *bytebufferpool.ByteBuffer) error
}

// Credential buffers are fixed so over-long credentials are rejected instead
// of silently growing the header block.
const (
	maxBasicCredentials = 128
	maxBasicEncoded     = 256
)

// BasicAuth carries credentials for the Basic scheme. The combined
// "username:password" string must fit maxBasicCredentials bytes.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) appendAuthorization(buf *bytebufferpool.ByteBuffer) error {
	n := len(a.Username) + 1 + len(a.Password)
	if n > maxBasicCredentials {
		return ErrCredentialsTooLong
	}

	var combined [maxBasicCredentials]byte
	m := copy(combined[:], a.Username)
	combined[m] = ':'
	m++
	m += copy(combined[m:], a.Password)

	var encoded [maxBasicEncoded]byte
	base64.StdEncoding.Encode(encoded[:], combined[:m])

	buf.WriteString("Authorization: Basic ")
	buf.Write(encoded[:base64.StdEncoding.EncodedLen(m)])
	buf.WriteString(crlf)
	return nil
}
