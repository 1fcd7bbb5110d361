package httpc

import (
	"errors"
	"fmt"
)

// Kind classifies an Error as a transport failure or an encode/decode failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindCodec
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindCodec:
		return "codec"
	default:
		return "unknown"
	}
}

// Codec-class failures, matchable with errors.Is.
var (
	ErrHeaderTooLarge       = errors.New("response header exceeds receive buffer")
	ErrInvalidHeaderBytes   = errors.New("response header is not valid utf-8")
	ErrInvalidStatusLine    = errors.New("malformed status line")
	ErrInvalidContentLength = errors.New("invalid content-length")
	ErrContentTooLarge      = errors.New("content-length exceeds receive buffer")
	ErrCredentialsTooLong   = errors.New("basic auth credentials too long")
	ErrUnknownMethod        = errors.New("unknown request method")
)

// Error is the unified failure type returned by the client. Network errors
// carry the transport's categorized error verbatim; codec errors carry one of
// the Err* sentinels.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("httpc: %s: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func networkError(err error) *Error { return &Error{Kind: KindNetwork, Err: err} }

func codecError(err error) *Error { return &Error{Kind: KindCodec, Err: err} }
