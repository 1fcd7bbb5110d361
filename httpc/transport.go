package httpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// Transport is a duplex byte stream the client borrows for one call. Reads
// and writes may complete partially; a zero count with a nil error is valid
// and callers loop. Implementations categorize failures into the Err*
// transport sentinels below so the client can surface them verbatim inside a
// Network-kind Error. The client never closes the transport.
type Transport interface {
	Read(ctx context.Context, p []byte) (int, error)
	Write(ctx context.Context, p []byte) (int, error)
}

// Transport error categories, matchable with errors.Is.
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrConnectionReset   = errors.New("connection reset")
	ErrConnectionRefused = errors.New("connection refused")
	ErrTimeout           = errors.New("i/o timeout")
)

// NetTransport adapts a net.Conn to the Transport interface. The conn is
// borrowed and never closed here; context deadlines map onto the conn's
// read/write deadlines.
type NetTransport struct {
	conn net.Conn
}

func NewNetTransport(conn net.Conn) *NetTransport { return &NetTransport{conn: conn} }

func (t *NetTransport) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil {
		return n, classifyNetError(err)
	}
	return n, nil
}

func (t *NetTransport) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(p)
	if err != nil {
		return n, classifyNetError(err)
	}
	return n, nil
}

func classifyNetError(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %v", ErrConnectionReset, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
