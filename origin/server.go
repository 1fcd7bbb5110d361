// Package origin runs a small gnet-backed HTTP/1.1 origin server. It serves
// Content-Length framed responses from a handler callback and exists as the
// loopback peer for integration tests, stress tests and demos of the httpc
// client engine.
package origin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gnet "github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultMaxHeaderBytes = 8 << 10
	defaultServerHeader   = "reqwless-origin"
	startTimeout          = 5 * time.Second
)

// Response describes what the origin sends back for one request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Extra       map[string]string
}

// Handler produces the response for one decoded request.
type Handler func(Request) Response

// Option configures a Server.
type Option func(*Server)

// WithLogger injects the server's log sink. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxHeaderBytes caps the size of an inbound request header block.
func WithMaxHeaderBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHeaderBytes = n
		}
	}
}

// WithServerHeader overrides the Server response header.
func WithServerHeader(header string) Option {
	return func(s *Server) {
		if header != "" {
			s.serverHeader = header
		}
	}
}

// Server is a gnet event handler serving HTTP/1.1 on one listener.
type Server struct {
	gnet.BuiltinEventEngine

	addr           string
	handler        Handler
	log            *zap.Logger
	maxHeaderBytes int
	serverHeader   string
	bufPool        *bytebufferpool.Pool

	engine gnet.Engine
	ready  chan struct{}
	runErr chan error
}

// Start launches the origin on addr (host:port) and blocks until the event
// engine is accepting connections.
func Start(addr string, handler Handler, opts ...Option) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing address")
	}
	if handler == nil {
		return nil, fmt.Errorf("missing handler")
	}
	s := &Server{
		addr:           ensureProtoAddr(addr),
		handler:        handler,
		log:            zap.NewNop(),
		maxHeaderBytes: defaultMaxHeaderBytes,
		serverHeader:   defaultServerHeader,
		bufPool:        &bytebufferpool.Pool{},
		ready:          make(chan struct{}),
		runErr:         make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	go func() { s.runErr <- gnet.Run(s, s.addr) }()

	select {
	case <-s.ready:
		s.log.Info("origin listening", zap.String("addr", s.addr))
		return s, nil
	case err := <-s.runErr:
		if err == nil {
			err = fmt.Errorf("origin exited before becoming ready")
		}
		return nil, err
	case <-time.After(startTimeout):
		return nil, fmt.Errorf("origin %s not ready in time", s.addr)
	}
}

// Stop shuts the event engine down and waits for the run loop to exit.
func (s *Server) Stop(ctx context.Context) error {
	err := s.engine.Stop(ctx)
	select {
	case runErr := <-s.runErr:
		err = multierr.Append(err, runErr)
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}

func (s *Server) OnBoot(engine gnet.Engine) gnet.Action {
	s.engine = engine
	close(s.ready)
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(&connBuffer{})
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	if cb, ok := c.Context().(*connBuffer); ok {
		cb.reset()
	}
	return gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	cb, _ := c.Context().(*connBuffer)
	if cb == nil {
		cb = &connBuffer{}
		c.SetContext(cb)
	}

	if n := c.InboundBuffered(); n > 0 {
		data, err := c.Next(n)
		if err != nil {
			s.log.Warn("inbound read", zap.Error(err))
			return gnet.Close
		}
		cb.append(data)
	}

	for len(cb.buf) > 0 {
		req, consumed, err := parseRequest(cb.buf, s.maxHeaderBytes)
		if err != nil {
			if errors.Is(err, errNeedMoreData) {
				break
			}
			s.log.Warn("parse request", zap.Error(err))
			s.writeError(c, err)
			return gnet.Close
		}

		resp := s.handler(req)
		if err := s.writeResponse(c, resp); err != nil {
			s.log.Warn("write response", zap.Error(err))
			return gnet.Close
		}
		cb.discard(consumed)
	}
	return gnet.None
}

func (s *Server) writeError(c gnet.Conn, cause error) {
	status := 400
	if errors.Is(cause, errHeaderTooLarge) {
		status = 431
	}
	_ = s.writeResponse(c, Response{
		Status:      status,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(cause.Error() + "\n"),
		Extra:       map[string]string{"Connection": "close"},
	})
}

func ensureProtoAddr(addr string) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	return "tcp://" + addr
}
