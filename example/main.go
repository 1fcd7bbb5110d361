// Demo: runs the gnet origin on a loopback port, then drives the httpc
// client over plain TCP connections against it.
package main

import (
	"context"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Dirbaio/reqwless/httpc"
	"github.com/Dirbaio/reqwless/origin"
)

const listenAddr = "127.0.0.1:8087"

func main() {
	log := newLogger()
	defer func() { _ = log.Sync() }()

	srv, err := origin.Start(listenAddr, demoHandler, origin.WithLogger(log.Named("origin")))
	if err != nil {
		log.Fatal("start origin", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return runGet(ctx, log) })
	g.Go(func() error { return runPost(ctx, log) })
	if err := g.Wait(); err != nil {
		log.Error("demo", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		log.Warn("stop origin", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   "reqwless-demo.log",
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
	})
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), rotating, zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stdout), zap.InfoLevel),
	)
	return zap.New(core)
}

func demoHandler(req origin.Request) origin.Response {
	switch req.Path {
	case "/ping":
		return origin.Response{Status: 200, ContentType: "text/plain", Body: []byte("pong")}
	case "/echo":
		return origin.Response{Status: 201, ContentType: req.HeaderValue("Content-Type"), Body: req.Body}
	default:
		return origin.Response{Status: 404, ContentType: "text/plain", Body: []byte("not found")}
	}
}

func runGet(ctx context.Context, log *zap.Logger) error {
	conn, err := net.Dial("tcp", listenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	client := httpc.New(httpc.NewNetTransport(conn), "127.0.0.1", httpc.WithLogger(log.Named("client")))
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rxBuf := make([]byte, 4096)
	resp, err := client.Get(ctx, "/ping", rxBuf)
	if err != nil {
		return err
	}
	log.Info("GET /ping",
		zap.Int("status", int(resp.Status)),
		zap.String("content_type", resp.ContentType),
		zap.ByteString("payload", resp.Payload))
	return nil
}

func runPost(ctx context.Context, log *zap.Logger) error {
	conn, err := net.Dial("tcp", listenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	client := httpc.New(httpc.NewNetTransport(conn), "127.0.0.1", httpc.WithLogger(log.Named("client")))
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req := httpc.Request{
		Method:       httpc.POST,
		Path:         "/echo",
		Auth:         httpc.BasicAuth{Username: "device", Password: "secret"},
		ContentType:  httpc.ApplicationJSON,
		Payload:      []byte(`{"temperature":21.5}`),
		ExtraHeaders: []httpc.Header{{Name: "X-Device-Id", Value: "sensor-42"}},
	}
	rxBuf := make([]byte, 4096)
	resp, err := client.Do(ctx, req, rxBuf)
	if err != nil {
		return err
	}
	log.Info("POST /echo",
		zap.Int("status", int(resp.Status)),
		zap.String("content_type", resp.ContentType),
		zap.ByteString("payload", resp.Payload))
	return nil
}
