// Package bongowire is the TCP session loop: length-prefixed JSON frames
// in, statements through the executor, framed responses out.
package bongowire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tuannm99/bongodb/internal/sql/executor"
)

type ServerConfig struct {
	Addr string
}

// Run listens on cfg.Addr and serves sessions until SIGINT/SIGTERM.
func Run(cfg ServerConfig, exec *executor.Executor) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("bongodb tcp server listening", "addr", ln.Addr().String())
	return Serve(ctx, ln, exec)
}

// Serve accepts connections until ctx is done. All sessions share exec:
// one catalog per process, arbitration done by the concurrency controller.
func Serve(ctx context.Context, ln net.Listener, exec *executor.Executor) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			slog.Error("accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, exec)
	}
}

func handleConn(ctx context.Context, conn net.Conn, exec *executor.Executor) {
	defer func() { _ = conn.Close() }()

	session := uuid.NewString()
	log := slog.With("session", session, "remote", conn.RemoteAddr().String())
	log.Info("session opened")
	defer log.Info("session closed")

	// No global deadline; statements may block on locks legitimately.
	_ = conn.SetDeadline(time.Time{})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			if errors.Is(err, ErrBadPayload) {
				msg := "invalid request payload"
				resp := ExecuteResponse{Successful: 1, Error: &msg}
				if werr := WriteFrame(conn, resp); werr != nil {
					return
				}
				continue
			}
			// Client closed or the stream is broken; this kills only
			// this session.
			return
		}

		start := time.Now()
		res, err := exec.ExecSQL(req.SQL)
		if err != nil {
			log.Debug("statement failed", "err", err, "elapsed", time.Since(start))
			if werr := WriteFrame(conn, errResponse(err)); werr != nil {
				return
			}
			continue
		}

		log.Debug("statement ok", "affected", res.AffectedRows, "elapsed", time.Since(start))
		if werr := WriteFrame(conn, okResponse(res)); werr != nil {
			return
		}
	}
}
