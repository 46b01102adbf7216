package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
)

// Listener accepts hook connections on a unix domain socket and serves
// each one on its own goroutine.
type Listener struct {
	path    string
	handler *Handler
	logger  *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewListener creates a listener for the given socket path.
func NewListener(path string, handler *Handler, logger *slog.Logger) *Listener {
	return &Listener{
		path:    path,
		handler: handler,
		logger:  logger,
	}
}

// Start binds the socket and launches the accept loop. A stale socket
// file left by a previous run is removed first; the fresh socket is
// restricted to the owning user.
func (l *Listener) Start(ctx context.Context) error {
	if err := removeStaleSocket(l.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", l.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.path, err)
	}
	if err := os.Chmod(l.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	l.mu.Lock()
	l.ln = ln
	l.cancel = cancel
	l.mu.Unlock()

	l.logger.Info("listening", "socket", l.path)

	l.wg.Add(1)
	go l.acceptLoop(ctx, ln)
	return nil
}

// Stop closes the socket, cancels in-flight handlers, and waits for them
// to finish or the context to expire. The socket file is removed so the
// next run does not mistake it for a live daemon.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	ln := l.ln
	cancel := l.cancel
	l.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		l.logger.Warn("shutdown timed out with handlers in flight")
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove socket: %w", err)
	}
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context, ln net.Listener) {
	defer l.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept failed", "error", err)
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("handler panic", "panic", r)
				}
			}()
			l.handler.Handle(ctx, conn)
		}()
	}
}

// removeStaleSocket deletes a leftover socket file. A connectable socket
// means another daemon is already running, which is an error.
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat socket: %w", err)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("socket %s is in use by another instance", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}
