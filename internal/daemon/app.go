// Package daemon wires the components together and manages their lifecycle.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Component is a long-running part of the daemon.
type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App starts components in order and stops them in reverse order.
type App struct {
	components []namedComponent
	logger     *slog.Logger
}

type namedComponent struct {
	name      string
	component Component
	started   bool
}

// NewApp creates an empty App.
func NewApp(logger *slog.Logger) *App {
	return &App{logger: logger.With("component", "daemon")}
}

// Add registers a component. Registration order is start order.
func (a *App) Add(name string, c Component) {
	a.components = append(a.components, namedComponent{name: name, component: c})
}

// Start starts all components in order. If any Start fails, the already
// started ones are stopped in reverse order.
func (a *App) Start(ctx context.Context) error {
	for i := range a.components {
		nc := &a.components[i]
		a.logger.Info("starting component", "name", nc.name)
		if err := nc.component.Start(ctx); err != nil {
			a.logger.Error("component start failed", "name", nc.name, "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting %s: %w", nc.name, err)
		}
		nc.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops all started components in reverse order with a timeout.
func (a *App) Stop() {
	a.stopFrom(len(a.components) - 1)
}

func (a *App) stopFrom(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		nc := &a.components[i]
		if !nc.started {
			continue
		}
		a.logger.Info("stopping component", "name", nc.name)
		if err := nc.component.Stop(ctx); err != nil {
			a.logger.Error("component stop error", "name", nc.name, "error", err)
		}
		nc.started = false
	}
}

// Run starts the app and blocks until SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
