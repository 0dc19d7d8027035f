package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soar/dianach/internal/config"
	"github.com/soar/dianach/internal/control"
	"github.com/soar/dianach/internal/hub"
	"github.com/soar/dianach/internal/joystick"
	"github.com/soar/dianach/internal/link"
	"github.com/soar/dianach/internal/server"
	"github.com/soar/dianach/internal/ship"
	"github.com/soar/dianach/internal/tray"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// runBridge connects to the server and runs the polling loop, the state
// listener and the optional monitor until a shutdown signal or a fatal error.
func runBridge(parent context.Context, cfg *config.Config) error {
	cal, err := cfg.Calibrations()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)

	transport, err := link.Dial(ctx, cfg.LinkOptions())
	if err != nil {
		return err
	}
	defer transport.Close()

	tracker := ship.NewTracker(cfg.Ship)
	ctrl, err := control.New(cal, transport, tracker, control.Options{
		Ship:    cfg.Ship,
		Epsilon: cfg.Epsilon,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 3)

	// Inbound ship state
	go func() {
		err := transport.Listen(ctx, func(u ship.Update) {
			if tracker.Apply(u) {
				logrus.WithField("ship", u.Ship).Trace("ship state updated")
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	// The reader locks its goroutine to an OS thread for SDL.
	reader := joystick.NewReader(joystick.Options{
		PollHz:    cfg.PollHz,
		Overrides: cfg.Overrides(),
	})

	var srv *server.Server
	if cfg.Monitor.Enabled {
		h := hub.NewHub()
		broadcaster := hub.NewBroadcaster(h)
		go broadcaster.Run(ctx)
		ctrl.SetFrameSink(broadcaster)

		srv, err = server.New(h, broadcaster, reader, cal, cfg.Monitor.Addr)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- pkgerrors.Wrapf(err, "monitor server")
			}
		}()
	}

	shutdownRequested := make(chan struct{})
	if cfg.Tray {
		monitorURL := ""
		if cfg.Monitor.Enabled {
			monitorURL = "http://" + cfg.Monitor.Addr
		}
		t := tray.New(monitorURL, func() {
			close(shutdownRequested)
		})
		go t.Run(tray.GetIcon())
		defer t.Quit()
	} else {
		logrus.Info("press Ctrl+C to exit")
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		if err := reader.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	controlDone := make(chan struct{})
	go func() {
		defer close(controlDone)
		_ = ctrl.Run(ctx, reader.States())
	}()

	var runErr error
	select {
	case <-sigCh:
		logrus.Info("shutting down...")
	case <-shutdownRequested:
		logrus.Info("shutdown requested from tray")
	case <-ctx.Done():
	case runErr = <-errCh:
		logrus.WithError(runErr).Error("bridge stopped")
	}
	cancel()

	<-readerDone
	<-controlDone

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("monitor shutdown error")
		}
	}

	logrus.Info("dianach stopped")
	return runErr
}
