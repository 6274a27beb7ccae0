package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"footctl/internal/config"
	"footctl/internal/decoder"
	serialdiscovery "footctl/internal/discovery/serial"
	"footctl/internal/transport"
	"footctl/internal/utils"
)

// Application ties the monitor together: configuration, logging, the serial
// transport and the protocol decoder.
type Application struct {
	config  *config.Config
	logger  *zap.Logger
	session *utils.SessionLogger

	port    *transport.Port
	decoder *decoder.Decoder
	status  *statusRenderer
}

func main() {
	listPorts := flag.Bool("list", false, "list candidate serial ports and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [device]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Reads a foot controller on the given serial device and shows its state.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	app, err := NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer app.logger.Sync()

	if *listPorts {
		if err := app.listPorts(); err != nil {
			app.logger.Fatal("Port listing failed", zap.Error(err))
		}
		return
	}

	device := app.config.Serial.Device
	if flag.NArg() > 0 {
		device = flag.Arg(0)
	}

	// A misconfigured line cannot safely decode the protocol, so open and
	// configure failures are fatal here and only here.
	if err := app.Start(device); err != nil {
		app.logger.Fatal("Failed to start monitor", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Run(ctx)
	app.Shutdown()
}

// NewApplication loads configuration and sets up logging
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &Application{
		config: cfg,
		logger: logger,
		status: newStatusRenderer(os.Stdout),
	}, nil
}

// Start opens and configures the serial line and prepares the decoder
func (app *Application) Start(device string) error {
	app.session = utils.NewSessionLogger(app.logger, device)

	port, err := transport.Open(device, app.session.Logger)
	if err != nil {
		return fmt.Errorf("failed to open serial device: %w", err)
	}

	serialCfg := app.config.Serial
	if err := port.Configure(serialCfg.BaudRate, serialCfg.Format, serialCfg.FlowControl); err != nil {
		port.Close()
		return fmt.Errorf("failed to configure serial device: %w", err)
	}

	app.port = port
	app.decoder = decoder.New(port, decoder.Config{
		CommandTimeout: serialCfg.CommandTimeout,
		PayloadTimeout: serialCfg.PayloadTimeout,
	}, app.session.Logger)

	app.session.LogSessionStart(serialCfg.BaudRate, port.ActualBaud(), serialCfg.Format)
	fmt.Printf("initialized %s with %d bps\n\n", device, port.ActualBaud())

	return nil
}

// Run drives the decode loop until the context is cancelled. Read errors are
// shown and logged, then the loop backs off briefly and tries again; the
// monitor is meant to sit on a flaky line unattended and recover on its own.
func (app *Application) Run(ctx context.Context) {
	serialCfg := app.config.Serial

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, err := app.decoder.Next()
		if err != nil {
			app.status.renderError(err)
			if errors.Is(err, transport.ErrTimeout) {
				// An idle controller produces a steady stream of command
				// timeouts; keep those out of the warn log.
				app.session.Debug("No command byte", zap.Error(err))
			} else {
				app.session.LogReadError("command", err, serialCfg.RetryDelay)
			}
			if !sleepCtx(ctx, serialCfg.RetryDelay) {
				return
			}
			continue
		}

		if ev.PayloadErr != nil {
			app.session.LogReadError("pedal payload", ev.PayloadErr, serialCfg.RetryDelay)
		}

		app.status.render(ev.Command, app.decoder.State().Snapshot())

		if !sleepCtx(ctx, serialCfg.IdleDelay) {
			return
		}
	}
}

// Shutdown releases the serial line
func (app *Application) Shutdown() {
	fmt.Println()

	if app.port != nil {
		if err := app.port.Close(); err != nil {
			app.session.Error("Failed to close serial device", zap.Error(err))
		}
	}

	if app.session != nil {
		app.session.LogSessionStop("signal")
	}
}

// listPorts prints candidate serial ports, one per line
func (app *Application) listPorts() error {
	scanner := serialdiscovery.NewScanner(app.logger, nil)

	ports, err := scanner.Scan()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("no candidate serial ports found")
		return nil
	}

	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}

// sleepCtx sleeps for d unless the context is cancelled first. Returns false
// on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
