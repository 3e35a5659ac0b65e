package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/humitemp/internal/device"
	goble "github.com/srg/humitemp/internal/device/go-ble"
	"github.com/srg/humitemp/internal/receiver"
	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/pkg/config"
	"github.com/srg/humitemp/pkg/resource"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to the sensor and stream readings",
	Long: `Scan for the sensor, connect, subscribe to its temperature and humidity
characteristic and print every reading until interrupted.

Progress is shown on a status line when writing to a terminal. With
--format json every event, progress included, is printed as one JSON object
per line.`,
	Example: `  humitemp watch
  humitemp watch --device-name Lab_Sensor --format json --count 10`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchDeviceName  string
	watchMaxAttempts int
	watchRetryDelay  time.Duration
	watchFormat      string
	watchCount       int
	watchReconnect   bool
)

// adapterFactory creates the BLE adapter (can be overridden in tests)
var adapterFactory = func(cfg *config.Config, logger *logrus.Logger) device.Adapter {
	return goble.NewAdapter(goble.AdapterOptions{ConnectTimeout: cfg.ConnectTimeout}, logger)
}

func init() {
	watchCmd.Flags().StringVar(&watchDeviceName, "device-name", "", "Advertised name of the sensor")
	watchCmd.Flags().IntVar(&watchMaxAttempts, "max-attempts", 0, "Connection attempts before giving up")
	watchCmd.Flags().DurationVar(&watchRetryDelay, "retry-delay", 0, "Pause between connection attempts")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "Output format (text, json)")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Exit after this many readings (0 for unlimited)")
	watchCmd.Flags().BoolVar(&watchReconnect, "reconnect", true, "Start over when the sensor disconnects")
}

// applyWatchFlags overrides config values with explicitly set flags
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("device-name") {
		cfg.DeviceName = watchDeviceName
	}
	if flags.Changed("max-attempts") {
		cfg.MaxConnectionAttempts = watchMaxAttempts
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = watchRetryDelay
	}
	if flags.Changed("format") {
		cfg.OutputFormat = watchFormat
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyWatchFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if watchCount < 0 {
		return fmt.Errorf("--count must not be negative")
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := receiver.NewManager(adapterFactory(cfg, logger), cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return watch(ctx, m, watchOptions{
		out:         out,
		status:      cmd.ErrOrStderr(),
		format:      cfg.OutputFormat,
		count:       watchCount,
		reconnect:   watchReconnect,
		interactive: isTerminal(out),
	})
}

// readingSource is the part of receiver.Manager watch drives
type readingSource interface {
	Data() <-chan receiver.Reading
	StartReceiving()
	CloseConnection()
	Shutdown()
}

type watchOptions struct {
	out    io.Writer
	status io.Writer
	format string
	// count stops after that many readings, 0 means unlimited
	count       int
	reconnect   bool
	interactive bool
	printer     *readingPrinter
}

// watch prints readings until ctx is done, count is reached or the receiver
// reports a terminal error
func watch(ctx context.Context, src readingSource, opts watchOptions) error {
	defer src.Shutdown()

	printer := opts.printer
	if printer == nil {
		printer = newReadingPrinter(opts.format, opts.interactive)
	}

	var progress *ProgressPrinter
	if opts.interactive && opts.format != config.FormatJSON {
		progress = NewProgressPrinter(opts.out, "Starting")
		progress.Start()
		defer progress.Stop()
	}

	emit := func(w io.Writer, line string) {
		if progress != nil {
			progress.Print(line)
			return
		}
		fmt.Fprintln(w, line)
	}

	src.StartReceiving()
	received := 0

	for {
		select {
		case <-ctx.Done():
			src.CloseConnection()
			return ctx.Err()

		case r, ok := <-src.Data():
			if !ok {
				return nil
			}

			if r.Kind == resource.KindLoading && opts.format != config.FormatJSON {
				if progress != nil {
					progress.SetPhase(r.Message)
				} else {
					fmt.Fprintln(opts.status, r.Message)
				}
				continue
			}

			line, err := printer.Line(r)
			if err != nil {
				return err
			}
			switch {
			case opts.format == config.FormatJSON:
				emit(opts.out, line)
			case r.Kind == resource.KindError:
				emit(opts.status, line)
			default:
				emit(opts.out, line)
			}

			switch r.Kind {
			case resource.KindError:
				if r.Message == receiver.MsgDecodeFailed {
					continue
				}
				src.CloseConnection()
				return &ReceiveError{Message: r.Message}

			case resource.KindSuccess:
				if r.Data.ConnectionState == sensor.Disconnected {
					if !opts.reconnect {
						return &ReceiveError{Message: "sensor disconnected"}
					}
					src.StartReceiving()
					continue
				}
				received++
				if opts.count > 0 && received >= opts.count {
					src.CloseConnection()
					return nil
				}
			}
		}
	}
}
