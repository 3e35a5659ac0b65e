package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/spf13/cobra"

	"github.com/srg/humitemp/internal/device"
	"github.com/srg/humitemp/pkg/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby BLE devices",
	Long: `Scan for advertising BLE devices for a fixed duration and print what was
seen, strongest signal first. The configured sensor name is marked with '*'.`,
	Example: `  humitemp scan
  humitemp scan --duration 10s --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFormat   string
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 5*time.Second, "How long to scan")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", config.FormatText, "Output format (text, json)")
}

// seenDevice is the latest advertisement from one address
type seenDevice struct {
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	RSSI     int       `json:"rssi"`
	LastSeen time.Time `json:"last_seen"`
	Target   bool      `json:"target"`
}

// scanCollector implements device.ScanCallback and keeps one entry per address
type scanCollector struct {
	target  string
	devices *hashmap.Map[string, seenDevice]

	mu  sync.Mutex
	err error
}

func newScanCollector(target string) *scanCollector {
	return &scanCollector{
		target:  target,
		devices: hashmap.New[string, seenDevice](),
	}
}

func (c *scanCollector) OnScanResult(adv device.Advertisement) {
	d := seenDevice{
		Name:     adv.LocalName(),
		Address:  adv.Addr(),
		RSSI:     adv.RSSI(),
		LastSeen: time.Now(),
	}
	// Scan responses often omit the name; keep the one seen earlier
	if prev, ok := c.devices.Get(d.Address); ok && d.Name == "" {
		d.Name = prev.Name
	}
	d.Target = d.Name != "" && d.Name == c.target
	c.devices.Set(d.Address, d)
}

func (c *scanCollector) OnScanFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *scanCollector) failure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// sorted returns the devices strongest signal first, then by address
func (c *scanCollector) sorted() []seenDevice {
	out := make([]seenDevice, 0, c.devices.Len())
	c.devices.Range(func(_ string, d seenDevice) bool {
		out = append(out, d)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// collectDevices scans until duration elapses or ctx is done
func collectDevices(ctx context.Context, scanner device.Scanner, target string, duration time.Duration) ([]seenDevice, error) {
	c := newScanCollector(target)
	if err := scanner.StartScan(device.ScanSettings{Mode: device.ScanModeLowLatency}, c); err != nil {
		return nil, fmt.Errorf("failed to start scan: %w", err)
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	scanner.StopScan()

	if err := c.failure(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
		return nil, ctx.Err()
	}
	return c.sorted(), nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanDuration <= 0 {
		return fmt.Errorf("--duration must be positive")
	}
	if scanFormat != config.FormatText && scanFormat != config.FormatJSON {
		return fmt.Errorf("unsupported format %q (must be %s or %s)", scanFormat, config.FormatText, config.FormatJSON)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	devices, err := collectDevices(ctx, adapterFactory(cfg, logger), cfg.DeviceName, scanDuration)
	if err != nil {
		return err
	}

	if scanFormat == config.FormatJSON {
		return writeDevicesJSON(cmd.OutOrStdout(), devices)
	}
	return writeDevicesTable(cmd.OutOrStdout(), devices)
}

func writeDevicesTable(w io.Writer, devices []seenDevice) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tADDRESS\tRSSI\tNAME")
	for _, d := range devices {
		mark := ""
		if d.Target {
			mark = "*"
		}
		name := d.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", mark, d.Address, d.RSSI, name)
	}
	return tw.Flush()
}

func writeDevicesJSON(w io.Writer, devices []seenDevice) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if devices == nil {
		devices = []seenDevice{}
	}
	return enc.Encode(devices)
}
